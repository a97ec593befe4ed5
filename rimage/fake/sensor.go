// Package fake implements a synthetic depth sensor that renders a few rectangular bodies sliding
// back and forth in front of a gradient background, at the stream sizes of a Kinect v2.
package fake

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/greenscreen/pipeline"
	"go.viam.com/greenscreen/rimage"
)

// Stream sizes of the sensor.
const (
	ColorWidth  = 1920
	ColorHeight = 1080
	DepthWidth  = 512
	DepthHeight = 424
)

const (
	minReliableDistance = 500
	maxReliableDistance = 4500
	backgroundDepth     = 4000
	bodyWidth           = 60
	bodyHeight          = 220
)

// Config are the attributes of the fake sensor.
type Config struct {
	// Bodies is how many bodies to render, at most rimage.MaxBodies.
	Bodies int `json:"bodies"`
	// FrameRate is the number of frames per second Stream delivers.
	FrameRate float64 `json:"frame_rate"`
	// YUY2 makes the color stream deliver raw YUY2 instead of BGRA.
	YUY2 bool `json:"yuy2"`
}

// Validate checks that the config attributes are valid for a fake sensor.
func (conf *Config) Validate(path string) error {
	if conf.Bodies < 0 || conf.Bodies > rimage.MaxBodies {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("bodies must be between 0 and %d, got %d", rimage.MaxBodies, conf.Bodies))
	}
	if conf.FrameRate <= 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("frame_rate must be positive, got %v", conf.FrameRate))
	}
	return nil
}

// DefaultConfig renders three bodies at the sensor's native 30 frames per second.
func DefaultConfig() Config {
	return Config{Bodies: 3, FrameRate: 30}
}

// frameSet holds the buffers of one acquisition so they can be recycled once released.
type frameSet struct {
	color *rimage.ColorFrame
	depth *rimage.DepthFrame
	body  *rimage.BodyIndexFrame
}

// Sensor produces synthetic frame sets. Frame sets are drawn from a pool and go back to it
// when released, so a consumer that forgets to release makes the sensor allocate every frame.
type Sensor struct {
	conf   Config
	clock  clock.Clock
	mapper *rimage.ScaledMapper
	pool   sync.Pool

	mu    sync.Mutex
	frame int
}

// NewSensor returns a sensor paced by clk.
func NewSensor(conf Config, clk clock.Clock) (*Sensor, error) {
	if err := conf.Validate("fake"); err != nil {
		return nil, err
	}
	mapper, err := rimage.NewScaledMapper(image.Pt(DepthWidth, DepthHeight), image.Pt(ColorWidth, ColorHeight))
	if err != nil {
		return nil, err
	}
	s := &Sensor{conf: conf, clock: clk, mapper: mapper}
	s.pool.New = func() interface{} {
		return s.newFrameSet()
	}
	return s, nil
}

func (s *Sensor) newFrameSet() *frameSet {
	colorFormat := rimage.FormatBGRA
	if s.conf.YUY2 {
		colorFormat = rimage.FormatYUY2
	}
	depth := rimage.NewEmptyDepthFrame(DepthWidth, DepthHeight)
	depth.MinReliableDistance = minReliableDistance
	depth.MaxReliableDistance = maxReliableDistance
	return &frameSet{
		color: &rimage.ColorFrame{
			Width:  ColorWidth,
			Height: ColorHeight,
			Format: colorFormat,
			Pix:    make([]byte, ColorWidth*ColorHeight*colorFormat.BytesPerPixel()),
		},
		depth: depth,
		body:  rimage.NewEmptyBodyIndexFrame(DepthWidth, DepthHeight),
	}
}

// Mapper is the depth to color mapping matching the sensor's frames.
func (s *Sensor) Mapper() rimage.CoordinateMapper {
	return s.mapper
}

// Frames returns how many frame sets the sensor has produced.
func (s *Sensor) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Next renders the next frame set.
func (s *Sensor) Next() pipeline.FrameSet {
	s.mu.Lock()
	frame := s.frame
	s.frame++
	s.mu.Unlock()

	fs, ok := s.pool.Get().(*frameSet)
	if !ok {
		fs = s.newFrameSet()
	}
	s.render(fs, frame)

	var once sync.Once
	return pipeline.FrameSet{
		Color:     fs.color,
		Depth:     fs.depth,
		BodyIndex: fs.body,
		Release: func() {
			once.Do(func() { s.pool.Put(fs) })
		},
	}
}

// BodyRect returns where body label is drawn in depth space on the given frame.
func BodyRect(label, frame int) image.Rectangle {
	span := DepthWidth - bodyWidth
	// each body slides at its own speed and bounces off the frame edges
	pos := (frame*(label+2)*3 + label*97) % (2 * span)
	if pos > span {
		pos = 2*span - pos
	}
	top := 120 + label*12
	return image.Rect(pos, top, pos+bodyWidth, min(top+bodyHeight, DepthHeight))
}

// BodyDepth is the distance body label is rendered at.
func BodyDepth(label int) rimage.Depth {
	return rimage.Depth(1000 + label*450)
}

func (s *Sensor) render(fs *frameSet, frame int) {
	for i := range fs.depth.Data {
		fs.depth.Data[i] = backgroundDepth
		fs.body.Data[i] = rimage.NoBody
	}
	// draw far bodies first so closer ones occlude them
	for label := s.conf.Bodies - 1; label >= 0; label-- {
		rect := BodyRect(label, frame)
		depth := BodyDepth(label)
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			row := y * DepthWidth
			for x := rect.Min.X; x < rect.Max.X; x++ {
				fs.depth.Data[row+x] = depth
				fs.body.Data[row+x] = uint8(label)
			}
		}
	}
	renderColor(fs.color, frame)
}

// renderColor paints a diagonal gradient that drifts with the frame number.
func renderColor(cf *rimage.ColorFrame, frame int) {
	shift := frame * 4
	for y := 0; y < cf.Height; y++ {
		switch cf.Format {
		case rimage.FormatYUY2:
			row := cf.Pix[y*cf.Width*2 : (y+1)*cf.Width*2]
			for x := 0; x+1 < cf.Width; x += 2 {
				luma := byte(16 + (x+y+shift)%220)
				row[x*2], row[x*2+1], row[x*2+2], row[x*2+3] = luma, 128, luma, 128
			}
		default:
			row := cf.Pix[y*cf.Width*rimage.BytesPerPixel : (y+1)*cf.Width*rimage.BytesPerPixel]
			for x := 0; x < cf.Width; x++ {
				px := row[x*rimage.BytesPerPixel : (x+1)*rimage.BytesPerPixel]
				px[0] = byte(x + shift)
				px[1] = byte(y)
				px[2] = byte(x + y)
				px[3] = 0xff
			}
		}
	}
}

// Stream renders frames frame sets and hands each to offer, paced at the configured frame
// rate. It returns ctx.Err() if ctx is done before the last frame.
func (s *Sensor) Stream(ctx context.Context, frames int, offer func(pipeline.FrameSet) bool) error {
	interval := max(time.Duration(float64(time.Second)/s.conf.FrameRate), time.Nanosecond)
	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for i := 0; i < frames; i++ {
		offer(s.Next())
		if i == frames-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
