// Package greenscreen removes the background of a depth frame using the body index stream,
// tinting each tracked body with a fixed palette and fading it by distance.
package greenscreen

import (
	"github.com/pkg/errors"

	"go.viam.com/greenscreen/logging"
	"go.viam.com/greenscreen/rimage"
)

// ErrMissingFrame is returned when a frame set lacks one of its streams.
var ErrMissingFrame = errors.New("frame set is missing a color, depth or body index frame")

// Coverage counts the visible pixels drawn for each body label in one frame.
type Coverage [rimage.MaxBodies]int

// Total is the number of visible pixels across all bodies.
func (c Coverage) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Composite writes the green-screen pass of one frame into dst, which must hold
// len(depth)*BytesPerPixel bytes. labels and points must have one entry per depth sample.
//
// dst is cleared first. Pixels whose label is not a body, or whose mapped color point is
// non-finite or outside the colorWidth x colorHeight image, stay transparent black. Every other
// pixel gets its body tint with Intensity as alpha. The color samples themselves are not read;
// the mapped point only decides visibility.
//
// ok is false, and dst left untouched, when the buffer lengths do not agree.
func Composite(
	dst []byte,
	colorWidth, colorHeight int,
	depth []rimage.Depth,
	labels []uint8,
	points []rimage.ColorSpacePoint,
	minReliable rimage.Depth,
) (coverage Coverage, ok bool) {
	n := len(depth)
	if len(labels) != n || len(points) != n || len(dst) != n*rimage.BytesPerPixel {
		return Coverage{}, false
	}

	clear(dst)
	for depthIndex := 0; depthIndex < n; depthIndex++ {
		label := labels[depthIndex]
		tint, isBody := BodyColor(label)
		if !isBody {
			continue
		}

		colorX, colorY, finite := points[depthIndex].Round()
		if !finite || colorX < 0 || colorX >= colorWidth || colorY < 0 || colorY >= colorHeight {
			continue
		}

		displayIndex := depthIndex * rimage.BytesPerPixel
		px := dst[displayIndex : displayIndex+4 : displayIndex+4]
		px[0] = tint[0]
		px[1] = tint[1]
		px[2] = tint[2]
		px[3] = Intensity(depth[depthIndex], minReliable)
		coverage[label]++
	}
	return coverage, true
}

// Result is the output of one GreenScreen call. Display and Color alias the compositor's
// buffers and are overwritten by the next call.
type Result struct {
	// Display is the depth shaped green-screen image.
	Display *rimage.BGRA
	// Color is the full resolution converted color frame, unmodified.
	Color *rimage.BGRA
	// Coverage counts visible pixels per body; zero when Skipped.
	Coverage Coverage
	// Skipped is set when the frame's buffers did not match its geometry. Display then still
	// holds the previous frame.
	Skipped bool
	// Reallocated is set when this frame changed the geometry and rebuilt the buffers.
	Reallocated bool
}

// A Compositor turns color, depth and body index frames into green-screen images. It owns
// the scratch buffers and is not safe for concurrent use.
type Compositor struct {
	mapper  rimage.CoordinateMapper
	buffers *BufferPool
	logger  logging.Logger
}

// NewCompositor returns a compositor that maps depth into color space with mapper.
func NewCompositor(mapper rimage.CoordinateMapper, logger logging.Logger) (*Compositor, error) {
	if mapper == nil {
		return nil, errors.New("compositor needs a coordinate mapper")
	}
	return &Compositor{
		mapper:  mapper,
		buffers: NewBufferPool(),
		logger:  logger,
	}, nil
}

// Buffers exposes the scratch buffers, mostly so the reducer can work in place on the display.
func (c *Compositor) Buffers() *BufferPool {
	return c.buffers
}

// GreenScreen composites one frame set. A missing stream is an error. A stream whose data
// does not match its declared size, or a body index frame sized differently from the depth
// frame, skips the frame and leaves the previous output in place.
func (c *Compositor) GreenScreen(
	colorFrame *rimage.ColorFrame,
	depthFrame *rimage.DepthFrame,
	bodyFrame *rimage.BodyIndexFrame,
) (Result, error) {
	if !colorFrame.HasData() || !depthFrame.HasData() || !bodyFrame.HasData() {
		return Result{}, ErrMissingFrame
	}

	geometry := Geometry{
		ColorWidth:  colorFrame.Width,
		ColorHeight: colorFrame.Height,
		DepthWidth:  depthFrame.Width,
		DepthHeight: depthFrame.Height,
	}
	// checked before sizing so a bad frame never reallocates and clears the last display
	sizeErr := colorFrame.CheckSize()
	if sizeErr == nil &&
		(len(depthFrame.Data) != geometry.DepthPixels() ||
			bodyFrame.Width != depthFrame.Width || bodyFrame.Height != depthFrame.Height ||
			len(bodyFrame.Data) != geometry.DepthPixels()) {
		sizeErr = errors.Errorf("depth frame %dx%d has %d samples, body index frame %dx%d has %d labels",
			depthFrame.Width, depthFrame.Height, len(depthFrame.Data),
			bodyFrame.Width, bodyFrame.Height, len(bodyFrame.Data))
	}
	if sizeErr != nil {
		return c.skip(sizeErr), nil
	}

	reallocated, err := c.buffers.Ensure(geometry)
	if err != nil {
		return Result{}, err
	}
	if reallocated {
		c.logger.Debugw("sized green-screen buffers",
			"color", []int{geometry.ColorWidth, geometry.ColorHeight},
			"depth", []int{geometry.DepthWidth, geometry.DepthHeight})
	}

	if err := colorFrame.CopyConvertedTo(c.buffers.ColorPixels()); err != nil {
		return c.skip(err), nil
	}
	result := Result{
		Display:     c.buffers.Display(),
		Color:       c.buffers.Color(),
		Reallocated: reallocated,
	}

	depth := c.buffers.Depth()
	labels := c.buffers.Labels()
	points := c.buffers.Points()
	copy(depth, depthFrame.Data)
	copy(labels, bodyFrame.Data)
	if err := c.mapper.MapDepthFrameToColorSpace(depth, points); err != nil {
		return Result{}, errors.Wrap(err, "cannot map depth frame to color space")
	}

	coverage, ok := Composite(
		c.buffers.DisplayPixels(),
		geometry.ColorWidth, geometry.ColorHeight,
		depth, labels, points,
		depthFrame.MinReliableDistance,
	)
	if !ok {
		// unreachable with pool sized buffers
		return c.skip(errors.New("composite buffers disagree")), nil
	}
	result.Coverage = coverage
	return result, nil
}

// skip returns a skipped result showing the previous output, which is empty before the first
// composited frame.
func (c *Compositor) skip(reason error) Result {
	c.logger.Debugw("skipping frame with mismatched buffers", "reason", reason)
	return Result{
		Display: c.buffers.Display(),
		Color:   c.buffers.Color(),
		Skipped: true,
	}
}
