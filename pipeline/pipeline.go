// Package pipeline drives frame sets from a sensor through the green-screen compositor and
// the resolution reducer, and lets a UI change the reduction while frames are flowing.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/greenscreen/logging"
	"go.viam.com/greenscreen/rimage"
	"go.viam.com/greenscreen/rimage/greenscreen"
	"go.viam.com/greenscreen/rimage/reduce"
)

// ErrMissingFrame is returned by Process when a frame set lacks one of its streams.
var ErrMissingFrame = greenscreen.ErrMissingFrame

// Result is the output of one processed frame set. Display and Color alias the pipeline's
// buffers and are only valid until the next call to Process.
type Result struct {
	greenscreen.Result
	// Resolution is the reduction applied to Display.
	Resolution reduce.Resolution
	// Latency is the time spent compositing and reducing the frame.
	Latency time.Duration
}

// An Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock latencies are measured with.
func WithClock(clk clock.Clock) Option {
	return func(p *Pipeline) {
		p.clock = clk
	}
}

// WithName sets the pipeline name used in logs. By default a random one is picked.
func WithName(name string) Option {
	return func(p *Pipeline) {
		p.name = name
	}
}

// A Pipeline composites and reduces frame sets one at a time. Process calls are serialized;
// the resolution may be changed from any goroutine and takes effect on the next frame.
type Pipeline struct {
	name   string
	logger logging.Logger
	clock  clock.Clock
	stats  *Stats

	processMu  sync.Mutex
	compositor *greenscreen.Compositor
	reducer    *reduce.Reducer

	settingsMu sync.Mutex
	resolution reduce.Resolution
}

// New returns a pipeline that maps depth to color with mapper and reduces as conf says. A nil
// conf uses the defaults.
func New(mapper rimage.CoordinateMapper, conf *Config, logger logging.Logger, opts ...Option) (*Pipeline, error) {
	if conf == nil {
		conf = &Config{}
	}
	if err := conf.Validate("pipeline"); err != nil {
		return nil, err
	}
	res, err := conf.Resolution()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		name:       uuid.NewString(),
		clock:      clock.New(),
		stats:      newStats(conf.statsWindow()),
		reducer:    reduce.NewReducer(),
		resolution: res,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logger.Sublogger(p.name)

	p.compositor, err = greenscreen.NewCompositor(mapper, p.logger.Sublogger("compositor"))
	if err != nil {
		return nil, err
	}
	p.logger.Debugw("pipeline created", "resolution", res.String())
	return p, nil
}

// Name returns the name the pipeline logs under.
func (p *Pipeline) Name() string {
	return p.name
}

// Resolution returns the reduction applied to the next frame.
func (p *Pipeline) Resolution() reduce.Resolution {
	p.settingsMu.Lock()
	defer p.settingsMu.Unlock()
	return p.resolution
}

// SetResolution changes the reduction applied from the next frame on.
func (p *Pipeline) SetResolution(res reduce.Resolution) error {
	if err := res.Validate(); err != nil {
		return err
	}
	p.settingsMu.Lock()
	old := p.resolution
	p.resolution = res
	p.settingsMu.Unlock()

	if old != res {
		p.logger.Infow("resolution changed", "from", old.String(), "to", res.String())
	}
	return nil
}

// ApplyConfig validates conf and switches to the resolution it selects.
func (p *Pipeline) ApplyConfig(conf *Config) error {
	if err := conf.Validate("pipeline"); err != nil {
		return err
	}
	res, err := conf.Resolution()
	if err != nil {
		return err
	}
	return p.SetResolution(res)
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() StatsSnapshot {
	return p.stats.Snapshot()
}

// Process composites fs and reduces the result in place. fs is released before Process
// returns. A frame set with buffers that do not match its geometry is skipped: the result is
// marked Skipped and Display keeps the previous output.
func (p *Pipeline) Process(ctx context.Context, fs FrameSet) (Result, error) {
	defer fs.release()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	p.processMu.Lock()
	defer p.processMu.Unlock()

	res := p.Resolution()
	start := p.clock.Now()
	gs, err := p.compositor.GreenScreen(fs.Color, fs.Depth, fs.BodyIndex)
	if err != nil {
		p.stats.failed.Inc()
		if errors.Is(err, ErrMissingFrame) {
			return Result{}, err
		}
		return Result{}, errors.Wrapf(err, "pipeline %s", p.name)
	}
	if gs.Skipped {
		p.stats.skipped.Inc()
		return Result{Result: gs, Resolution: res}, nil
	}

	if !res.IsIdentity() {
		geometry := p.compositor.Buffers().Geometry()
		p.reducer.Apply(gs.Display.Pix, geometry.DepthWidth*rimage.BytesPerPixel, geometry.DepthHeight, res)
	}

	latency := p.clock.Since(start)
	p.stats.recordProcessed(latency)
	p.logger.CDebugw(ctx, "processed frame set",
		"resolution", res.String(), "body_pixels", gs.Coverage.Total(), "latency", latency)
	return Result{Result: gs, Resolution: res, Latency: latency}, nil
}
