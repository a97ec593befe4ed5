// Package main is a command line tool that green-screens recorded frames and runs a synthetic
// sensor through the pipeline.
package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/greenscreen/logging"
	"go.viam.com/greenscreen/pipeline"
	"go.viam.com/greenscreen/rimage"
	"go.viam.com/greenscreen/rimage/fake"
	"go.viam.com/greenscreen/rimage/reduce"
	"go.viam.com/greenscreen/utils"
)

const (
	flagDebug   = "debug"
	flagLogFile = "log-file"

	flagDepth       = "depth"
	flagBody        = "body"
	flagColor       = "color"
	flagMinReliable = "min-reliable"
	flagN           = "n"
	flagM           = "m"
	flagMode        = "mode"
	flagPreset      = "preset"
	flagOut         = "out"
	flagColorOut    = "color-out"
	flagPreview     = "preview"

	flagFrames    = "frames"
	flagConfig    = "config"
	flagWatch     = "watch"
	flagBodies    = "bodies"
	flagFrameRate = "fps"
	flagYUY2      = "yuy2"
	flagQueue     = "queue"
)

func main() {
	goutils.ContextualMain(mainWithArgs, logging.NewLogger("greenscreen").AsZap())
}

func mainWithArgs(ctx context.Context, args []string, _ *zap.SugaredLogger) error {
	return newApp(os.Stdout, os.Stderr).RunContext(ctx, args)
}

// app carries what every command shares.
type app struct {
	out     io.Writer
	logger  logging.Logger
	logFile *logging.FileAppender
}

func newApp(out, errOut io.Writer) *cli.App {
	a := &app{out: out}
	return &cli.App{
		Name:      "greenscreen",
		Usage:     "remove the background from depth sensor frames",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.PathFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated at 10MB",
			},
		},
		Before: func(c *cli.Context) error {
			a.logger = logging.NewBlankLogger("greenscreen")
			a.logger.AddAppender(logging.NewWriterAppender(errOut))
			if c.Bool(flagDebug) {
				a.logger.SetLevel(logging.DEBUG)
			} else {
				a.logger.SetLevel(logging.INFO)
			}
			if path := c.Path(flagLogFile); path != "" {
				a.logFile = logging.NewFileAppender(path, 10)
				a.logger.AddAppender(a.logFile)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if a.logFile == nil {
				return nil
			}
			return a.logFile.Close()
		},
		Commands: []*cli.Command{
			{
				Name:      "render",
				Usage:     "green-screen one recorded frame set",
				UsageText: "greenscreen render --depth FILE --body FILE --color FILE --out FILE [options]",
				Flags: append(resolutionFlags(),
					&cli.PathFlag{Name: flagDepth, Required: true, Usage: "depth frame `FILE`, optionally .gz"},
					&cli.PathFlag{Name: flagBody, Required: true, Usage: "body index gray image `FILE`"},
					&cli.PathFlag{Name: flagColor, Required: true, Usage: "color image `FILE`"},
					&cli.UintFlag{Name: flagMinReliable, Value: 500, Usage: "minimum reliable depth in millimeters"},
					&cli.PathFlag{Name: flagOut, Required: true, Usage: "write the green-screen image to `FILE`"},
					&cli.PathFlag{Name: flagColorOut, Usage: "write the converted color frame to `FILE`"},
					&cli.PathFlag{Name: flagPreview, Usage: "write color and green-screen side by side to `FILE`"},
				),
				Action: a.render,
			},
			{
				Name:  "demo",
				Usage: "run the synthetic sensor through the pipeline and print statistics",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagFrames, Value: 90, Usage: "number of frames to stream"},
					&cli.PathFlag{Name: flagConfig, Usage: "pipeline config `FILE`"},
					&cli.BoolFlag{Name: flagWatch, Usage: "reload the config file when it changes"},
					&cli.IntFlag{Name: flagBodies, Value: fake.DefaultConfig().Bodies, Usage: "number of bodies to render"},
					&cli.Float64Flag{Name: flagFrameRate, Value: fake.DefaultConfig().FrameRate, Usage: "frames per second"},
					&cli.BoolFlag{Name: flagYUY2, Usage: "deliver color frames as YUY2"},
					&cli.IntFlag{Name: flagQueue, Value: 2, Usage: "frame sets buffered before dropping"},
					&cli.PathFlag{Name: flagOut, Usage: "write the last green-screen image to `FILE`"},
				},
				Action: a.demo,
			},
			{
				Name:   "presets",
				Usage:  "list the resolution presets",
				Action: a.presets,
			},
		},
	}
}

func resolutionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: flagN, Usage: "blocks across; overrides --preset"},
		&cli.IntFlag{Name: flagM, Usage: "blocks down; defaults to --n"},
		&cli.StringFlag{Name: flagMode, Value: reduce.ModeAverage.String(), Usage: "average, decimate or center"},
		&cli.StringFlag{Name: flagPreset, Usage: "named resolution, see the presets command"},
	}
}

func pipelineConfigFromFlags(c *cli.Context) *pipeline.Config {
	return &pipeline.Config{
		Preset:      c.String(flagPreset),
		ResolutionN: c.Int(flagN),
		ResolutionM: c.Int(flagM),
		Mode:        c.String(flagMode),
	}
}

func (a *app) render(c *cli.Context) error {
	depthFrame, err := rimage.ParseDepthFrame(c.Path(flagDepth))
	if err != nil {
		return errors.Wrap(err, "cannot read depth frame")
	}
	depthFrame.MinReliableDistance = rimage.Depth(c.Uint(flagMinReliable))
	bodyFrame, err := rimage.ReadBodyIndexFrameFromFile(c.Path(flagBody))
	if err != nil {
		return errors.Wrap(err, "cannot read body index frame")
	}
	colorFrame, err := rimage.ReadColorFrameFromFile(c.Path(flagColor))
	if err != nil {
		return err
	}

	mapper, err := rimage.NewScaledMapper(depthFrame.Bounds().Size(), image.Pt(colorFrame.Width, colorFrame.Height))
	if err != nil {
		return err
	}
	p, err := pipeline.New(mapper, pipelineConfigFromFlags(c), a.logger)
	if err != nil {
		return err
	}

	result, err := p.Process(c.Context, pipeline.FrameSet{Color: colorFrame, Depth: depthFrame, BodyIndex: bodyFrame})
	if err != nil {
		return err
	}
	if result.Skipped {
		return errors.Errorf("body index frame is %dx%d but depth frame is %dx%d",
			bodyFrame.Width, bodyFrame.Height, depthFrame.Width, depthFrame.Height)
	}

	display := result.Display.ToNRGBA()
	if err := rimage.WriteImageToFile(c.Path(flagOut), display); err != nil {
		return err
	}
	if path := c.Path(flagColorOut); path != "" {
		if err := rimage.WriteImageToFile(path, result.Color.ToNRGBA()); err != nil {
			return err
		}
	}
	if path := c.Path(flagPreview); path != "" {
		if err := rimage.WriteImageToFile(path, sideBySide(result.Color.ToNRGBA(), display)); err != nil {
			return err
		}
	}

	printCoverage(a.out, result)
	return nil
}

// sideBySide puts the green-screen image, scaled to the color frame height, to the right of
// the color frame.
func sideBySide(colorImg, display image.Image) *image.NRGBA {
	scaled := imaging.Resize(display, 0, colorImg.Bounds().Dy(), imaging.NearestNeighbor)
	out := imaging.New(colorImg.Bounds().Dx()+scaled.Bounds().Dx(), colorImg.Bounds().Dy(), color.Black)
	out = imaging.Paste(out, colorImg, image.Pt(0, 0))
	return imaging.Overlay(out, scaled, image.Pt(colorImg.Bounds().Dx(), 0), 1)
}

func printCoverage(out io.Writer, result pipeline.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Body", "Pixels"})
	for label, n := range result.Coverage {
		if n == 0 {
			continue
		}
		t.AppendRow(table.Row{label, n})
	}
	t.AppendFooter(table.Row{"Total", result.Coverage.Total()})
	t.Render()
	fmt.Fprintf(out, "resolution %s\n", result.Resolution)
}

func (a *app) demo(c *cli.Context) (err error) {
	conf := &pipeline.Config{}
	if path := c.Path(flagConfig); path != "" {
		if conf, err = pipeline.ReadConfig(path); err != nil {
			return err
		}
	}

	sensorConf := fake.Config{
		Bodies:    c.Int(flagBodies),
		FrameRate: c.Float64(flagFrameRate),
		YUY2:      c.Bool(flagYUY2),
	}
	clk := clock.New()
	sensor, err := fake.NewSensor(sensorConf, clk)
	if err != nil {
		return err
	}
	p, err := pipeline.New(sensor.Mapper(), conf, a.logger, pipeline.WithClock(clk))
	if err != nil {
		return err
	}

	workers := utils.NewStoppableWorkers(c.Context)
	defer workers.Stop()
	if path := c.Path(flagConfig); path != "" && c.Bool(flagWatch) {
		workers.AddWorkers(func(ctx context.Context) {
			if err := pipeline.WatchConfig(ctx, path, p, a.logger.Sublogger("config")); err != nil {
				a.logger.Errorw("config watcher stopped", "error", err)
			}
		})
	}

	feeder := pipeline.NewFeeder(c.Int(flagQueue), p)
	var last *rimage.BGRA
	start := clk.Now()

	g, ctx := errgroup.WithContext(c.Context)
	g.Go(func() error {
		defer feeder.Close()
		return sensor.Stream(ctx, c.Int(flagFrames), feeder.Offer)
	})
	g.Go(func() error {
		defer feeder.Drain()
		return p.Run(ctx, feeder.Frames(), func(result pipeline.Result) error {
			if c.Path(flagOut) != "" {
				last = result.Display.Clone()
			}
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := clk.Since(start)

	if path := c.Path(flagOut); path != "" && last != nil {
		err = multierr.Combine(err, rimage.WriteImageToFile(path, last.ToNRGBA()))
	}
	printStats(a.out, p, sensor.Frames(), elapsed)
	return err
}

func printStats(out io.Writer, p *pipeline.Pipeline, produced int, elapsed time.Duration) {
	stats := p.Stats()
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(fmt.Sprintf("pipeline %s, %s", p.Name(), p.Resolution()))
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"produced", produced},
		{"processed", stats.Processed},
		{"skipped", stats.Skipped},
		{"failed", stats.Failed},
		{"dropped", stats.Dropped},
		{"latency mean", stats.LatencyMean.Round(time.Microsecond)},
		{"latency p50", stats.LatencyP50.Round(time.Microsecond)},
		{"latency p95", stats.LatencyP95.Round(time.Microsecond)},
		{"latency max", stats.LatencyMax.Round(time.Microsecond)},
		{"elapsed", elapsed.Round(time.Millisecond)},
	})
	t.Render()
}

func (a *app) presets(_ *cli.Context) error {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.AppendHeader(table.Row{"Preset", "N", "M", "Decimation tile"})
	for _, preset := range reduce.Presets() {
		name := preset.Name
		if name == reduce.DefaultPreset {
			name += " (default)"
		}
		t.AppendRow(table.Row{name, preset.N, preset.M, fmt.Sprintf("%d px", reduce.DecimationTile(preset.N))})
	}
	t.Render()
	return nil
}
