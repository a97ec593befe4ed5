package pipeline

import (
	"context"
	"testing"

	"go.viam.com/test"

	"go.viam.com/greenscreen/rimage/reduce"
)

func TestDoCommand(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, nil)

	t.Run("set_resolution", func(t *testing.T) {
		reply, err := p.DoCommand(ctx, map[string]interface{}{
			"command": CommandSetResolution,
			"n":       32,
			"m":       53,
			"mode":    "center",
		})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, reply, test.ShouldResemble, map[string]interface{}{"n": 32, "m": 53, "mode": "center"})
		test.That(t, p.Resolution(), test.ShouldResemble, reduce.Resolution{N: 32, M: 53, Mode: reduce.ModeCenter})

		// mode is kept when omitted, and JSON numbers decode as ints
		_, err = p.DoCommand(ctx, map[string]interface{}{"command": CommandSetResolution, "n": 16.0})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, p.Resolution(), test.ShouldResemble, reduce.Resolution{N: 16, M: 0, Mode: reduce.ModeCenter})
	})

	t.Run("toggle_mode", func(t *testing.T) {
		reply, err := p.DoCommand(ctx, map[string]interface{}{"command": CommandToggleMode})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, reply["mode"], test.ShouldEqual, "average")

		reply, err = p.DoCommand(ctx, map[string]interface{}{"command": CommandToggleMode})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, reply["mode"], test.ShouldEqual, "decimate")
	})

	t.Run("preset", func(t *testing.T) {
		reply, err := p.DoCommand(ctx, map[string]interface{}{"command": CommandPreset, "name": "full"})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, reply, test.ShouldResemble, map[string]interface{}{"n": 512, "m": 424, "mode": "decimate"})

		_, err = p.DoCommand(ctx, map[string]interface{}{"command": CommandPreset, "name": "huge"})
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("stats", func(t *testing.T) {
		reply, err := p.DoCommand(ctx, map[string]interface{}{"command": CommandStats})
		test.That(t, err, test.ShouldBeNil)
		stats, ok := reply["stats"].(map[string]interface{})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, stats["processed"], test.ShouldEqual, int64(0))
		test.That(t, stats["latency_p95_ms"], test.ShouldEqual, 0.0)
	})

	t.Run("bad requests", func(t *testing.T) {
		before := p.Resolution()
		for _, cmd := range []map[string]interface{}{
			{},
			{"command": 7},
			{"command": "spin"},
			{"command": CommandSetResolution, "n": 0},
			{"command": CommandSetResolution, "n": 8, "mode": "blur"},
			{"command": CommandSetResolution, "n": 8, "speed": 3},
			{"command": CommandSetResolution, "n": "eight"},
		} {
			_, err := p.DoCommand(ctx, cmd)
			test.That(t, err, test.ShouldNotBeNil)
		}
		test.That(t, p.Resolution(), test.ShouldResemble, before)
	})
}
