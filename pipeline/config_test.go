package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	goutils "go.viam.com/utils"
	"go.viam.com/utils/testutils"

	"go.viam.com/greenscreen/logging"
	"go.viam.com/greenscreen/rimage/reduce"
)

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		conf   Config
		errStr string
	}{
		{name: "empty", conf: Config{}},
		{name: "preset", conf: Config{Preset: "coarse", Mode: "center"}},
		{name: "explicit", conf: Config{ResolutionN: 20, ResolutionM: 10, StatsWindow: 5}},
		{name: "unknown preset", conf: Config{Preset: "mega"}, errStr: `unknown preset "mega"`},
		{name: "preset and n", conf: Config{Preset: "fine", ResolutionN: 3}, errStr: "cannot be combined"},
		{name: "negative n", conf: Config{ResolutionN: -1}, errStr: "resolution_n must be positive"},
		{name: "negative m", conf: Config{ResolutionN: 4, ResolutionM: -1}, errStr: "resolution_m cannot be negative"},
		{name: "m without n", conf: Config{ResolutionM: 4}, errStr: `"resolution_n" is required`},
		{name: "bad mode", conf: Config{Mode: "blur"}, errStr: `unknown reduction mode "blur"`},
		{name: "bad window", conf: Config{StatsWindow: -2}, errStr: "stats_window"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.conf.Validate("pipe")
			if tc.errStr == "" {
				test.That(t, err, test.ShouldBeNil)
				return
			}
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, `"pipe"`)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errStr)
		})
	}
}

func TestConfigResolution(t *testing.T) {
	res, err := (&Config{}).Resolution()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res, test.ShouldResemble, reduce.Resolution{N: 8, M: 8})

	res, err = (&Config{Preset: "coarse", Mode: "decimate"}).Resolution()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res, test.ShouldResemble, reduce.Resolution{N: 32, M: 53, Mode: reduce.ModeDecimate})

	res, err = (&Config{ResolutionN: 16}).Resolution()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res, test.ShouldResemble, reduce.Resolution{N: 16})

	test.That(t, (&Config{}).statsWindow(), test.ShouldEqual, DefaultStatsWindow)
	test.That(t, (&Config{StatsWindow: 3}).statsWindow(), test.ShouldEqual, 3)
}

func writeConfig(t *testing.T, path, contents string) {
	t.Helper()
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "good.json")
	writeConfig(t, path, `{"resolution_n": 32, "resolution_m": 53, "mode": "center", "stats_window": 10}`)
	conf, err := ReadConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &Config{ResolutionN: 32, ResolutionM: 53, Mode: "center", StatsWindow: 10})

	path = filepath.Join(dir, "invalid.json")
	writeConfig(t, path, `{"preset": "tiny"}`)
	_, err = ReadConfig(path)
	test.That(t, err, test.ShouldNotBeNil)

	path = filepath.Join(dir, "garbage.json")
	writeConfig(t, path, `{"preset": `)
	_, err = ReadConfig(path)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ReadConfig(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWatchConfig(t *testing.T) {
	logger := logging.NewTestLogger(t)
	p := newTestPipeline(t, nil)
	path := filepath.Join(t.TempDir(), "pipeline.json")
	writeConfig(t, path, `{"preset": "fine"}`)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	goutils.PanicCapturingGo(func() {
		done <- WatchConfig(ctx, path, p, logger)
	})

	// the watcher may not be registered yet, so keep rewriting until the change lands
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		writeConfig(t, path, `{"preset": "coarse", "mode": "center"}`)
		test.That(tb, p.Resolution(), test.ShouldResemble, reduce.Resolution{N: 32, M: 53, Mode: reduce.ModeCenter})
	})

	// an invalid config leaves the resolution alone
	writeConfig(t, path, `{"mode": "blur"}`)
	test.That(t, p.Resolution().Mode, test.ShouldEqual, reduce.ModeCenter)

	cancel()
	test.That(t, <-done, test.ShouldBeNil)
}
