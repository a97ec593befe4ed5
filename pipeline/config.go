package pipeline

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/greenscreen/rimage/reduce"
)

// DefaultStatsWindow is the number of frames latency statistics are computed over.
const DefaultStatsWindow = 100

// Config describes how a pipeline reduces frames. Either Preset or ResolutionN picks the
// block granularity; with neither set the default preset is used.
type Config struct {
	Preset      string `json:"preset,omitempty"`
	ResolutionN int    `json:"resolution_n,omitempty"`
	ResolutionM int    `json:"resolution_m,omitempty"`
	Mode        string `json:"mode,omitempty"`
	StatsWindow int    `json:"stats_window,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Preset != "" {
		if _, ok := reduce.LookupPreset(conf.Preset); !ok {
			return goutils.NewConfigValidationError(path, errors.Errorf("unknown preset %q", conf.Preset))
		}
		if conf.ResolutionN != 0 || conf.ResolutionM != 0 {
			return goutils.NewConfigValidationError(path, errors.New("preset cannot be combined with resolution_n or resolution_m"))
		}
	}
	if conf.ResolutionN < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("resolution_n must be positive, got %d", conf.ResolutionN))
	}
	if conf.ResolutionM < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("resolution_m cannot be negative, got %d", conf.ResolutionM))
	}
	if conf.ResolutionM != 0 && conf.ResolutionN == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "resolution_n")
	}
	if _, err := reduce.ParseMode(conf.Mode); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if conf.StatsWindow < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("stats_window cannot be negative, got %d", conf.StatsWindow))
	}
	return nil
}

// Resolution returns the resolution the config selects. The config must be valid.
func (conf *Config) Resolution() (reduce.Resolution, error) {
	mode, err := reduce.ParseMode(conf.Mode)
	if err != nil {
		return reduce.Resolution{}, err
	}
	if conf.ResolutionN != 0 {
		return reduce.Resolution{N: conf.ResolutionN, M: conf.ResolutionM, Mode: mode}, nil
	}

	name := conf.Preset
	if name == "" {
		name = reduce.DefaultPreset
	}
	preset, ok := reduce.LookupPreset(name)
	if !ok {
		return reduce.Resolution{}, errors.Errorf("unknown preset %q", name)
	}
	return preset.WithMode(mode), nil
}

func (conf *Config) statsWindow() int {
	if conf.StatsWindow == 0 {
		return DefaultStatsWindow
	}
	return conf.StatsWindow
}

// ReadConfig reads and validates a JSON config file.
func ReadConfig(path string) (*Config, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read pipeline config")
	}
	var conf Config
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, errors.Wrapf(err, "cannot parse pipeline config %q", path)
	}
	if err := conf.Validate("pipeline"); err != nil {
		return nil, err
	}
	return &conf, nil
}
