// Package reduce lowers the apparent resolution of a packed 4-byte-per-pixel image in place,
// either by averaging blocks, by replicating one pixel across a tile, or by sampling the
// middle of each block.
package reduce

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// FullResolution as the block count N turns block reduction into the identity.
const FullResolution = 512

// Mode selects the reduction algorithm.
type Mode int

const (
	// ModeAverage replaces every block with its per-channel mean.
	ModeAverage Mode = iota
	// ModeDecimate copies the first pixel of every tile over the rest of the tile.
	ModeDecimate
	// ModeCenter replaces every block with the pixel in the middle of its first row.
	ModeCenter
)

var modeNames = map[Mode]string{
	ModeAverage:  "average",
	ModeDecimate: "decimate",
	ModeCenter:   "center",
}

func (mode Mode) String() string {
	if name, ok := modeNames[mode]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(mode))
}

// ParseMode parses a mode name. An empty name is ModeAverage.
func ParseMode(name string) (Mode, error) {
	if name == "" {
		return ModeAverage, nil
	}
	for mode, modeName := range modeNames {
		if strings.EqualFold(name, modeName) {
			return mode, nil
		}
	}
	return ModeAverage, errors.Errorf("unknown reduction mode %q", name)
}

// ModeFromAverageFlag maps the averaging toggle onto a mode.
func ModeFromAverageFlag(avg bool) Mode {
	if avg {
		return ModeAverage
	}
	return ModeDecimate
}

// Toggle flips between averaging and decimation. Center sampling toggles to averaging.
func (mode Mode) Toggle() Mode {
	if mode == ModeAverage {
		return ModeDecimate
	}
	return ModeAverage
}

// Resolution is the block granularity and algorithm applied to a frame. N and M are the
// number of blocks across and down, not the block size. M of zero means M equals N.
type Resolution struct {
	N    int
	M    int
	Mode Mode
}

// Validate returns an error for non-positive block counts or an unknown mode.
func (res Resolution) Validate() error {
	if res.N <= 0 {
		return errors.Errorf("resolution n must be positive, got %d", res.N)
	}
	if res.M < 0 {
		return errors.Errorf("resolution m cannot be negative, got %d", res.M)
	}
	if _, ok := modeNames[res.Mode]; !ok {
		return errors.Errorf("unknown reduction mode %d", int(res.Mode))
	}
	return nil
}

// IsIdentity returns whether applying res leaves every buffer unchanged.
func (res Resolution) IsIdentity() bool {
	return res.Mode != ModeDecimate && res.N == FullResolution
}

func (res Resolution) String() string {
	return fmt.Sprintf("%dx%d %s", res.N, res.M, res.Mode)
}

// Preset is a named block granularity.
type Preset struct {
	Name string
	N    int
	M    int
}

var presets = map[string]Preset{
	"fine":   {Name: "fine", N: 8, M: 8},
	"coarse": {Name: "coarse", N: 32, M: 53},
	"full":   {Name: "full", N: FullResolution, M: 424},
}

// DefaultPreset is the granularity a new pipeline starts with.
const DefaultPreset = "fine"

// LookupPreset returns the preset with the given name.
func LookupPreset(name string) (Preset, bool) {
	preset, ok := presets[strings.ToLower(name)]
	return preset, ok
}

// Presets returns every preset sorted by name.
func Presets() []Preset {
	out := lo.Values(presets)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// WithMode turns the preset into a resolution using mode.
func (p Preset) WithMode(mode Mode) Resolution {
	return Resolution{N: p.N, M: p.M, Mode: mode}
}
