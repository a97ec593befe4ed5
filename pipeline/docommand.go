package pipeline

import (
	"context"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/greenscreen/rimage/reduce"
	"go.viam.com/greenscreen/utils"
)

// Commands understood by DoCommand. The command name is read from the "command" key.
const (
	CommandSetResolution = "set_resolution"
	CommandToggleMode    = "toggle_mode"
	CommandPreset        = "preset"
	CommandStats         = "stats"
)

type setResolutionArgs struct {
	Command string  `json:"command"`
	N       int     `json:"n"`
	M       int     `json:"m"`
	Mode    *string `json:"mode"`
}

type presetArgs struct {
	Command string `json:"command"`
	Name    string `json:"name"`
}

func decodeArgs(cmd map[string]interface{}, to interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      to,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(cmd)
}

// DoCommand lets a UI adjust the pipeline while it runs. Every reply carries the resolution in
// effect after the command.
func (p *Pipeline) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	rawName, ok := cmd["command"]
	if !ok {
		return nil, errors.New(`command map needs a "command" key`)
	}
	name, ok := rawName.(string)
	if !ok {
		return nil, utils.NewUnexpectedTypeError(name, rawName)
	}

	reply := map[string]interface{}{}
	switch name {
	case CommandSetResolution:
		var args setResolutionArgs
		if err := decodeArgs(cmd, &args); err != nil {
			return nil, errors.Wrap(err, CommandSetResolution)
		}
		res := reduce.Resolution{N: args.N, M: args.M, Mode: p.Resolution().Mode}
		if args.Mode != nil {
			mode, err := reduce.ParseMode(*args.Mode)
			if err != nil {
				return nil, err
			}
			res.Mode = mode
		}
		if err := p.SetResolution(res); err != nil {
			return nil, err
		}
	case CommandToggleMode:
		res := p.Resolution()
		res.Mode = res.Mode.Toggle()
		if err := p.SetResolution(res); err != nil {
			return nil, err
		}
	case CommandPreset:
		var args presetArgs
		if err := decodeArgs(cmd, &args); err != nil {
			return nil, errors.Wrap(err, CommandPreset)
		}
		preset, ok := reduce.LookupPreset(args.Name)
		if !ok {
			return nil, errors.Errorf("unknown preset %q", args.Name)
		}
		if err := p.SetResolution(preset.WithMode(p.Resolution().Mode)); err != nil {
			return nil, err
		}
	case CommandStats:
		reply["stats"] = p.Stats().Map()
	default:
		return nil, utils.NewUnknownCommandError(name)
	}

	res := p.Resolution()
	reply["n"] = res.N
	reply["m"] = res.M
	reply["mode"] = res.Mode.String()
	return reply, nil
}
