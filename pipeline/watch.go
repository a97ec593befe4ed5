package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/greenscreen/logging"
)

// configSettle is how long the config file must stay quiet before it is re-read. Editors often
// write a file in several steps.
const configSettle = 50 * time.Millisecond

// WatchConfig re-reads the config at path whenever it is written and applies it to p. Invalid
// configs are logged and ignored, leaving the running resolution alone. The directory is
// watched rather than the file so editors that replace the file are noticed too.
//
// WatchConfig blocks until ctx is done.
func WatchConfig(ctx context.Context, path string, p *Pipeline, logger logging.Logger) (err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "cannot watch pipeline config")
	}
	defer func() {
		err = multierr.Combine(err, watcher.Close())
	}()
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return errors.Wrapf(err, "cannot watch %q", path)
	}

	reload := func() {
		if ctx.Err() != nil {
			return
		}
		conf, err := ReadConfig(absPath)
		if err != nil {
			logger.Warnw("ignoring pipeline config change", "path", path, "error", err)
			return
		}
		if err := p.ApplyConfig(conf); err != nil {
			logger.Warnw("cannot apply pipeline config", "path", path, "error", err)
			return
		}
		logger.Debugw("reloaded pipeline config", "path", path, "resolution", p.Resolution().String())
	}
	debounced := debounce.New(configSettle)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounced(reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("config watcher error", "error", err)
		}
	}
}
