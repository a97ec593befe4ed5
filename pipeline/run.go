package pipeline

import (
	"context"

	"github.com/pkg/errors"
)

// Run processes frame sets from frames until the channel is closed or ctx is done, handing
// every result to sink. It is the channel's only consumer. Frame sets missing a stream are
// logged and skipped; any other processing or sink error stops the run.
//
// Run returns nil when frames is closed and ctx.Err() when cancelled.
func (p *Pipeline) Run(ctx context.Context, frames <-chan FrameSet, sink func(Result) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fs, ok := <-frames:
			if !ok {
				return nil
			}
			result, err := p.Process(ctx, fs)
			if err != nil {
				if errors.Is(err, ErrMissingFrame) {
					p.logger.Warnw("dropping incomplete frame set", "error", err)
					continue
				}
				return err
			}
			if sink == nil {
				continue
			}
			if err := sink(result); err != nil {
				return errors.Wrap(err, "frame sink failed")
			}
		}
	}
}
