package sensor

import (
	"context"
	"time"
)

// Relay forwards fixes and errors to cb until ctx is done or both channels
// are closed. Fixes with an invalid coordinate are reported as errors and
// ErrTimeout is reported each time opts.Timeout passes without a fix. Fixes
// are never dropped for their age.
func Relay(ctx context.Context, opts Options, fixes <-chan Position, errs <-chan error, cb Callbacks) {
	var timeout <-chan time.Time
	var timer *time.Timer
	if opts.Timeout > 0 {
		timer = time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	rearm := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(opts.Timeout)
	}

	for fixes != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-fixes:
			if !ok {
				fixes = nil
				continue
			}
			if err := p.Validate(); err != nil {
				emitError(cb, err)
				continue
			}
			rearm()
			if cb.OnPosition != nil {
				cb.OnPosition(p)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			emitError(cb, err)
		case <-timeout:
			emitError(cb, ErrTimeout)
			timer.Reset(opts.Timeout)
		}
	}
}

func emitError(cb Callbacks, err error) {
	if cb.OnError != nil && err != nil {
		cb.OnError(err)
	}
}
