package exchange

import (
	"context"
	"fmt"
	"time"

	"sea-intercept/internal/logger"
)

const DefaultWaitTimeout = 5 * time.Second

// Waiter suspends a test step until an aliased exchange finishes.
type Waiter struct {
	rec            *Recorder
	defaultTimeout time.Duration
	log            logger.Logger
}

func NewWaiter(rec *Recorder, defaultTimeout time.Duration, l logger.Logger) *Waiter {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultWaitTimeout
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &Waiter{rec: rec, defaultTimeout: defaultTimeout, log: l}
}

// Await blocks until alias has a finished exchange that no earlier Await
// returned, so two waits on one alias observe two calls. A non-positive
// timeout means the default. Giving up does not cancel the underlying
// call; its late completion is still recorded but is not handed to the
// next Await.
func (w *Waiter) Await(ctx context.Context, alias string, timeout time.Duration) (Exchange, error) {
	if timeout <= 0 {
		timeout = w.defaultTimeout
	}
	start := time.Now()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		ex, started, changed := w.rec.take(alias)
		if ex != nil {
			w.log.Debug("wait satisfied", "alias", alias, "state", ex.State, "waited", time.Since(start))
			if ex.State == Failed {
				return *ex, &ExchangeFailedError{Alias: alias, Err: ex.Err}
			}
			return *ex, nil
		}

		select {
		case <-changed:
		case <-timer.C:
			err := &WaitTimeoutError{Alias: alias, Timeout: timeout, Elapsed: time.Since(start), Started: started}
			n := w.rec.abandon(alias)
			w.log.Warn("wait timed out", "alias", alias, "timeout", timeout, "started", started, "abandoned", n)
			return Exchange{}, err
		case <-ctx.Done():
			w.rec.abandon(alias)
			return Exchange{}, fmt.Errorf("wait @%s: %w", alias, ctx.Err())
		}
	}
}
