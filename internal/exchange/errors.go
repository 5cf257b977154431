package exchange

import (
	"fmt"
	"time"
)

// AliasConflictError means Begin was called while the alias still had a
// pending exchange.
type AliasConflictError struct {
	Alias string
}

func (e *AliasConflictError) Error() string {
	return fmt.Sprintf("alias %q already has a pending exchange", e.Alias)
}

type WaitTimeoutError struct {
	Alias   string
	Timeout time.Duration
	Elapsed time.Duration
	// Started reports whether a matching request was seen at all.
	Started bool
}

func (e *WaitTimeoutError) Error() string {
	what := "no request matched"
	if e.Started {
		what = "request never completed"
	}
	return fmt.Sprintf("timed out waiting for @%s after %s (timeout %s): %s",
		e.Alias, e.Elapsed.Round(time.Millisecond), e.Timeout, what)
}

type ExchangeFailedError struct {
	Alias string
	Err   error
}

func (e *ExchangeFailedError) Error() string {
	return fmt.Sprintf("exchange @%s failed: %v", e.Alias, e.Err)
}

func (e *ExchangeFailedError) Unwrap() error { return e.Err }
