package ui

import (
	"context"
	"errors"
)

var ErrNoDriver = errors.New("no UI driver configured")

// Driver is the UI-automation collaborator: it performs opaque actions
// (clicks, navigation) and reads rendered text for assertions.
type Driver interface {
	Do(ctx context.Context, action string, args ...string) error
	ReadRenderedText(ctx context.Context, selector string) (string, error)
}

// Nop is the driver used when a suite never touches the UI.
type Nop struct{}

func (Nop) Do(context.Context, string, ...string) error { return ErrNoDriver }

func (Nop) ReadRenderedText(context.Context, string) (string, error) { return "", ErrNoDriver }

// ProxyAware drivers can be pointed at the interception proxy so the
// traffic they cause is routed through the registry.
type ProxyAware interface {
	WithProxy(proxyURL string) Driver
}
