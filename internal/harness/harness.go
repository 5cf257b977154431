// Package harness bundles the interception registry, recorder, waiter,
// direct-call client and UI driver into one per-test context. Nothing in a
// Test outlives Close, so rules never leak into the next test.
package harness

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"sea-intercept/internal/exchange"
	"sea-intercept/internal/executor"
	"sea-intercept/internal/fixture"
	"sea-intercept/internal/intercept"
	"sea-intercept/internal/logger"
	"sea-intercept/internal/match"
	"sea-intercept/internal/ui"
)

type Options struct {
	Name string

	// Fixtures is shared by every Test of a run.
	Fixtures *fixture.Resolver
	// Base carries intercepted traffic to the network. Defaults to
	// http.DefaultTransport.
	Base http.RoundTripper
	// Direct sends test-to-API calls. Built from HTTPTimeout when nil.
	Direct *executor.Client
	UI     ui.Driver

	WaitTimeout time.Duration
	HTTPTimeout time.Duration

	// Proxy starts a loopback forward proxy so out-of-process drivers can
	// route through the registry.
	Proxy bool

	Log logger.Logger
}

type Test struct {
	name     string
	rec      *exchange.Recorder
	reg      *intercept.Registry
	tr       *intercept.Transport
	waiter   *exchange.Waiter
	direct   *executor.Client
	app      *executor.Client
	driver   ui.Driver
	fixtures *fixture.Resolver

	proxy    *http.Server
	proxyURL string

	log logger.Logger
}

func New(opts Options) (*Test, error) {
	l := opts.Log
	if l == nil {
		l = logger.NewNop()
	}
	if opts.Name != "" {
		l = l.With("test", opts.Name)
	}
	res := opts.Fixtures
	if res == nil {
		res = fixture.NewResolver(fixture.MapStore{}, l)
	}

	rec := exchange.NewRecorder(l)
	reg := intercept.NewRegistry(rec, l)
	tr := &intercept.Transport{Registry: reg, Recorder: rec, Fixtures: res, Base: opts.Base, Log: l}

	t := &Test{
		name:     opts.Name,
		rec:      rec,
		reg:      reg,
		tr:       tr,
		waiter:   exchange.NewWaiter(rec, opts.WaitTimeout, l),
		direct:   opts.Direct,
		app:      executor.NewWithHTTPClient(tr.Client(), opts.HTTPTimeout, l),
		driver:   opts.UI,
		fixtures: res,
		log:      l,
	}
	if t.direct == nil {
		t.direct = executor.New(opts.HTTPTimeout, 0, l)
	}
	if t.driver == nil {
		t.driver = ui.Nop{}
	}

	if opts.Proxy {
		if err := t.startProxy(); err != nil {
			return nil, err
		}
		if pa, ok := t.driver.(ui.ProxyAware); ok {
			t.driver = pa.WithProxy(t.proxyURL)
		}
	}
	return t, nil
}

func (t *Test) startProxy() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("proxy listen: %w", err)
	}
	t.proxy = &http.Server{Handler: t.tr.ProxyHandler(), ReadHeaderTimeout: 10 * time.Second}
	t.proxyURL = "http://" + ln.Addr().String()
	go func() {
		if err := t.proxy.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Error("proxy stopped", "err", err)
		}
	}()
	t.log.Debug("proxy listening", "url", t.proxyURL)
	return nil
}

func (t *Test) Name() string { return t.name }

// Intercept installs a rule for method+url. A nil behavior passes through.
func (t *Test) Intercept(method, url string, b intercept.Behavior, alias string) error {
	p, err := match.New(method, url)
	if err != nil {
		return err
	}
	return t.reg.Install(p, b, alias)
}

func (t *Test) Rules() []intercept.Rule { return t.reg.Rules() }

// Client is the application-side HTTP client: every call it makes is
// subject to the installed rules.
func (t *Test) Client() *http.Client { return t.tr.Client() }

// Transport exposes the round tripper for callers that build their own
// client.
func (t *Test) Transport() *intercept.Transport { return t.tr }

// AppRequest sends a call as the application would, through interception.
// Error statuses are not turned into errors.
func (t *Test) AppRequest(ctx context.Context, method, url string, body any, headers map[string]string) (*executor.Result, error) {
	return t.app.Send(ctx, method, url, body, executor.Options{
		FailOnErrorStatus: executor.Bool(false),
		Headers:           headers,
	})
}

// Wait blocks until the next exchange for alias finishes. A timeout <= 0
// uses the configured default.
func (t *Test) Wait(ctx context.Context, alias string, timeout time.Duration) (exchange.Exchange, error) {
	return t.waiter.Await(ctx, alias, timeout)
}

// Request is a direct call from the test to the API, outside interception.
func (t *Test) Request(ctx context.Context, method, url string, body any, opts executor.Options) (*executor.Result, error) {
	return t.direct.Send(ctx, method, url, body, opts)
}

func (t *Test) Fixture(name string) (*fixture.Fixture, error) { return t.fixtures.Resolve(name) }

func (t *Test) UI() ui.Driver { return t.driver }

// Trigger runs a UI action.
func (t *Test) Trigger(ctx context.Context, action string, args ...string) error {
	return t.driver.Do(ctx, action, args...)
}

func (t *Test) RenderedText(ctx context.Context, selector string) (string, error) {
	return t.driver.ReadRenderedText(ctx, selector)
}

// Exchange returns the latest exchange recorded under alias.
func (t *Test) Exchange(alias string) (exchange.Exchange, bool) { return t.rec.Get(alias) }

func (t *Test) History() []exchange.Exchange { return t.rec.History() }

// ProxyURL is empty unless Options.Proxy was set.
func (t *Test) ProxyURL() string { return t.proxyURL }

// Close ends the test: rules and recordings are dropped and the proxy is
// stopped.
func (t *Test) Close() error {
	t.reg.Clear()
	t.rec.Reset()
	if t.proxy != nil {
		return t.proxy.Close()
	}
	return nil
}
