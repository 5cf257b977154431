package intercept

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"sea-intercept/internal/exchange"
	"sea-intercept/internal/expect"
	"sea-intercept/internal/fixture"
	"sea-intercept/internal/logger"
)

// Transport is the http.RoundTripper an application under test is given.
// Every request goes through Registry.Dispatch; matched requests are
// recorded on Recorder and executed according to their behavior.
type Transport struct {
	Registry *Registry
	Recorder *exchange.Recorder
	Fixtures *fixture.Resolver
	Base     http.RoundTripper
	Log      logger.Logger
}

// Client returns an *http.Client that routes through t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	out, err := readRequest(req)
	if err != nil {
		return nil, err
	}

	d := t.Registry.Dispatch(out)
	if !d.Matched {
		return t.send(req, out)
	}
	if d.Err != nil {
		return nil, d.Err
	}

	alias := d.Rule.Alias
	l := t.logger().With("alias", alias, "method", out.Method, "url", out.URL)

	switch b := d.Behavior.(type) {
	case Mock:
		resp, body, err := t.mock(req, b)
		if err != nil {
			t.Recorder.Fail(alias, err)
			return nil, err
		}
		t.Recorder.Complete(alias, &exchange.Response{
			StatusCode: resp.StatusCode,
			Headers:    resp.Header.Clone(),
			Body:       body,
		})
		l.Debug("request mocked", "fixture", b.Fixture, "status", resp.StatusCode, "duration", time.Since(start))
		return resp, nil
	case Rewrite:
		if err := rewrite(alias, b, out); err != nil {
			t.Recorder.Fail(alias, err)
			return nil, err
		}
		t.Recorder.Amend(alias, out)
		l.Debug("request rewritten", "bytes", len(out.Body))
	}

	resp, err := t.send(req, out)
	if err != nil {
		t.Recorder.Fail(alias, err)
		l.Debug("request failed", "err", err)
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		err = fmt.Errorf("read response: %w", err)
		t.Recorder.Fail(alias, err)
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	t.Recorder.Complete(alias, &exchange.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Body:       body,
	})
	l.Debug("request passed", "status", resp.StatusCode, "duration", time.Since(start))
	return resp, nil
}

func (t *Transport) send(orig *http.Request, out *exchange.Request) (*http.Response, error) {
	var body io.Reader
	if len(out.Body) > 0 {
		body = bytes.NewReader(out.Body)
	}
	req, err := http.NewRequestWithContext(orig.Context(), out.Method, out.URL, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header = out.Headers.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	req.Header.Del("Content-Length")
	return t.base().RoundTrip(req)
}

func (t *Transport) mock(req *http.Request, m Mock) (*http.Response, []byte, error) {
	var body []byte
	switch {
	case m.Fixture != "":
		if t.Fixtures == nil {
			return nil, nil, errors.New("mock: no fixture resolver configured")
		}
		f, err := t.Fixtures.Resolve(m.Fixture)
		if err != nil {
			return nil, nil, err
		}
		body = f.Raw
	case m.Body != nil:
		switch x := m.Body.(type) {
		case string:
			body = []byte(x)
		case []byte:
			body = x
		default:
			b, err := json.Marshal(x)
			if err != nil {
				return nil, nil, fmt.Errorf("mock body: %w", err)
			}
			body = b
		}
	}

	status := m.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	for k, v := range m.Headers {
		hdr.Set(k, v)
	}
	hdr.Set("Content-Length", strconv.Itoa(len(body)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        hdr,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, body, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) logger() logger.Logger {
	if t.Log != nil {
		return t.Log
	}
	return logger.NewNop()
}

// readRequest drains req.Body into a standalone exchange.Request.
func readRequest(req *http.Request) (*exchange.Request, error) {
	out := &exchange.Request{
		Method:  req.Method,
		URL:     req.URL.String(),
		Headers: req.Header.Clone(),
	}
	if out.Method == "" {
		out.Method = http.MethodGet
	}
	if out.Headers == nil {
		out.Headers = http.Header{}
	}
	if req.Body != nil && req.Body != http.NoBody {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		out.Body = b
	}
	return out, nil
}

func rewrite(alias string, b Rewrite, req *exchange.Request) (err error) {
	if b.Mutate == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &expect.AssertionError{
				What:     "rewrite @" + alias,
				Expected: "mutator to succeed",
				Actual:   fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	if mErr := b.Mutate(req); mErr != nil {
		return &expect.AssertionError{
			What:     "rewrite @" + alias,
			Expected: "mutator to succeed",
			Actual:   mErr.Error(),
			Err:      mErr,
		}
	}
	return nil
}
