package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sea-intercept/internal/exchange"
	"sea-intercept/internal/logger"
)

const DefaultTimeout = 10 * time.Second

// Result is what a direct call hands back to the caller. It is never
// recorded.
type Result = exchange.Response

// Options tune a single Send.
type Options struct {
	// FailOnErrorStatus turns a 4xx/5xx answer into *HTTPStatusError.
	// nil means true.
	FailOnErrorStatus *bool
	Headers           map[string]string
	Timeout           time.Duration
}

// Bool is a helper for Options.FailOnErrorStatus.
func Bool(b bool) *bool { return &b }

func (o Options) failOnStatus() bool {
	return o.FailOnErrorStatus == nil || *o.FailOnErrorStatus
}

// HTTPStatusError is returned for status >= 400 when the caller did not opt
// out. Body is kept so the caller can still inspect the answer.
type HTTPStatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// Client issues direct calls from the test to the API under test, bypassing
// interception unless built over an intercepting http.Client.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	log        logger.Logger
}

// New builds a Client with its own tuned transport.
func New(timeout time.Duration, maxIdle int, l logger.Logger) *Client {
	if maxIdle <= 0 {
		maxIdle = 128
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxIdle,
		MaxIdleConnsPerHost: maxIdle / 2,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return NewWithHTTPClient(&http.Client{Transport: tr}, timeout, l)
}

// NewWithHTTPClient wraps an existing client, e.g. one whose transport goes
// through the interception registry.
func NewWithHTTPClient(hc *http.Client, timeout time.Duration, l logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &Client{httpClient: hc, timeout: timeout, log: l}
}

// Send performs method url with body. body may be nil, a string, []byte or
// any JSON-encodable value.
func (c *Client) Send(ctx context.Context, method, url string, body any, opts Options) (*Result, error) {
	method = strings.ToUpper(method)
	tmo := opts.Timeout
	if tmo <= 0 {
		tmo = c.timeout
	}
	cctx, cancel := context.WithTimeout(ctx, tmo)
	defer cancel()

	rd, isJSON, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(cctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if isJSON {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	c.log.Debug("direct call", "method", method, "url", url, "status", resp.StatusCode,
		"elapsed", time.Since(start).String())

	res := &Result{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}
	if resp.StatusCode >= 400 && opts.failOnStatus() {
		return res, &HTTPStatusError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: data}
	}
	return res, nil
}

func encodeBody(b any) (io.Reader, bool, error) {
	switch x := b.(type) {
	case nil:
		return nil, false, nil
	case string:
		return strings.NewReader(x), false, nil
	case []byte:
		return bytes.NewReader(x), false, nil
	case json.RawMessage:
		return bytes.NewReader(x), true, nil
	default:
		buf, err := json.Marshal(x)
		if err != nil {
			return nil, false, fmt.Errorf("json marshal body: %w", err)
		}
		return bytes.NewReader(buf), true, nil
	}
}
