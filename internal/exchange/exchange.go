package exchange

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

type State string

const (
	Pending   State = "pending"
	Completed State = "completed"
	Failed    State = "failed"
)

// Request is an outgoing call as seen by the interception layer. Body is
// the raw payload; a Rewrite behavior may replace it before it is sent.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := &Request{Method: r.Method, URL: r.URL, Headers: r.Headers.Clone()}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return c
}

// JSON reads a gjson path from the body.
func (r *Request) JSON(path string) gjson.Result { return gjson.GetBytes(r.Body, path) }

type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	c := &Response{StatusCode: r.StatusCode, Headers: r.Headers.Clone()}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return c
}

// JSON reads a gjson path from the body, e.g. "data.id".
func (r *Response) JSON(path string) gjson.Result { return gjson.GetBytes(r.Body, path) }

// Decode parses the body into a schema-less value.
func (r *Response) Decode() (any, error) {
	var v any
	if len(r.Body) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Exchange is one intercepted request and, once it arrives, its response.
type Exchange struct {
	ID         string
	Alias      string
	State      State
	Request    *Request
	Response   *Response
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time

	consumed bool
}

// Duration is zero while the exchange is pending.
func (e Exchange) Duration() time.Duration {
	if e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

func (e *Exchange) snapshot() Exchange {
	c := *e
	c.Request = e.Request.Clone()
	c.Response = e.Response.Clone()
	return c
}
