package contract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	"sea-intercept/internal/exchange"
)

// Route identifies the OpenAPI operation a call was matched to.
type Route struct {
	Method string
	Path   string
}

// Validator checks direct and intercepted traffic against an OpenAPI
// document and remembers which operations were exercised.
type Validator struct {
	doc    *openapi3.T
	router routers.Router

	mu      sync.Mutex
	covered map[string]map[string]bool // method -> pathTemplate -> true
}

func LoadFromFile(path string) (*Validator, error) {
	loader := &openapi3.Loader{IsExternalRefsAllowed: true}
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return build(doc)
}

func LoadFromBytes(b []byte) (*Validator, error) {
	loader := &openapi3.Loader{IsExternalRefsAllowed: true}
	doc, err := loader.LoadFromData(b)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return build(doc)
}

func build(doc *openapi3.T) (*Validator, error) {
	// Strict: an invalid OpenAPI document fails here with a clear message.
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate spec: %w", err)
	}
	r, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	return &Validator{doc: doc, router: r, covered: map[string]map[string]bool{}}, nil
}

func (v *Validator) Doc() *openapi3.T { return v.doc }

// Covered returns a copy of the operations seen by a validation that found
// a route.
func (v *Validator) Covered() map[string]map[string]bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]map[string]bool, len(v.covered))
	for m, paths := range v.covered {
		out[m] = make(map[string]bool, len(paths))
		for p := range paths {
			out[m][p] = true
		}
	}
	return out
}

func (v *Validator) cover(r Route) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.covered[r.Method] == nil {
		v.covered[r.Method] = map[string]bool{}
	}
	v.covered[r.Method][r.Path] = true
}

// ValidateResponse validates a response to method+rawURL.
func (v *Validator) ValidateResponse(ctx context.Context, method, rawURL string, resp *exchange.Response) (Route, error) {
	in, route, err := v.input(method, rawURL, nil, nil)
	if err != nil {
		return route, err
	}
	v.cover(route)

	rsp := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: in,
		Status:                 resp.StatusCode,
		Header:                 resp.Headers,
		Body:                   io.NopCloser(bytes.NewReader(resp.Body)),
		Options:                &openapi3filter.Options{},
	}
	return route, openapi3filter.ValidateResponse(ctx, rsp)
}

// ValidateRequest validates a recorded request, e.g. after a rewrite.
func (v *Validator) ValidateRequest(ctx context.Context, req *exchange.Request) (Route, error) {
	in, route, err := v.input(req.Method, req.URL, req.Headers, req.Body)
	if err != nil {
		return route, err
	}
	v.cover(route)
	return route, openapi3filter.ValidateRequest(ctx, in)
}

// ValidateExchange validates both halves of a finished exchange.
func (v *Validator) ValidateExchange(ctx context.Context, ex exchange.Exchange) (Route, error) {
	if ex.Request == nil || ex.Response == nil {
		return Route{}, fmt.Errorf("exchange %s is %s, nothing to validate", ex.Alias, ex.State)
	}
	route, err := v.ValidateRequest(ctx, ex.Request)
	if err != nil {
		return route, fmt.Errorf("request: %w", err)
	}
	if _, err := v.ValidateResponse(ctx, ex.Request.Method, ex.Request.URL, ex.Response); err != nil {
		return route, fmt.Errorf("response: %w", err)
	}
	return route, nil
}

func (v *Validator) input(method, rawURL string, hdr http.Header, body []byte) (*openapi3filter.RequestValidationInput, Route, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, Route{}, fmt.Errorf("parse url: %w", err)
	}
	if hdr == nil {
		hdr = http.Header{}
	}
	req := &http.Request{Method: method, URL: u, Header: hdr}
	if body != nil {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
	}

	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		return nil, Route{}, fmt.Errorf("route not found: %w", err)
	}
	return &openapi3filter.RequestValidationInput{
		Request:     req,
		PathParams:  pathParams,
		QueryParams: u.Query(),
		Route:       route,
		Options:     &openapi3filter.Options{AuthenticationFunc: openapi3filter.NoopAuthenticationFunc},
	}, Route{Method: route.Method, Path: route.Path}, nil
}
