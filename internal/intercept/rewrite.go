package intercept

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"

	"github.com/tidwall/sjson"

	"sea-intercept/internal/exchange"
)

// SetFields returns a Rewrite that sets each path (sjson syntax, e.g.
// "name" or "user.tags.0") in a JSON request body. An empty body starts
// as {}. Paths are applied in sorted order.
func SetFields(fields map[string]any) Rewrite {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Rewrite{Mutate: func(req *exchange.Request) error {
		body := req.Body
		if len(bytes.TrimSpace(body)) == 0 {
			body = []byte("{}")
		}
		for _, k := range keys {
			var err error
			body, err = sjson.SetBytes(body, k, fields[k])
			if err != nil {
				return fmt.Errorf("set %s: %w", k, err)
			}
		}
		req.Body = body
		if req.Headers == nil {
			req.Headers = http.Header{}
		}
		if req.Headers.Get("Content-Type") == "" {
			req.Headers.Set("Content-Type", "application/json")
		}
		return nil
	}}
}

// DeleteFields returns a Rewrite that removes paths from a JSON body.
func DeleteFields(paths ...string) Rewrite {
	return Rewrite{Mutate: func(req *exchange.Request) error {
		body := req.Body
		for _, p := range paths {
			var err error
			body, err = sjson.DeleteBytes(body, p)
			if err != nil {
				return fmt.Errorf("delete %s: %w", p, err)
			}
		}
		req.Body = body
		return nil
	}}
}

// Chain runs rewrites in order.
func Chain(rs ...Rewrite) Rewrite {
	return Rewrite{Mutate: func(req *exchange.Request) error {
		for _, r := range rs {
			if r.Mutate == nil {
				continue
			}
			if err := r.Mutate(req); err != nil {
				return err
			}
		}
		return nil
	}}
}
