package expect

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"
)

// AssertionError carries expected vs actual verbatim so the runner can
// attach it to the failing step.
type AssertionError struct {
	What     string
	Expected any
	Actual   any
	Diff     string
	Err      error
}

func (e *AssertionError) Error() string {
	msg := fmt.Sprintf("%s: expected %s, got %s", e.What, show(e.Expected), show(e.Actual))
	if e.Diff != "" {
		msg += "\n" + e.Diff
	}
	return msg
}

func (e *AssertionError) Unwrap() error { return e.Err }

// Equal compares two schema-less values. Numbers compare by value, so a
// YAML int 2 equals a JSON 2.0.
func Equal(what string, want, got any) error {
	w, g := normalize(want), normalize(got)
	if cmp.Equal(w, g) {
		return nil
	}
	e := &AssertionError{What: what, Expected: want, Actual: got}
	if isComposite(w) || isComposite(g) {
		e.Diff = cmp.Diff(w, g)
	}
	return e
}

func Status(got, want int) error {
	if got != want {
		return &AssertionError{What: "status", Expected: want, Actual: got}
	}
	return nil
}

// HasProperty checks a gjson path exists in a JSON body.
func HasProperty(body []byte, path string) error {
	if !gjson.ValidBytes(body) {
		return &AssertionError{What: "property " + path, Expected: "JSON body", Actual: truncate(string(body), 120)}
	}
	if !gjson.GetBytes(body, path).Exists() {
		return &AssertionError{What: "property " + path, Expected: "to exist", Actual: "missing"}
	}
	return nil
}

// PropertyEquals checks the value at a gjson path.
func PropertyEquals(body []byte, path string, want any) error {
	if err := HasProperty(body, path); err != nil {
		return err
	}
	return Equal("property "+path, want, gjson.GetBytes(body, path).Value())
}

func Contains(text, sub string) error {
	if !strings.Contains(text, sub) {
		return &AssertionError{What: "text", Expected: "to contain " + quote(sub), Actual: truncate(text, 200)}
	}
	return nil
}

// ContainsAll is the conjunctive form of Contains and reports every missing
// substring at once.
func ContainsAll(text string, subs ...string) error {
	var missing []string
	for _, s := range subs {
		if !strings.Contains(text, s) {
			missing = append(missing, quote(s))
		}
	}
	if len(missing) > 0 {
		return &AssertionError{
			What:     "text",
			Expected: "to contain " + strings.Join(missing, " and "),
			Actual:   truncate(text, 200),
		}
	}
	return nil
}

// TextAssertion chains containment checks; the first failure sticks.
//
//	err := expect.Text(rendered).Contains(email).And(first).And(last).Err()
type TextAssertion struct {
	text string
	err  error
}

func Text(s string) *TextAssertion { return &TextAssertion{text: s} }

func (t *TextAssertion) Contains(sub string) *TextAssertion {
	if t.err == nil {
		t.err = Contains(t.text, sub)
	}
	return t
}

func (t *TextAssertion) And(sub string) *TextAssertion { return t.Contains(sub) }

func (t *TextAssertion) Err() error { return t.err }

func normalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = normalize(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = normalize(x[i])
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	}
	// anything else goes through JSON to land on the same shapes
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out any
	if json.Unmarshal(b, &out) != nil {
		return fmt.Sprint(v)
	}
	return out
}

func isComposite(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func show(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func quote(s string) string { return fmt.Sprintf("%q", s) }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
