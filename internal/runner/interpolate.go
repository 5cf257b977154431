package runner

import (
	"encoding/json"
	"regexp"
	"strings"

	"sea-intercept/internal/ir"
)

var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandRequest(rq ir.Request, vars map[string]string) ir.Request {
	rq.URL = interpolate(rq.URL, vars)
	if rq.Headers != nil {
		h := make(map[string]string, len(rq.Headers))
		for k, v := range rq.Headers {
			h[k] = interpolate(v, vars)
		}
		rq.Headers = h
	}
	rq.Body = walkInterpolate(rq.Body, vars)
	rq.Method = strings.ToUpper(rq.Method)
	return rq
}

func expandIntercept(ic ir.Intercept, vars map[string]string) ir.Intercept {
	ic.URL = interpolate(ic.URL, vars)
	if ic.Mock != nil {
		m := *ic.Mock
		m.Fixture = interpolate(m.Fixture, vars)
		m.Body = walkInterpolate(m.Body, vars)
		ic.Mock = &m
	}
	if ic.Rewrite != nil {
		rw := *ic.Rewrite
		if rw.Set != nil {
			set := make(map[string]any, len(rw.Set))
			for k, v := range rw.Set {
				set[k] = walkInterpolate(v, vars)
			}
			rw.Set = set
		}
		ic.Rewrite = &rw
	}
	return ic
}

func walkInterpolate(v any, vars map[string]string) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return interpolate(x, vars)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = walkInterpolate(vv, vars)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = walkInterpolate(x[i], vars)
		}
		return out
	default:
		return v
	}
}

// ${KEY|default} supported; if missing and no default, leaves ${KEY} intact (so we can error clearly)
func interpolate(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(m string) string {
		inner := m[2 : len(m)-1]
		key, def := inner, ""
		if i := strings.Index(inner, "|"); i >= 0 {
			key, def = inner[:i], inner[i+1:]
		}
		if v, ok := vars[key]; ok && v != "" {
			return v
		}
		if def != "" {
			return def
		}
		return m
	})
}

func findUnresolved(s string) []string {
	var out []string
	for _, m := range varPattern.FindAllStringSubmatch(s, -1) {
		key := m[1]
		if i := strings.Index(key, "|"); i >= 0 {
			continue
		} // had default
		out = append(out, "${"+key+"}")
	}
	return out
}

func stringifyBody(b any) string {
	switch x := b.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		buf, err := json.MarshalIndent(x, "", "  ")
		if err != nil {
			raw, _ := json.Marshal(x)
			return string(raw)
		}
		return string(buf)
	}
}

func limitBody(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "\n...[truncated]..."
}
