package match

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var (
	ErrEmptyURL      = errors.New("url pattern must not be empty")
	ErrUnknownMethod = errors.New("unknown http method")
)

// AnyMethod matches every verb.
const AnyMethod = "*"

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
	AnyMethod:          true,
}

// Pattern is a method plus URL template. Templates are either absolute
// (https://host/api/users/*) or path-only (/api/users/:id); path-only
// templates match any scheme and host.
//
// Template segments:
//
//	*      exactly one non-empty segment
//	:name  exactly one non-empty segment
//	**     one or more trailing segments (last segment only)
type Pattern struct {
	Method string
	URL    string

	scheme   string
	host     string
	segs     []string
	query    url.Values
	hasQuery bool
}

func New(method, tmpl string) (Pattern, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	if m == "" {
		m = AnyMethod
	}
	if !knownMethods[m] {
		return Pattern{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	tmpl = strings.TrimSpace(tmpl)
	if tmpl == "" {
		return Pattern{}, ErrEmptyURL
	}

	p := Pattern{Method: m, URL: tmpl}
	rest := tmpl
	if i := strings.Index(rest, "://"); i >= 0 {
		p.scheme = strings.ToLower(rest[:i])
		rest = rest[i+3:]
		j := strings.IndexAny(rest, "/?")
		if j < 0 {
			p.host, rest = rest, ""
		} else {
			p.host, rest = rest[:j], rest[j:]
		}
		p.host = canonicalHost(p.scheme, p.host)
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		q, err := url.ParseQuery(rest[i+1:])
		if err == nil {
			p.query = q
			p.hasQuery = true
		}
		rest = rest[:i]
	}
	p.segs = splitPath(rest)
	return p, nil
}

// MustNew is New for patterns known at compile time.
func MustNew(method, tmpl string) Pattern {
	p, err := New(method, tmpl)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string { return p.Method + " " + p.URL }

// Matches reports whether a live request matches the pattern. It never
// fails: unparsable URLs simply do not match.
func (p Pattern) Matches(method, rawURL string) bool {
	if p.Method != AnyMethod && !strings.EqualFold(p.Method, method) {
		return false
	}
	if rawURL == p.URL {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if p.scheme != "" && !strings.EqualFold(u.Scheme, p.scheme) {
		return false
	}
	if p.host != "" && p.host != "*" && canonicalHost(u.Scheme, u.Host) != p.host {
		return false
	}
	if p.hasQuery && u.Query().Encode() != p.query.Encode() {
		return false
	}
	return matchSegments(p.segs, splitPath(u.EscapedPath()))
}

var defaultPorts = map[string]string{"http": ":80", "https": ":443"}

// canonicalHost lower-cases host and drops the scheme's default port, so
// reqres.in and reqres.in:443 are the same https host.
func canonicalHost(scheme, host string) string {
	host = strings.ToLower(host)
	if port, ok := defaultPorts[strings.ToLower(scheme)]; ok {
		host = strings.TrimSuffix(host, port)
	}
	return host
}

func matchSegments(tmpl, got []string) bool {
	for i, t := range tmpl {
		if t == "**" && i == len(tmpl)-1 {
			return len(got) > i
		}
		if i >= len(got) || got[i] == "" {
			return false
		}
		if t == "*" || strings.HasPrefix(t, ":") {
			continue
		}
		if t != got[i] {
			return false
		}
	}
	return len(got) == len(tmpl)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
