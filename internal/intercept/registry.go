package intercept

import (
	"fmt"
	"sync"

	"sea-intercept/internal/exchange"
	"sea-intercept/internal/logger"
	"sea-intercept/internal/match"
)

// Behavior is what happens to a matched request: PassThrough, Rewrite or Mock.
type Behavior interface {
	kind() string
}

// PassThrough sends the request unmodified; the exchange is still recorded.
type PassThrough struct{}

// Rewrite mutates the outgoing request before it is sent. Mutate receives
// a private copy and must not retain it. An error or panic fails the
// exchange with an *expect.AssertionError.
type Rewrite struct {
	Mutate func(req *exchange.Request) error
}

// Mock short-circuits the call with a fixture (or an inline Body when
// Fixture is empty). StatusCode defaults to 200.
type Mock struct {
	Fixture    string
	Body       any
	StatusCode int
	Headers    map[string]string
}

func (PassThrough) kind() string { return "pass" }
func (Rewrite) kind() string     { return "rewrite" }
func (Mock) kind() string        { return "mock" }

// KindOf names a behavior for reports and logs.
func KindOf(b Behavior) string {
	if b == nil {
		return PassThrough{}.kind()
	}
	return b.kind()
}

type Rule struct {
	Pattern  match.Pattern
	Behavior Behavior
	Alias    string
}

type DuplicateAliasError struct {
	Alias string
	// Pending is set when the alias is free in the registry but its last
	// exchange is still in flight.
	Pending bool
}

func (e *DuplicateAliasError) Error() string {
	if e.Pending {
		return fmt.Sprintf("alias %q is bound to a pending exchange", e.Alias)
	}
	return fmt.Sprintf("alias %q is already installed", e.Alias)
}

// Decision is the outcome of Dispatch. Err is set when the recorder refused
// to open the exchange; the caller must surface it instead of sending.
type Decision struct {
	Matched  bool
	Rule     Rule
	Behavior Behavior
	Err      error
}

// Registry holds the active rules of one test. The newest matching rule
// wins, so a test can stack overrides on top of broader rules.
type Registry struct {
	rec *exchange.Recorder
	log logger.Logger

	mu    sync.Mutex
	rules []Rule
	auto  int
}

func NewRegistry(rec *exchange.Recorder, l logger.Logger) *Registry {
	if l == nil {
		l = logger.NewNop()
	}
	return &Registry{rec: rec, log: l}
}

// Install adds a rule. An empty alias gets a generated one.
func (r *Registry) Install(p match.Pattern, b Behavior, alias string) error {
	if b == nil {
		b = PassThrough{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if alias == "" {
		r.auto++
		alias = fmt.Sprintf("rule-%d", r.auto)
	}
	for _, rule := range r.rules {
		if rule.Alias == alias {
			return &DuplicateAliasError{Alias: alias}
		}
	}
	if r.rec != nil && r.rec.Pending(alias) {
		return &DuplicateAliasError{Alias: alias, Pending: true}
	}
	r.rules = append(r.rules, Rule{Pattern: p, Behavior: b, Alias: alias})
	r.log.Debug("rule installed", "alias", alias, "pattern", p.String(), "behavior", KindOf(b))
	return nil
}

// Dispatch picks the behavior for req. A match opens a pending exchange
// before returning, so the exchange always exists before any response
// can arrive. No match means pass-through with nothing recorded.
func (r *Registry) Dispatch(req *exchange.Request) Decision {
	r.mu.Lock()
	var hit *Rule
	for i := len(r.rules) - 1; i >= 0; i-- {
		if r.rules[i].Pattern.Matches(req.Method, req.URL) {
			rule := r.rules[i]
			hit = &rule
			break
		}
	}
	r.mu.Unlock()

	if hit == nil {
		return Decision{Behavior: PassThrough{}}
	}
	d := Decision{Matched: true, Rule: *hit, Behavior: hit.Behavior}
	if r.rec != nil {
		if _, err := r.rec.Begin(hit.Alias, req); err != nil {
			d.Err = err
		}
	}
	return d
}

// Clear drops every rule; called at the test boundary.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = nil
	r.auto = 0
}

// Rules returns the active rules in installation order.
func (r *Registry) Rules() []Rule {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Rule(nil), r.rules...)
}
