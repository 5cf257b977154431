package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"sea-intercept/internal/ir"
	"sea-intercept/internal/match"
)

var ErrValidation = errors.New("validation error")

type Parser struct{}

func New() *Parser { return &Parser{} }

// ParseBytes parses YAML (or JSON) into IR and validates it.
func (p *Parser) ParseBytes(b []byte) (*ir.TestSuite, error) {
	var suite ir.TestSuite

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true) // fail on unknown fields

	if err := dec.Decode(&suite); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := validateSuite(&suite); err != nil {
		return nil, err
	}

	for i := range suite.Scenarios {
		sc := &suite.Scenarios[i]
		for j := range sc.Steps {
			normalizeStep(&sc.Steps[j])
		}
		for _, acts := range [][]ir.Action{sc.Setup, sc.Teardown} {
			for k := range acts {
				if acts[k].Request != nil {
					acts[k].Request.Method = strings.ToUpper(acts[k].Request.Method)
				}
			}
		}
	}
	return &suite, nil
}

func normalizeStep(st *ir.Step) {
	switch {
	case st.Request != nil:
		st.Request.Method = strings.ToUpper(st.Request.Method)
	case st.Intercept != nil:
		st.Intercept.Method = strings.ToUpper(st.Intercept.Method)
		if st.Intercept.Method == "" {
			st.Intercept.Method = match.AnyMethod
		}
	case st.Trigger != nil && st.Trigger.Request != nil:
		st.Trigger.Request.Method = strings.ToUpper(st.Trigger.Request.Method)
	}
}

// --- validation helpers ---

func validateSuite(s *ir.TestSuite) error {
	if s.Name == "" {
		return wrapValidation("suite.name must not be empty")
	}
	if len(s.Scenarios) == 0 {
		return wrapValidation("suite.scenarios must not be empty")
	}
	for i := range s.Scenarios {
		if err := validateScenario(&s.Scenarios[i], i); err != nil {
			return err
		}
	}
	return nil
}

func validateScenario(sc *ir.Scenario, idx int) error {
	if sc.Name == "" {
		return wrapValidation(fmt.Sprintf("scenario[%d].name must not be empty", idx))
	}
	if len(sc.Steps) == 0 {
		return wrapValidation(fmt.Sprintf("scenario[%d].steps must not be empty", idx))
	}
	aliases := map[string]bool{}
	for j := range sc.Steps {
		if err := validateStep(&sc.Steps[j], idx, j, aliases); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(st *ir.Step, i, j int, aliases map[string]bool) error {
	at := fmt.Sprintf("scenario[%d].step[%d]", i, j)
	if st.Kinds() != 1 {
		return wrapValidation(at + " must set exactly one of request, intercept, trigger, wait, render")
	}

	switch st.Kind() {
	case ir.KindRequest:
		if err := validateRequest(st.Request, at+".request"); err != nil {
			return err
		}
	case ir.KindIntercept:
		ic := st.Intercept
		if ic.URL == "" {
			return wrapValidation(at + ".intercept.url must not be empty")
		}
		if _, err := match.New(ic.Method, ic.URL); err != nil {
			return wrapValidation(fmt.Sprintf("%s.intercept: %v", at, err))
		}
		if ic.As == "" {
			return wrapValidation(at + ".intercept.as must not be empty")
		}
		if ic.Mock != nil && ic.Rewrite != nil {
			return wrapValidation(at + ".intercept sets both mock and rewrite")
		}
		if ic.Mock != nil && ic.Mock.Fixture == "" && ic.Mock.Body == nil {
			return wrapValidation(at + ".intercept.mock needs fixture or body")
		}
		aliases[ic.As] = true
	case ir.KindTrigger:
		tr := st.Trigger
		if (tr.Request == nil) == (tr.UI == nil) {
			return wrapValidation(at + ".trigger must set exactly one of request, ui")
		}
		if tr.Request != nil {
			if err := validateRequest(tr.Request, at+".trigger.request"); err != nil {
				return err
			}
		}
		if tr.UI != nil && tr.UI.Action == "" {
			return wrapValidation(at + ".trigger.ui.action must not be empty")
		}
	case ir.KindWait:
		if st.Wait.Alias == "" {
			return wrapValidation(at + ".wait.alias must not be empty")
		}
		if !aliases[st.Wait.Alias] {
			return wrapValidation(fmt.Sprintf("%s.wait: alias %q is not intercepted by an earlier step", at, st.Wait.Alias))
		}
	case ir.KindRender:
		if st.Render.Selector == "" {
			return wrapValidation(at + ".render.selector must not be empty")
		}
	}

	if len(st.RequestExpect) > 0 && st.Kind() != ir.KindWait {
		return wrapValidation(at + ".request_expect is only valid on wait steps")
	}
	for k, e := range append(append([]ir.Expectation{}, st.Expect...), st.RequestExpect...) {
		if err := validateExpectation(e, fmt.Sprintf("%s.expect[%d]", at, k)); err != nil {
			return err
		}
	}
	return nil
}

func validateRequest(r *ir.Request, at string) error {
	if r.Method == "" {
		return wrapValidation(at + ".method must not be empty")
	}
	if r.URL == "" {
		return wrapValidation(at + ".url must not be empty")
	}
	return nil
}

func validateExpectation(e ir.Expectation, at string) error {
	switch e.Type {
	case ir.ExpectStatus, ir.ExpectContract, ir.ExpectContains, ir.ExpectContainsFixture:
	case ir.ExpectJSONPath, ir.ExpectProperty:
		if e.Target == "" {
			return wrapValidation(at + ".target must not be empty")
		}
	default:
		return wrapValidation(fmt.Sprintf("%s: unknown expectation type %q", at, e.Type))
	}
	return nil
}

func wrapValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
