package parser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sea-intercept/internal/ir"
	"sea-intercept/internal/parser"
)

const validYAML = `
name: Users UI
openapi: openapi.yaml
fixtures: fixtures
scenarios:
  - name: Mock single user and check the page
    env: staging
    tags: [ui, smoke]
    steps:
      - intercept:
          method: get
          url: /api/users/2
          as: getUser
          mock:
            fixture: mockUser.json
      - trigger:
          ui:
            action: click
            args: [users-single]
      - wait:
          alias: getUser
          timeout_ms: 5000
        expect:
          - type: status
            value: 200
          - type: jsonPath
            target: data.id
            value: 2
      - render:
          selector: ".response > pre"
        expect:
          - type: containsFixture
            value:
              fixture: mockUser.json
              paths: [data.email, data.first_name, data.last_name]
  - name: Login without password
    steps:
      - request:
          method: post
          url: ${BASE_URL}/api/login
          fail_on_status: false
          body:
            email: peter@klaven
        expect:
          - type: status
            value: 400
          - type: jsonPath
            target: error
            value: Missing password
`

const missingNameYAML = `
scenarios: []
`

const unknownFieldYAML = `
name: Foo
scenarios:
  - name: Bar
    steps:
      - request:
          method: POST
          url: http://localhost:8080
        expect: []
    notARealField: true
`

func TestParse_ValidSuite(t *testing.T) {
	p := parser.New()

	suite, err := p.ParseBytes([]byte(validYAML))
	if err != nil {
		t.Fatalf("ParseBytes error: %v", err)
	}
	if diff := cmp.Diff("Users UI", suite.Name); diff != "" {
		t.Fatalf("name mismatch (-want +got):\n%s", diff)
	}
	if len(suite.Scenarios) != 2 {
		t.Fatalf("scenarios len = %d, want 2", len(suite.Scenarios))
	}

	steps := suite.Scenarios[0].Steps
	kinds := make([]string, len(steps))
	for i := range steps {
		kinds[i] = steps[i].Kind()
	}
	want := []string{ir.KindIntercept, ir.KindTrigger, ir.KindWait, ir.KindRender}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
	if got := steps[0].Intercept.Method; got != "GET" {
		t.Fatalf("intercept method = %s, want GET", got)
	}
	if got := steps[2].Wait.TimeoutMs; got != 5000 {
		t.Fatalf("timeout_ms = %d, want 5000", got)
	}

	login := suite.Scenarios[1].Steps[0].Request
	if login.Method != "POST" {
		t.Fatalf("method = %s, want POST", login.Method)
	}
	if login.FailOnStatus == nil || *login.FailOnStatus {
		t.Fatalf("fail_on_status should be explicitly false, got %v", login.FailOnStatus)
	}
}

func TestParse_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		msg  string
	}{
		{"missing suite name", missingNameYAML, "suite.name"},
		{"two kinds", `
name: X
scenarios:
  - name: S
    steps:
      - wait: {alias: a}
        render: {selector: p}
`, "exactly one of"},
		{"wait without intercept", `
name: X
scenarios:
  - name: S
    steps:
      - wait: {alias: getUser}
`, "not intercepted"},
		{"mock and rewrite", `
name: X
scenarios:
  - name: S
    steps:
      - intercept:
          url: /api/users
          as: u
          mock: {fixture: a.json}
          rewrite: {set: {name: Olga}}
`, "both mock and rewrite"},
		{"bad method", `
name: X
scenarios:
  - name: S
    steps:
      - intercept: {method: FETCH, url: /api, as: a}
`, "intercept"},
		{"unknown expectation", `
name: X
scenarios:
  - name: S
    steps:
      - request: {method: GET, url: /api}
        expect:
          - type: eventually
`, "unknown expectation"},
		{"request_expect outside wait", `
name: X
scenarios:
  - name: S
    steps:
      - request: {method: GET, url: /api}
        request_expect:
          - type: status
`, "only valid on wait"},
	}

	p := parser.New()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := p.ParseBytes([]byte(c.yaml))
			if !errors.Is(err, parser.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), c.msg) {
				t.Fatalf("error %q does not mention %q", err, c.msg)
			}
		})
	}
}

func TestParse_KnownFieldsEnforced(t *testing.T) {
	p := parser.New()

	_, err := p.ParseBytes([]byte(unknownFieldYAML))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}
