package ir

// Expectation types (string constants for portability)
const (
	ExpectStatus          = "status"
	ExpectJSONPath        = "jsonPath"
	ExpectProperty        = "property"
	ExpectContains        = "contains"
	ExpectContainsFixture = "containsFixture"
	ExpectContract        = "contract"
)

// Step kinds, derived from which block a step sets.
const (
	KindRequest   = "request"
	KindIntercept = "intercept"
	KindTrigger   = "trigger"
	KindWait      = "wait"
	KindRender    = "render"
)

type TestSuite struct {
	Name      string     `json:"name" yaml:"name"`
	OpenAPI   string     `json:"openapi,omitempty" yaml:"openapi,omitempty"`
	Fixtures  string     `json:"fixtures,omitempty" yaml:"fixtures,omitempty"`
	Scenarios []Scenario `json:"scenarios" yaml:"scenarios"`
}

type Scenario struct {
	Name string `json:"name" yaml:"name"`
	// Env names comma-separated env files layered over the run's vars.
	Env      string   `json:"env,omitempty" yaml:"env,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Setup    []Action `json:"setup,omitempty" yaml:"setup,omitempty"`
	Steps    []Step   `json:"steps" yaml:"steps"`
	Teardown []Action `json:"teardown,omitempty" yaml:"teardown,omitempty"`
}

type Action struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Request *Request `json:"request,omitempty" yaml:"request,omitempty"`
}

// Step sets exactly one of Request, Intercept, Trigger, Wait or Render.
type Step struct {
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Request   *Request   `json:"request,omitempty" yaml:"request,omitempty"`
	Intercept *Intercept `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Trigger   *Trigger   `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Wait      *Wait      `json:"wait,omitempty" yaml:"wait,omitempty"`
	Render    *Render    `json:"render,omitempty" yaml:"render,omitempty"`

	Expect []Expectation `json:"expect,omitempty" yaml:"expect,omitempty"`
	// RequestExpect is checked against the recorded request of a wait step.
	RequestExpect []Expectation `json:"request_expect,omitempty" yaml:"request_expect,omitempty"`
	// Save copies gjson paths from the step's response body into variables.
	Save map[string]string `json:"save,omitempty" yaml:"save,omitempty"`
}

// Kind reports which block the step sets, or "" when none is set.
func (s *Step) Kind() string {
	switch {
	case s.Request != nil:
		return KindRequest
	case s.Intercept != nil:
		return KindIntercept
	case s.Trigger != nil:
		return KindTrigger
	case s.Wait != nil:
		return KindWait
	case s.Render != nil:
		return KindRender
	}
	return ""
}

// Kinds counts the blocks set; the parser rejects anything but one.
func (s *Step) Kinds() int {
	n := 0
	for _, set := range []bool{s.Request != nil, s.Intercept != nil, s.Trigger != nil, s.Wait != nil, s.Render != nil} {
		if set {
			n++
		}
	}
	return n
}

type Request struct {
	Method    string            `yaml:"method"  json:"method"`
	URL       string            `yaml:"url"     json:"url"`
	Headers   map[string]string `yaml:"headers" json:"headers"`
	Body      any               `yaml:"body"    json:"body"`
	TimeoutMs int               `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	// FailOnStatus defaults to true for direct calls.
	FailOnStatus *bool `yaml:"fail_on_status,omitempty" json:"fail_on_status,omitempty"`
}

type Intercept struct {
	Method  string       `yaml:"method" json:"method"`
	URL     string       `yaml:"url" json:"url"`
	As      string       `yaml:"as" json:"as"`
	Mock    *MockSpec    `yaml:"mock,omitempty" json:"mock,omitempty"`
	Rewrite *RewriteSpec `yaml:"rewrite,omitempty" json:"rewrite,omitempty"`
}

type MockSpec struct {
	Fixture string            `yaml:"fixture,omitempty" json:"fixture,omitempty"`
	Body    any               `yaml:"body,omitempty" json:"body,omitempty"`
	Status  int               `yaml:"status,omitempty" json:"status,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

type RewriteSpec struct {
	Set    map[string]any `yaml:"set,omitempty" json:"set,omitempty"`
	Delete []string       `yaml:"delete,omitempty" json:"delete,omitempty"`
}

// Trigger sets exactly one of Request (sent as the application would,
// through interception) or UI.
type Trigger struct {
	Request *Request  `yaml:"request,omitempty" json:"request,omitempty"`
	UI      *UIAction `yaml:"ui,omitempty" json:"ui,omitempty"`
}

type UIAction struct {
	Action string   `yaml:"action" json:"action"`
	Args   []string `yaml:"args,omitempty" json:"args,omitempty"`
}

type Wait struct {
	Alias     string `yaml:"alias" json:"alias"`
	TimeoutMs int    `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
}

type Render struct {
	Selector  string `yaml:"selector" json:"selector"`
	TimeoutMs int    `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
}

type Expectation struct {
	Type   string `json:"type" yaml:"type"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	Value  any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// FixtureRef is the value of a containsFixture expectation.
type FixtureRef struct {
	Fixture string   `json:"fixture" yaml:"fixture"`
	Paths   []string `json:"paths" yaml:"paths"`
}
