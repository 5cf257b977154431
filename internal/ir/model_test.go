package ir_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sea-intercept/internal/ir"
)

func TestStep_Kind(t *testing.T) {
	cases := []struct {
		name string
		step ir.Step
		want string
		n    int
	}{
		{"request", ir.Step{Request: &ir.Request{Method: "POST", URL: "/api/login"}}, ir.KindRequest, 1},
		{"intercept", ir.Step{Intercept: &ir.Intercept{Method: "GET", URL: "/api/users/2", As: "getUser"}}, ir.KindIntercept, 1},
		{"trigger", ir.Step{Trigger: &ir.Trigger{UI: &ir.UIAction{Action: "click"}}}, ir.KindTrigger, 1},
		{"wait", ir.Step{Wait: &ir.Wait{Alias: "getUser"}}, ir.KindWait, 1},
		{"render", ir.Step{Render: &ir.Render{Selector: ".response > pre"}}, ir.KindRender, 1},
		{"empty", ir.Step{}, "", 0},
		{"two", ir.Step{Wait: &ir.Wait{}, Render: &ir.Render{}}, ir.KindWait, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if diff := cmp.Diff(c.want, c.step.Kind()); diff != "" {
				t.Fatalf("kind mismatch (-want +got):\n%s", diff)
			}
			if got := c.step.Kinds(); got != c.n {
				t.Fatalf("kinds = %d, want %d", got, c.n)
			}
		})
	}
}

func TestIR_Basics(t *testing.T) {
	suite := ir.TestSuite{
		Name: "Users UI",
		Scenarios: []ir.Scenario{
			{
				Name: "Mock single user",
				Steps: []ir.Step{
					{Intercept: &ir.Intercept{Method: "GET", URL: "/api/users/2", As: "getUser",
						Mock: &ir.MockSpec{Fixture: "mockUser.json"}}},
					{Trigger: &ir.Trigger{UI: &ir.UIAction{Action: "click", Args: []string{"users-single"}}}},
					{Wait: &ir.Wait{Alias: "getUser"},
						Expect: []ir.Expectation{{Type: ir.ExpectStatus, Value: 200}}},
				},
				Tags: []string{"ui", "smoke"},
			},
		},
	}

	steps := suite.Scenarios[0].Steps
	if got, want := len(steps), 3; got != want {
		t.Fatalf("steps len = %d, want %d", got, want)
	}
	if steps[0].Intercept.Mock.Fixture != "mockUser.json" {
		t.Fatalf("fixture = %q", steps[0].Intercept.Mock.Fixture)
	}
	if len(steps[2].Expect) != 1 {
		t.Fatalf("expect len = %d, want 1", len(steps[2].Expect))
	}
}
