package reporter_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	"sea-intercept/internal/reporter"
)

const reqresSpec = `
openapi: 3.0.3
info: {title: reqres, version: "1"}
paths:
  /api/users:
    post: { responses: { "201": { description: ok } } }
    get:  { responses: { "200": { description: ok } } }
  /api/users/{id}:
    get: { responses: { "200": { description: ok } } }
`

func TestWriteCoverage(t *testing.T) {
	doc, err := (&openapi3.Loader{}).LoadFromData([]byte(reqresSpec))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	covered := map[string]map[string]bool{
		"post": {"/api/users": true},
		"GET":  {"/api/unknown": true},
	}

	var buf bytes.Buffer
	if err := reporter.WriteCoverage(&buf, doc, covered); err != nil {
		t.Fatalf("WriteCoverage: %v", err)
	}

	var rep reporter.CoverageReport
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rep.Total != 3 || rep.Covered != 1 {
		t.Fatalf("total=%d covered=%d", rep.Total, rep.Covered)
	}
	if rep.Percent <= 30 || rep.Percent >= 40 {
		t.Fatalf("percent=%v", rep.Percent)
	}
	if diff := cmp.Diff([]string{"GET /api/users", "GET /api/users/{id}"}, rep.UncoveredSet); diff != "" {
		t.Fatalf("uncovered mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeCoverage_EmptyDoc(t *testing.T) {
	rep := reporter.ComputeCoverage(nil, nil)
	if rep.Percent != 100 || rep.Total != 0 {
		t.Fatalf("empty doc should be fully covered, got %+v", rep)
	}
}
