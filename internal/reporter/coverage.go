package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

type CoverageReport struct {
	Total        int      `json:"total"`
	Covered      int      `json:"covered"`
	Percent      float64  `json:"percent"`
	CoveredSet   []string `json:"covered_set"`
	UncoveredSet []string `json:"uncovered_set"`
}

// WriteCoverage writes ComputeCoverage as indented JSON.
func WriteCoverage(w io.Writer, doc *openapi3.T, covered map[string]map[string]bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ComputeCoverage(doc, covered))
}

// ComputeCoverage compares the operations in doc with covered
// (method -> path template -> true). Direct calls and intercepted
// exchanges count alike.
func ComputeCoverage(doc *openapi3.T, covered map[string]map[string]bool) CoverageReport {
	all := allOps(doc)
	seen := map[string]bool{}
	for method, paths := range covered {
		for path := range paths {
			seen[sig(method, path)] = true
		}
	}

	rep := CoverageReport{Total: len(all), CoveredSet: []string{}, UncoveredSet: []string{}}
	for _, op := range all {
		if seen[op] {
			rep.CoveredSet = append(rep.CoveredSet, op)
		} else {
			rep.UncoveredSet = append(rep.UncoveredSet, op)
		}
	}
	rep.Covered = len(rep.CoveredSet)
	rep.Percent = pct(rep.Covered, rep.Total)
	return rep
}

func allOps(doc *openapi3.T) []string {
	var out []string
	if doc == nil || doc.Paths == nil {
		return out
	}
	for p, pi := range doc.Paths.Map() {
		if pi == nil {
			continue
		}
		for method := range pi.Operations() {
			out = append(out, sig(method, p))
		}
	}
	sort.Strings(out)
	return out
}

func sig(method, path string) string { return fmt.Sprintf("%s %s", strings.ToUpper(method), path) }

func pct(n, d int) float64 {
	if d == 0 {
		return 100.0
	}
	return float64(n) * 100.0 / float64(d)
}
