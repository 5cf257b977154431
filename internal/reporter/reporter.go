package reporter

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"sea-intercept/internal/runner"
)

// -------- JSON --------

func WriteJSON(w io.Writer, res *runner.SuiteResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// -------- JUnit XML --------

// One testsuite per scenario, one testcase per step.
type junitTestsuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []junitTestsuite `xml:"testsuite"`
}

type junitTestsuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Time     string          `xml:"time,attr"`
	Testcase []junitTestcase `xml:"testcase"`
}

type junitTestcase struct {
	Classname string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Text    string `xml:",chardata"`
}

func WriteJUnit(w io.Writer, suiteName string, res *runner.SuiteResult) error {
	root := junitTestsuites{Name: suiteName, Time: seconds(res.DurationMs)}

	for _, sc := range res.Scenarios {
		ts := junitTestsuite{Name: sc.Name, Time: seconds(sc.DurationMs)}
		for i, st := range sc.Steps {
			ts.Tests++
			tc := junitTestcase{
				Classname: suiteName + "." + sc.Name,
				Name:      StepLabel(i, st),
				Time:      seconds(st.DurationMs),
			}
			if !st.Passed {
				ts.Failures++
				msg := "assertion failed"
				if len(st.Errors) > 0 {
					msg = st.Errors[0]
				}
				tc.Failure = &junitFailure{
					Message: msg,
					Type:    failureType(st),
					Text:    strings.Join(st.Errors, "\n"),
				}
			}
			ts.Testcase = append(ts.Testcase, tc)
		}
		root.Tests += ts.Tests
		root.Failures += ts.Failures
		root.Suites = append(root.Suites, ts)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(root)
}

// StepLabel names a step for reports: its own name if set, else the
// position, kind and alias.
func StepLabel(i int, st runner.StepResult) string {
	if st.Name != "" {
		return st.Name
	}
	label := fmt.Sprintf("step-%d %s", i+1, st.Kind)
	if st.Alias != "" {
		label += " @" + st.Alias
	}
	return label
}

func failureType(st runner.StepResult) string {
	for _, e := range st.Errors {
		if strings.HasPrefix(e, "timed out waiting for") {
			return "WaitTimeout"
		}
	}
	return "AssertionError"
}

func seconds(ms float64) string { return fmt.Sprintf("%.3f", ms/1000.0) }
