package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"sort"
	"strings"

	"sea-intercept/internal/runner"
)

var page = template.Must(template.New("report").Funcs(template.FuncMap{
	"ms":     func(v float64) string { return fmt.Sprintf("%.0f ms", v) },
	"status": func(ok bool) string { return map[bool]string{true: "PASS", false: "FAIL"}[ok] },
	"class":  func(ok bool) string { return map[bool]string{true: "pass", false: "fail"}[ok] },
	"label":  StepLabel,
	"hdr":    hdrBlock,
	"pretty": prettyJSON,
	"upper":  strings.ToUpper,
}).Parse(`<!doctype html><html lang="en"><head><meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>sea-intercept report: {{.Name}}</title>
<style>
:root { --ok:#0a0; --bad:#b00; --muted:#666; --chip:#eee; --line:#e5e5e5; }
body{font-family:system-ui,Segoe UI,Roboto,Arial,sans-serif;margin:24px;line-height:1.45}
h1{margin:0 0 12px} h2{margin:0 0 8px;font-size:1.05rem}
.summary{display:flex;gap:12px;align-items:center;margin:12px 0 18px}
.pass{color:var(--ok)} .fail{color:var(--bad)}
.badge{display:inline-block;padding:2px 8px;border-radius:999px;background:var(--chip);font-size:.85rem}
.card{border:1px solid var(--line);border-radius:12px;padding:16px;margin:12px 0}
details>summary{cursor:pointer;padding:6px 0}
pre{background:#f8f8f8;padding:12px;border-radius:8px;overflow:auto;max-height:320px;margin:8px 0 0;white-space:pre-wrap}
.muted{color:var(--muted)} .small{font-size:.85rem}
</style></head><body>
<h1>{{.Name}}</h1>
<div class="summary">
<div>Status: <strong class="{{class .Res.Passed}}">{{status .Res.Passed}}</strong></div>
<span class="badge">Duration: {{ms .Res.DurationMs}}</span>
<span class="badge">Scenarios: {{len .Res.Scenarios}}</span>
</div><hr>
{{range .Res.Scenarios}}<div class="card">
<h2>{{.Name}} <span class="badge {{class .Passed}}">{{status .Passed}}</span> <span class="badge">{{ms .DurationMs}}</span>{{range .Tags}} <span class="badge">#{{.}}</span>{{end}}</h2>
{{range $i, $st := .Steps}}<details{{if not $st.Passed}} open{{end}}>
<summary>{{label $i $st}}{{if $st.URL}} &bull; {{upper $st.Method}} {{$st.URL}}{{end}}{{if $st.StatusCode}} &bull; status {{$st.StatusCode}}{{end}} <span class="badge {{class $st.Passed}}">{{status $st.Passed}}</span> <span class="badge">{{ms $st.DurationMs}}</span></summary>
{{if $st.Errors}}<pre>{{range $st.Errors}}{{.}}
{{end}}</pre>{{else}}<div class="small muted">No errors.</div>{{end}}
{{if or $st.ReqHeaders $st.ReqBody}}<div class="small muted">Request</div>
{{with $st.ReqHeaders}}<pre>{{hdr .}}</pre>{{end}}{{with $st.ReqBody}}<pre>{{pretty .}}</pre>{{end}}{{end}}
{{if or $st.RespHeaders $st.RespBody}}<div class="small muted">{{if eq $st.Kind "render"}}Rendered text{{else}}Response{{end}}</div>
{{with $st.RespHeaders}}<pre>{{hdr .}}</pre>{{end}}{{with $st.RespBody}}<pre>{{pretty .}}</pre>{{end}}{{end}}
</details>
{{end}}</div>
{{end}}</body></html>
`))

func WriteHTML(w io.Writer, suiteName string, res *runner.SuiteResult) error {
	return page.Execute(w, struct {
		Name string
		Res  *runner.SuiteResult
	}{suiteName, res})
}

// WriteHTMLFromJSONPath renders from results.json so the HTML matches what
// is on disk.
func WriteHTMLFromJSONPath(w io.Writer, suiteName, resultsJSONPath string) error {
	data, err := os.ReadFile(resultsJSONPath)
	if err != nil {
		return fmt.Errorf("read results.json: %w", err)
	}
	var res runner.SuiteResult
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("decode results.json: %w", err)
	}
	return WriteHTML(w, suiteName, &res)
}

func hdrBlock(h map[string][]string) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(strings.Join(h[k], ", "))
		b.WriteByte('\n')
	}
	return b.String()
}

func prettyJSON(s string) string {
	var buf bytes.Buffer
	var raw any
	if json.Unmarshal([]byte(s), &raw) == nil {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		_ = enc.Encode(raw)
		return strings.TrimRight(buf.String(), "\n")
	}
	return s
}
