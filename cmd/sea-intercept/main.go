package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"sea-intercept/internal/config"
	"sea-intercept/internal/contract"
	"sea-intercept/internal/fixture"
	"sea-intercept/internal/logger"
	"sea-intercept/internal/parser"
	"sea-intercept/internal/reporter"
	"sea-intercept/internal/runner"
	"sea-intercept/internal/ui"
	"sea-intercept/internal/vars"
)

func main() {
	var (
		spec        = flag.String("spec", "", "Path to YAML/JSON test suite")
		cfgPath     = flag.String("config", "sea-intercept.yaml", "Path to engine config (optional)")
		outDir      = flag.String("out", "reports", "Output directory for artifacts")
		name        = flag.String("name", "", "Optional suite name override")
		envPaths    = flag.String("env", "", "Comma-separated JSON/YAML env files (e.g., env/dev.json,env/ci.yaml)")
		fixturesDir = flag.String("fixtures", "", "Fixture directory (overrides suite and config)")
		jsonOut     = flag.Bool("json", true, "Write JSON results")
		junitOut    = flag.Bool("junit", true, "Write JUnit XML results")
		htmlOut     = flag.Bool("html", true, "Write HTML report")
		verbose     = flag.Bool("v", false, "Verbose: print failure details")
		logLevel    = flag.String("log-level", "", "Log level (overrides config)")
		openapiPath = flag.String("openapi", "", "Path to OpenAPI (YAML/JSON) for contract checks & coverage")
		covMin      = flag.Float64("coverage-min", -1, "Fail if coverage percent < this threshold (requires OpenAPI)")
		parallel    = flag.Int("parallel", 1, "Number of scenarios to execute in parallel")
		failFast    = flag.Bool("fail-fast", false, "Stop after first failing scenario (forces --parallel=1)")
		includeTags = flag.String("include-tags", "", "Comma-separated tags to include (OR semantics)")
		excludeTags = flag.String("exclude-tags", "", "Comma-separated tags to exclude (OR semantics)")
		uiCmd       = flag.String("ui-cmd", "", "UI driver command for trigger.ui and render steps")
		waitTimeout = flag.Duration("wait-timeout", 0, "Default wait timeout (overrides config)")
	)
	flag.Parse()

	if *spec == "" {
		fail("missing --spec")
	}

	cfg, err := config.Load(*cfgPath, !isFlagSet("config"))
	if err != nil {
		fail("config: %v", err)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *waitTimeout > 0 {
		cfg.Wait.DefaultTimeout = *waitTimeout
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Writers: cfg.Log.Writer, File: cfg.Log.File})

	data, err := os.ReadFile(*spec)
	if err != nil {
		fail("read spec: %v", err)
	}
	suite, err := parser.New().ParseBytes(data)
	if err != nil {
		fail("parse: %v", err)
	}
	if *name != "" {
		suite.Name = *name
	}

	if *includeTags != "" || *excludeTags != "" {
		suite.Scenarios = runner.FilterByTags(suite.Scenarios, splitCSV(*includeTags), splitCSV(*excludeTags))
		if len(suite.Scenarios) == 0 {
			fail("no scenarios left after tag filtering")
		}
	}

	var baseVars map[string]string
	if *envPaths != "" {
		baseVars, err = vars.LoadFiles(splitCSV(*envPaths))
		if err != nil {
			fail("load env: %v", err)
		}
	}

	// Flag wins; else suite.fixtures (relative to spec); else config.
	fxDir := cfg.Fixtures.Dir
	switch {
	case *fixturesDir != "":
		fxDir = *fixturesDir
	case suite.Fixtures != "":
		fxDir = relTo(*spec, suite.Fixtures)
	}
	resolver := fixture.NewResolver(fixture.DirStore{Dir: fxDir}, log)

	var openapiFile string
	if *openapiPath != "" {
		openapiFile = *openapiPath
	} else if suite.OpenAPI != "" {
		openapiFile = relTo(*spec, suite.OpenAPI)
	}

	if *failFast && *parallel != 1 {
		*parallel = 1
	}

	opts := runner.Options{
		Vars:         baseVars,
		BaseDir:      filepath.Dir(*spec),
		Fixtures:     resolver,
		HTTPTimeout:  cfg.HTTP.Timeout,
		MaxIdleConns: cfg.HTTP.MaxIdleConns,
		WaitTimeout:  cfg.Wait.DefaultTimeout,
		Proxy:        cfg.Proxy.Enabled,
		Log:          log,
	}
	if *uiCmd != "" {
		parts := strings.Fields(*uiCmd)
		opts.UI = &ui.Process{Cmd: parts[0], Args: parts[1:], Env: baseVars, Log: log}
		// An external driver only reaches the registry through the proxy.
		opts.Proxy = true
	}
	r := runner.New(opts).WithParallel(*parallel).WithFailFast(*failFast)

	var v *contract.Validator
	if openapiFile != "" {
		v, err = contract.LoadFromFile(openapiFile)
		if err != nil {
			fail("openapi load: %v", err)
		}
		r = r.WithContract(v)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("running suite", "suite", suite.Name, "scenarios", len(suite.Scenarios), "fixtures", fxDir)
	start := time.Now()
	res, err := r.RunSuite(ctx, suite)
	if err != nil {
		fail("execute: %v", err)
	}
	log.Info("suite finished", "passed", res.Passed, "elapsed", time.Since(start).String())

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fail("mkdir out: %v", err)
	}

	outSuiteName := suite.Name
	if outSuiteName == "" {
		outSuiteName = "sea-intercept"
	}

	var jsonPath string
	if *jsonOut {
		jsonPath = filepath.Join(*outDir, "results.json")
		writeOrDie(jsonPath, func(f *os.File) error {
			return reporter.WriteJSON(f, res)
		})
	}

	if *junitOut {
		writeOrDie(filepath.Join(*outDir, "junit.xml"), func(f *os.File) error {
			return reporter.WriteJUnit(f, outSuiteName, res)
		})
	}

	// Rendering from results.json keeps the HTML identical to the JSON.
	if *htmlOut {
		htmlPath := filepath.Join(*outDir, "report.html")
		if jsonPath != "" {
			writeOrDie(htmlPath, func(f *os.File) error {
				return reporter.WriteHTMLFromJSONPath(f, outSuiteName, jsonPath)
			})
		} else {
			writeOrDie(htmlPath, func(f *os.File) error {
				return reporter.WriteHTML(f, outSuiteName, res)
			})
		}
	}

	if v != nil {
		writeOrDie(filepath.Join(*outDir, "coverage.json"), func(f *os.File) error {
			return reporter.WriteCoverage(f, v.Doc(), r.Covered())
		})
		if *covMin >= 0 {
			rep := reporter.ComputeCoverage(v.Doc(), r.Covered())
			if rep.Percent+1e-9 < *covMin {
				fmt.Fprintf(os.Stderr, "coverage gate failed: got %.2f%%, need >= %.2f%%\n", rep.Percent, *covMin)
				color.Red("FAIL")
				os.Exit(1)
			}
		}
	}

	if !res.Passed || *verbose {
		printFailures(res)
	}

	if res.Passed {
		color.Green("PASS")
		os.Exit(0)
	}
	color.Red("FAIL")
	os.Exit(1)
}

func printFailures(res *runner.SuiteResult) {
	bad := color.New(color.FgRed, color.Bold)
	for _, sc := range res.Scenarios {
		if sc.Passed {
			continue
		}
		bad.Fprintf(os.Stderr, "\nScenario FAILED: %s\n", sc.Name)
		for i, st := range sc.Steps {
			if st.Passed {
				continue
			}
			fmt.Fprintf(os.Stderr, "  %s: status=%d\n", reporter.StepLabel(i, st), st.StatusCode)
			for _, e := range st.Errors {
				fmt.Fprintf(os.Stderr, "    - %s\n", e)
			}
		}
		if !sc.TeardownRan {
			fmt.Fprintln(os.Stderr, "  teardown did not run")
		}
	}
}

// ---- helpers ----

func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", a...)
	os.Exit(2)
}

func writeOrDie(path string, fn func(*os.File) error) {
	f, err := os.Create(path)
	if err != nil {
		fail("create %s: %v", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		fail("write %s: %v", path, err)
	}
}

func relTo(specPath, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(specPath), p)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
