package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"sea-intercept/internal/contract"
	"sea-intercept/internal/executor"
	"sea-intercept/internal/fixture"
	"sea-intercept/internal/harness"
	"sea-intercept/internal/ir"
	"sea-intercept/internal/logger"
	"sea-intercept/internal/ui"
	"sea-intercept/internal/vars"
)

// ---- Results model ----

type SuiteResult struct {
	Name       string
	Passed     bool
	Scenarios  []ScenarioResult
	DurationMs float64
}

type ScenarioResult struct {
	Name        string
	Tags        []string `json:",omitempty"`
	Passed      bool
	TeardownRan bool
	Steps       []StepResult
	DurationMs  float64
}

type StepResult struct {
	Name       string
	Kind       string
	Alias      string `json:",omitempty"`
	Passed     bool
	StatusCode int
	Errors     []string
	DurationMs float64

	Method      string
	URL         string
	ReqHeaders  map[string][]string
	ReqBody     string
	RespHeaders map[string][]string
	RespBody    string
}

func (s *StepResult) fail(msg string) {
	s.Passed = false
	s.Errors = append(s.Errors, msg)
}

// ---- Runner ----

type Options struct {
	Vars map[string]string
	// BaseDir resolves relative scenario env files, usually the suite's
	// directory.
	BaseDir  string
	Fixtures *fixture.Resolver
	// UI drives the page for trigger.ui and render steps.
	UI ui.Driver

	HTTPTimeout  time.Duration
	MaxIdleConns int
	WaitTimeout  time.Duration
	// Proxy gives every scenario a loopback proxy for out-of-process UI
	// drivers.
	Proxy bool

	Log logger.Logger
}

type Runner struct {
	opts   Options
	direct *executor.Client
	log    logger.Logger

	contractV *contract.Validator

	parallel int
	failFast bool
}

func New(opts Options) *Runner {
	l := opts.Log
	if l == nil {
		l = logger.NewNop()
	}
	if opts.Fixtures == nil {
		opts.Fixtures = fixture.NewResolver(fixture.MapStore{}, l)
	}
	return &Runner{
		opts:   opts,
		direct: executor.New(opts.HTTPTimeout, opts.MaxIdleConns, l),
		log:    l,
	}
}

func (r *Runner) WithContract(v *contract.Validator) *Runner { r.contractV = v; return r }
func (r *Runner) WithParallel(n int) *Runner {
	if n < 1 {
		n = 1
	}
	r.parallel = n
	return r
}
func (r *Runner) WithFailFast(b bool) *Runner { r.failFast = b; return r }

// Covered reports the OpenAPI operations hit by contract expectations.
func (r *Runner) Covered() map[string]map[string]bool {
	if r.contractV == nil {
		return nil
	}
	return r.contractV.Covered()
}

// ---- Suite execution ----

func clone(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (r *Runner) RunSuite(ctx context.Context, suite *ir.TestSuite) (*SuiteResult, error) {
	if suite == nil {
		return nil, errors.New("nil suite")
	}

	startSuite := time.Now()
	res := &SuiteResult{Name: suite.Name, Passed: true, Scenarios: make([]ScenarioResult, len(suite.Scenarios))}
	r.log.Info("suite started", "suite", suite.Name, "scenarios", len(suite.Scenarios))

	parallel := r.parallel
	if r.failFast {
		parallel = 1
	}
	if parallel < 1 {
		parallel = 1
	}

	if parallel == 1 {
		for i, sc := range suite.Scenarios {
			scRes := r.runScenario(ctx, sc)
			if !scRes.Passed {
				res.Passed = false
			}
			res.Scenarios[i] = scRes
			if r.failFast && !scRes.Passed {
				res.Scenarios = res.Scenarios[:i+1]
				break
			}
		}
		res.DurationMs = float64(time.Since(startSuite).Milliseconds())
		return res, nil
	}

	type job struct {
		idx int
		sc  ir.Scenario
	}
	type result struct {
		idx int
		sc  ScenarioResult
	}

	jobs := make(chan job)
	results := make(chan result)

	for w := 0; w < parallel; w++ {
		go func() {
			for j := range jobs {
				results <- result{idx: j.idx, sc: r.runScenario(ctx, j.sc)}
			}
		}()
	}
	go func() {
		for i, sc := range suite.Scenarios {
			jobs <- job{idx: i, sc: sc}
		}
		close(jobs)
	}()

	for collected := 0; collected < len(suite.Scenarios); collected++ {
		rx := <-results
		if !rx.sc.Passed {
			res.Passed = false
		}
		res.Scenarios[rx.idx] = rx.sc
	}

	res.DurationMs = float64(time.Since(startSuite).Milliseconds())
	return res, nil
}

func (r *Runner) runScenario(ctx context.Context, sc ir.Scenario) ScenarioResult {
	startSc := time.Now()
	scRes := ScenarioResult{Name: sc.Name, Tags: sc.Tags, Passed: true}
	log := r.log.With("scenario", sc.Name)

	vars, err := r.scenarioVars(sc)
	if err != nil {
		st := StepResult{Name: "env", Passed: true}
		st.fail(err.Error())
		scRes.Passed = false
		scRes.Steps = append(scRes.Steps, st)
		return scRes
	}
	vars["uuid"] = uuid.NewString()
	vars["now"] = time.Now().UTC().Format(time.RFC3339)

	// A fresh context per scenario: rules and recordings never leak.
	ht, err := harness.New(harness.Options{
		Name:        sc.Name,
		Fixtures:    r.opts.Fixtures,
		Direct:      r.direct,
		UI:          r.opts.UI,
		WaitTimeout: r.opts.WaitTimeout,
		HTTPTimeout: r.opts.HTTPTimeout,
		Proxy:       r.opts.Proxy,
		Log:         r.log,
	})
	if err != nil {
		st := StepResult{Name: "harness", Passed: true}
		st.fail(err.Error())
		scRes.Passed = false
		scRes.Steps = append(scRes.Steps, st)
		return scRes
	}
	defer func() {
		if err := ht.Close(); err != nil {
			log.Warn("close test context", "err", err)
		}
	}()

	// Setup (best-effort)
	if err := r.runActions(ctx, sc.Setup, vars); err != nil {
		log.Warn("setup failed", "err", err)
		scRes.Passed = false
	}

	for i := range sc.Steps {
		stepRes := r.runStep(ctx, ht, &sc.Steps[i], vars)
		if !stepRes.Passed {
			scRes.Passed = false
		}
		scRes.Steps = append(scRes.Steps, stepRes)
	}

	if err := r.runActions(ctx, sc.Teardown, vars); err != nil {
		log.Warn("teardown failed", "err", err)
	}
	scRes.TeardownRan = true
	scRes.DurationMs = float64(time.Since(startSc).Milliseconds())

	if scRes.Passed {
		log.Info("scenario passed", "ms", scRes.DurationMs)
	} else {
		log.Warn("scenario failed", "ms", scRes.DurationMs)
	}
	return scRes
}

// scenarioVars layers the scenario's env files over the run's vars.
func (r *Runner) scenarioVars(sc ir.Scenario) (map[string]string, error) {
	out := clone(r.opts.Vars)
	if out == nil {
		out = map[string]string{}
	}
	if strings.TrimSpace(sc.Env) == "" {
		return out, nil
	}
	var paths []string
	for _, p := range strings.Split(sc.Env, ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if !filepath.IsAbs(p) && r.opts.BaseDir != "" {
			p = filepath.Join(r.opts.BaseDir, p)
		}
		paths = append(paths, p)
	}
	env, err := vars.LoadFiles(paths)
	if err != nil {
		return nil, fmt.Errorf("scenario env: %w", err)
	}
	for k, v := range env {
		out[k] = v
	}
	return out, nil
}

func (r *Runner) runActions(ctx context.Context, acts []ir.Action, vars map[string]string) error {
	for _, a := range acts {
		if a.Request == nil {
			continue
		}
		req := expandRequest(*a.Request, vars)
		_, err := r.direct.Send(ctx, req.Method, req.URL, req.Body, requestOptions(req))
		if err != nil {
			return err
		}
	}
	return nil
}

func requestOptions(req ir.Request) executor.Options {
	return executor.Options{
		FailOnErrorStatus: req.FailOnStatus,
		Headers:           req.Headers,
		Timeout:           time.Duration(req.TimeoutMs) * time.Millisecond,
	}
}
