package runner

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"sea-intercept/internal/exchange"
	"sea-intercept/internal/harness"
	"sea-intercept/internal/intercept"
	"sea-intercept/internal/ir"
)

const reportBodyCap = 64 << 10

// subject is what a step's expectations look at.
type subject struct {
	status int // 0 when the step has no response
	body   []byte
	method string
	url    string

	resp *exchange.Response
	req  *exchange.Request
	ex   *exchange.Exchange
}

func (r *Runner) runStep(ctx context.Context, ht *harness.Test, st *ir.Step, vars map[string]string) (res StepResult) {
	res = StepResult{Name: st.Name, Kind: st.Kind(), Passed: true}
	start := time.Now()
	defer func() { res.DurationMs = float64(time.Since(start).Milliseconds()) }()

	var sub *subject
	switch res.Kind {
	case ir.KindRequest:
		sub = r.doRequest(ctx, ht, &res, *st.Request, vars, false)
	case ir.KindIntercept:
		r.doIntercept(ht, &res, *st.Intercept, vars)
	case ir.KindTrigger:
		if st.Trigger.Request != nil {
			sub = r.doRequest(ctx, ht, &res, *st.Trigger.Request, vars, true)
		} else {
			ua := st.Trigger.UI
			args := make([]string, len(ua.Args))
			for i, a := range ua.Args {
				args[i] = interpolate(a, vars)
			}
			if err := ht.Trigger(ctx, ua.Action, args...); err != nil {
				res.fail(fmt.Sprintf("ui action %s: %v", ua.Action, err))
			}
		}
	case ir.KindWait:
		sub = r.doWait(ctx, ht, &res, *st.Wait)
	case ir.KindRender:
		sub = r.doRender(ctx, ht, &res, *st.Render)
	default:
		res.fail("step sets no action")
	}

	if !res.Passed {
		// The action itself failed; expectations would only repeat it.
		return res
	}

	for _, exp := range st.Expect {
		if err := r.check(ctx, exp, sub, ht, vars); err != nil {
			res.fail(err.Error())
		}
	}
	if len(st.RequestExpect) > 0 && sub != nil && sub.req != nil {
		reqSub := &subject{body: sub.req.Body, method: sub.req.Method, url: sub.req.URL, req: sub.req}
		for _, exp := range st.RequestExpect {
			if err := r.check(ctx, exp, reqSub, ht, vars); err != nil {
				res.fail("request " + err.Error())
			}
		}
	}

	for name, path := range st.Save {
		if sub == nil {
			res.fail(fmt.Sprintf("save %s: step has no body", name))
			continue
		}
		v := gjson.GetBytes(sub.body, path)
		if !v.Exists() {
			res.fail(fmt.Sprintf("save %s: %s not found", name, path))
			continue
		}
		vars[name] = v.String()
	}
	return res
}

// doRequest sends a direct call, or with app set, a call through the
// interception layer as the application under test would.
func (r *Runner) doRequest(ctx context.Context, ht *harness.Test, res *StepResult, rq ir.Request, vars map[string]string, app bool) *subject {
	req := expandRequest(rq, vars)
	res.Method = req.Method
	res.URL = req.URL
	res.ReqHeaders = headerMap(req.Headers)
	res.ReqBody = stringifyBody(req.Body)

	// Guard unresolved vars in URL (clear error instead of bad URL)
	if unresolved := findUnresolved(req.URL); len(unresolved) > 0 {
		res.fail(fmt.Sprintf("unresolved variables in URL: %s (define via --env or use ${VAR|default})",
			strings.Join(unresolved, ", ")))
		return nil
	}

	var (
		out *exchange.Response
		err error
	)
	if app {
		out, err = ht.AppRequest(ctx, req.Method, req.URL, req.Body, req.Headers)
	} else {
		out, err = ht.Request(ctx, req.Method, req.URL, req.Body, requestOptions(req))
	}
	if out != nil {
		res.StatusCode = out.StatusCode
		res.RespHeaders = out.Headers
		res.RespBody = limitBody(out.Body, reportBodyCap)
	}
	if err != nil {
		res.fail(fmt.Sprintf("request error: %v", err))
		return nil
	}
	return &subject{status: out.StatusCode, body: out.Body, method: req.Method, url: req.URL, resp: out}
}

func (r *Runner) doIntercept(ht *harness.Test, res *StepResult, ic ir.Intercept, vars map[string]string) {
	ic = expandIntercept(ic, vars)
	res.Alias = ic.As
	res.Method = ic.Method
	res.URL = ic.URL
	if unresolved := findUnresolved(ic.URL); len(unresolved) > 0 {
		res.fail(fmt.Sprintf("unresolved variables in intercept URL: %s", strings.Join(unresolved, ", ")))
		return
	}
	if err := ht.Intercept(ic.Method, ic.URL, behaviorOf(ic), ic.As); err != nil {
		res.fail(fmt.Sprintf("intercept %s: %v", ic.As, err))
	}
}

func behaviorOf(ic ir.Intercept) intercept.Behavior {
	switch {
	case ic.Mock != nil:
		return intercept.Mock{
			Fixture:    ic.Mock.Fixture,
			Body:       ic.Mock.Body,
			StatusCode: ic.Mock.Status,
			Headers:    ic.Mock.Headers,
		}
	case ic.Rewrite != nil:
		var rs []intercept.Rewrite
		if len(ic.Rewrite.Set) > 0 {
			rs = append(rs, intercept.SetFields(ic.Rewrite.Set))
		}
		if len(ic.Rewrite.Delete) > 0 {
			rs = append(rs, intercept.DeleteFields(ic.Rewrite.Delete...))
		}
		return intercept.Chain(rs...)
	default:
		return intercept.PassThrough{}
	}
}

func (r *Runner) doWait(ctx context.Context, ht *harness.Test, res *StepResult, w ir.Wait) *subject {
	res.Alias = w.Alias
	ex, err := ht.Wait(ctx, w.Alias, time.Duration(w.TimeoutMs)*time.Millisecond)
	if ex.Request != nil {
		res.Method = ex.Request.Method
		res.URL = ex.Request.URL
		res.ReqHeaders = ex.Request.Headers
		res.ReqBody = limitBody(ex.Request.Body, reportBodyCap)
	}
	if ex.Response != nil {
		res.StatusCode = ex.Response.StatusCode
		res.RespHeaders = ex.Response.Headers
		res.RespBody = limitBody(ex.Response.Body, reportBodyCap)
	}
	if err != nil {
		res.fail(err.Error())
		return nil
	}
	return &subject{
		status: ex.Response.StatusCode,
		body:   ex.Response.Body,
		method: ex.Request.Method,
		url:    ex.Request.URL,
		resp:   ex.Response,
		req:    ex.Request,
		ex:     &ex,
	}
}

func (r *Runner) doRender(ctx context.Context, ht *harness.Test, res *StepResult, rd ir.Render) *subject {
	tmo := time.Duration(rd.TimeoutMs) * time.Millisecond
	if tmo <= 0 {
		tmo = r.opts.WaitTimeout
	}
	if tmo <= 0 {
		tmo = exchange.DefaultWaitTimeout
	}
	rctx, cancel := context.WithTimeout(ctx, tmo)
	defer cancel()

	res.URL = rd.Selector
	text, err := ht.RenderedText(rctx, rd.Selector)
	if err != nil {
		res.fail(fmt.Sprintf("render %s: %v", rd.Selector, err))
		return nil
	}
	res.RespBody = limitBody([]byte(text), reportBodyCap)
	return &subject{body: []byte(text)}
}

func headerMap(h map[string]string) map[string][]string {
	if h == nil {
		return nil
	}
	out := make(http.Header, len(h))
	for k, v := range h {
		out.Set(k, v)
	}
	return out
}
