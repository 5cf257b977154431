package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"sea-intercept/internal/expect"
	"sea-intercept/internal/harness"
	"sea-intercept/internal/ir"
)

func (r *Runner) check(ctx context.Context, exp ir.Expectation, sub *subject, ht *harness.Test, vars map[string]string) error {
	if sub == nil {
		return fmt.Errorf("%s: step produced nothing to check", exp.Type)
	}

	switch exp.Type {
	case ir.ExpectStatus:
		want, ok := toInt(exp.Value)
		if !ok {
			return fmt.Errorf("status expectation has non-integer value %v", exp.Value)
		}
		if sub.status == 0 {
			return errors.New("status: step has no response")
		}
		return expect.Status(sub.status, want)

	case ir.ExpectJSONPath:
		want := walkInterpolate(exp.Value, vars)
		return expect.PropertyEquals(sub.body, jsonPath(exp.Target), want)

	case ir.ExpectProperty:
		return expect.HasProperty(sub.body, jsonPath(exp.Target))

	case ir.ExpectContains:
		subs, err := stringList(walkInterpolate(exp.Value, vars))
		if err != nil {
			return fmt.Errorf("contains: %w", err)
		}
		return expect.ContainsAll(string(sub.body), subs...)

	case ir.ExpectContainsFixture:
		ref, err := fixtureRef(exp.Value)
		if err != nil {
			return fmt.Errorf("containsFixture: %w", err)
		}
		fx, err := ht.Fixture(interpolate(ref.Fixture, vars))
		if err != nil {
			return err
		}
		subs := make([]string, 0, len(ref.Paths))
		for _, p := range ref.Paths {
			v := gjson.GetBytes(fx.Raw, p)
			if !v.Exists() {
				return fmt.Errorf("containsFixture: %s has no %s", fx.Name, p)
			}
			subs = append(subs, v.String())
		}
		return expect.ContainsAll(string(sub.body), subs...)

	case ir.ExpectContract:
		if r.contractV == nil {
			return errors.New("contract: requested but no OpenAPI spec configured")
		}
		var err error
		switch {
		case sub.ex != nil:
			_, err = r.contractV.ValidateExchange(ctx, *sub.ex)
		case sub.resp != nil:
			_, err = r.contractV.ValidateResponse(ctx, sub.method, sub.url, sub.resp)
		case sub.req != nil:
			_, err = r.contractV.ValidateRequest(ctx, sub.req)
		default:
			return errors.New("contract: step has no HTTP traffic")
		}
		if err != nil {
			return fmt.Errorf("contract: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown expectation type: %s", exp.Type)
	}
}

// jsonPath accepts the "$.a.b" form older suites use as well as gjson
// paths.
func jsonPath(target string) string {
	return strings.TrimPrefix(strings.TrimPrefix(target, "$"), ".")
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	}
	return 0, false
}

func stringList(v any) ([]string, error) {
	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []string:
		return x, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, fmt.Sprint(e))
		}
		return out, nil
	}
	return nil, fmt.Errorf("value must be a string or a list, got %T", v)
}

func fixtureRef(v any) (ir.FixtureRef, error) {
	switch x := v.(type) {
	case ir.FixtureRef:
		return x, nil
	case *ir.FixtureRef:
		return *x, nil
	case map[string]any:
		var ref ir.FixtureRef
		ref.Fixture, _ = x["fixture"].(string)
		paths, err := stringList(x["paths"])
		if err != nil {
			return ref, fmt.Errorf("paths: %w", err)
		}
		ref.Paths = paths
		if ref.Fixture == "" {
			return ref, errors.New("fixture must not be empty")
		}
		return ref, nil
	}
	return ir.FixtureRef{}, fmt.Errorf("value must be {fixture, paths}, got %T", v)
}
