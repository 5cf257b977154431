package expect_test

import (
	"errors"
	"strings"
	"testing"

	"sea-intercept/internal/expect"
)

const usersPage = `{"page":2,"total":12,"data":[{"id":7,"email":"michael.lawson@reqres.in"}]}`

func TestEqual_NumbersByValue(t *testing.T) {
	if err := expect.Equal("id", 2, float64(2)); err != nil {
		t.Fatalf("2 vs 2.0: %v", err)
	}
	if err := expect.Equal("obj", map[string]any{"id": 2}, map[string]any{"id": 2.0}); err != nil {
		t.Fatalf("nested numbers: %v", err)
	}
	err := expect.Equal("name", "morpheus", "neo")
	var ae *expect.AssertionError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AssertionError, got %v", err)
	}
	if ae.Expected != "morpheus" || ae.Actual != "neo" {
		t.Fatalf("payload = %+v", ae)
	}
	if !strings.Contains(err.Error(), "expected morpheus, got neo") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestEqual_CompositeDiff(t *testing.T) {
	err := expect.Equal("body", map[string]any{"a": 1}, map[string]any{"a": 2})
	var ae *expect.AssertionError
	if !errors.As(err, &ae) || ae.Diff == "" {
		t.Fatalf("expected diff, got %v", err)
	}
}

func TestProperties(t *testing.T) {
	body := []byte(usersPage)
	for _, p := range []string{"data", "page", "total", "data.0.email"} {
		if err := expect.HasProperty(body, p); err != nil {
			t.Fatalf("HasProperty(%s): %v", p, err)
		}
	}
	if err := expect.HasProperty(body, "token"); err == nil {
		t.Fatal("token should be missing")
	}
	if err := expect.HasProperty([]byte("<html>"), "data"); err == nil {
		t.Fatal("non-JSON body should fail")
	}
	if err := expect.PropertyEquals(body, "data.0.id", 7); err != nil {
		t.Fatalf("PropertyEquals: %v", err)
	}
	if err := expect.PropertyEquals(body, "page", 3); err == nil {
		t.Fatal("page 2 != 3")
	}
}

func TestStatus(t *testing.T) {
	if err := expect.Status(400, 400); err != nil {
		t.Fatal(err)
	}
	if err := expect.Status(200, 201); err == nil || !strings.Contains(err.Error(), "expected 201, got 200") {
		t.Fatalf("got %v", err)
	}
}

func TestContainment(t *testing.T) {
	rendered := `{"data":{"email":"test987@reqres.in","first_name":"Test","last_name":"User"}}`

	if err := expect.Contains(rendered, "test987@reqres.in"); err != nil {
		t.Fatal(err)
	}
	if err := expect.ContainsAll(rendered, "Test", "User", "nope", "nada"); err == nil ||
		!strings.Contains(err.Error(), `"nope" and "nada"`) {
		t.Fatalf("ContainsAll should list missing, got %v", err)
	}

	err := expect.Text(rendered).Contains("test987@reqres.in").And("Test").And("User").Err()
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	err = expect.Text(rendered).Contains("missing").And("Test").Err()
	if err == nil || !strings.Contains(err.Error(), `"missing"`) {
		t.Fatalf("first failure should stick, got %v", err)
	}
}
