package vars_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sea-intercept/internal/vars"
)

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	fp := filepath.Join(dir, name)
	if err := os.WriteFile(fp, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return fp
}

func TestLoadFiles_JSON(t *testing.T) {
	fp := write(t, t.TempDir(), "env.json", `{"BASE_URL":"http://x","NUM":42,"BOOL":true}`)
	m, err := vars.LoadFiles([]string{fp})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	want := map[string]string{"BASE_URL": "http://x", "NUM": "42", "BOOL": "true"}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Fatalf("vars mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFiles_YAMLOverridesJSON(t *testing.T) {
	dir := t.TempDir()
	base := write(t, dir, "env.json", `{"BASE_URL":"http://x","USER_ID":"2"}`)
	local := write(t, dir, "local.yaml", "BASE_URL: http://localhost:8080\nTIMEOUT: 5\n")

	m, err := vars.LoadFiles([]string{base, "", local})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	want := map[string]string{"BASE_URL": "http://localhost:8080", "USER_ID": "2", "TIMEOUT": "5"}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Fatalf("vars mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFiles_BadFile(t *testing.T) {
	fp := write(t, t.TempDir(), "env.json", `{not json`)
	if _, err := vars.LoadFiles([]string{fp}); err == nil {
		t.Fatal("expected parse error")
	}
}
