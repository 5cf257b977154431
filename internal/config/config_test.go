package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sea-intercept/internal/config"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "sea-intercept.yaml")
	body := `
log:
  level: debug
  writer: [console, file]
wait:
  default_timeout: 750ms
fixtures:
  dir: testdata/fixtures
`
	if err := os.WriteFile(fp, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := config.Load(fp, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"console", "file"}, c.Log.Writer); diff != "" {
		t.Fatalf("writers (-want +got):\n%s", diff)
	}
	if c.Wait.DefaultTimeout != 750*time.Millisecond {
		t.Fatalf("wait timeout = %v", c.Wait.DefaultTimeout)
	}
	if c.HTTP.Timeout != 10*time.Second {
		t.Fatalf("http timeout default lost: %v", c.HTTP.Timeout)
	}
	if c.Fixtures.Dir != "testdata/fixtures" {
		t.Fatalf("fixtures dir = %q", c.Fixtures.Dir)
	}
}

func TestLoad_OptionalMissing(t *testing.T) {
	c, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Log.Level != "info" {
		t.Fatalf("level = %q", c.Log.Level)
	}
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
		t.Fatal("expected error for required missing file")
	}
}

func TestLoad_UnknownField(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "c.yaml")
	_ = os.WriteFile(fp, []byte("bogus: 1\n"), 0o644)
	if _, err := config.Load(fp, false); err == nil {
		t.Fatal("expected unknown field error")
	}
}
