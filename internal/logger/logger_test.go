package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"sea-intercept/internal/logger"
)

func TestFromWriter_LevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := logger.FromWriter(&buf, "info").With("alias", "getUser")

	l.Debug("dropped")
	l.Info("exchange completed", "status", 200, "err", errors.New("boom"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("want 1 line (debug filtered), got %d: %s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal(lines[0], &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["message"] != "exchange completed" || rec["alias"] != "getUser" || rec["err"] != "boom" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["status"] != float64(200) {
		t.Fatalf("status = %v", rec["status"])
	}
}

func TestNop(t *testing.T) {
	l := logger.NewNop()
	l.Error("nothing", "k")
	l.With("a", 1).Warn("still nothing")
}
