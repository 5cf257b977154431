package ui_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sea-intercept/internal/ui"
)

// TestHelperProcess is the driver binary for the tests below. It is a no-op
// unless run as a child by helper().
func TestHelperProcess(t *testing.T) {
	if os.Getenv("SEA_UI_HELPER") != "1" {
		return
	}
	var in ui.Input
	_ = json.NewDecoder(os.Stdin).Decode(&in)

	var out ui.Output
	switch {
	case in.Op == "read":
		out.Text = in.Selector + "|" + os.Getenv("HTTP_PROXY")
	case in.Action == "boom":
		out.Error = "element not found"
	case in.Action == "hang":
		time.Sleep(5 * time.Second)
	}
	_ = json.NewEncoder(os.Stdout).Encode(out)
	os.Exit(0)
}

func helper() *ui.Process {
	return &ui.Process{
		Cmd:  os.Args[0],
		Args: []string{"-test.run=TestHelperProcess", "--"},
		Env:  map[string]string{"SEA_UI_HELPER": "1"},
	}
}

func TestProcess_DoAndRead(t *testing.T) {
	ctx := context.Background()
	d := helper().WithProxy("http://127.0.0.1:9999")

	require.NoError(t, d.Do(ctx, "click", "users-single"))

	text, err := d.ReadRenderedText(ctx, "#out")
	require.NoError(t, err)
	assert.Equal(t, "#out|http://127.0.0.1:9999", text)
}

func TestProcess_DriverError(t *testing.T) {
	err := helper().Do(context.Background(), "boom")
	require.Error(t, err)
	assert.Equal(t, "element not found", err.Error())
}

func TestProcess_Timeout(t *testing.T) {
	p := helper()
	p.Timeout = 200 * time.Millisecond
	start := time.Now()
	err := p.Do(context.Background(), "hang")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestProcess_WithEnvCopies(t *testing.T) {
	p := helper()
	q := p.WithEnv(map[string]string{"EXTRA": "1"})
	assert.NotContains(t, p.Env, "EXTRA")
	assert.Equal(t, "1", q.Env["EXTRA"])
	assert.Equal(t, "1", q.Env["SEA_UI_HELPER"])
}

func TestNop(t *testing.T) {
	var d ui.Driver = ui.Nop{}
	assert.True(t, errors.Is(d.Do(context.Background(), "click"), ui.ErrNoDriver))
	_, err := d.ReadRenderedText(context.Background(), "x")
	assert.ErrorIs(t, err, ui.ErrNoDriver)

	var empty ui.Process
	assert.ErrorIs(t, empty.Do(context.Background(), "click"), ui.ErrNoDriver)
}
