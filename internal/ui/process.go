package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"sea-intercept/internal/logger"
)

// Input is written as one JSON document to the driver's stdin.
type Input struct {
	Op       string   `json:"op"` // "do" | "read"
	Action   string   `json:"action,omitempty"`
	Args     []string `json:"args,omitempty"`
	Selector string   `json:"selector,omitempty"`
}

// Output is read as one JSON document from the driver's stdout.
type Output struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Process runs an external command per UI operation. The command talks
// JSON over stdin/stdout and is handed the interception proxy through
// HTTP_PROXY so the calls it triggers are visible to the registry.
type Process struct {
	Cmd     string
	Args    []string
	Env     map[string]string
	Timeout time.Duration
	Log     logger.Logger
}

func (p *Process) Do(ctx context.Context, action string, args ...string) error {
	_, err := p.run(ctx, Input{Op: "do", Action: action, Args: args})
	return err
}

func (p *Process) ReadRenderedText(ctx context.Context, selector string) (string, error) {
	out, err := p.run(ctx, Input{Op: "read", Selector: selector})
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// WithEnv returns a copy of p with extra environment entries.
func (p *Process) WithEnv(kv map[string]string) *Process {
	c := *p
	c.Env = make(map[string]string, len(p.Env)+len(kv))
	for k, v := range p.Env {
		c.Env[k] = v
	}
	for k, v := range kv {
		c.Env[k] = v
	}
	return &c
}

func (p *Process) run(ctx context.Context, in Input) (*Output, error) {
	if p.Cmd == "" {
		return nil, ErrNoDriver
	}
	tmo := p.Timeout
	if tmo <= 0 {
		tmo = 10 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, tmo)
	defer cancel()

	cmd := exec.CommandContext(cctx, p.Cmd, p.Args...)
	cmd.Env = os.Environ()
	for k, v := range p.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	if err := json.NewEncoder(stdin).Encode(in); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return nil, fmt.Errorf("encode stdin: %w", err)
	}
	_ = stdin.Close()

	var out Output
	if err := json.NewDecoder(stdout).Decode(&out); err != nil {
		_ = cmd.Wait()
		return nil, fmt.Errorf("decode stdout: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ui driver exit: %w", err)
	}
	if p.Log != nil {
		p.Log.Debug("ui driver op", "op", in.Op, "action", in.Action, "selector", in.Selector)
	}
	if out.Error != "" {
		return nil, errors.New(out.Error)
	}
	return &out, nil
}

func (p *Process) WithProxy(proxyURL string) Driver {
	return p.WithEnv(map[string]string{"HTTP_PROXY": proxyURL, "http_proxy": proxyURL})
}
