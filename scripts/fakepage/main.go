// fakepage is a stand-in UI driver for the reqres demo page. It speaks the
// process driver protocol: one JSON request on stdin, one JSON answer on
// stdout. A "do click <endpoint>" loads the endpoint the way the page's
// buttons do, through HTTP_PROXY, and keeps the rendered response in a
// state file that a later "read" returns.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type in struct {
	Op       string   `json:"op"`
	Action   string   `json:"action"`
	Args     []string `json:"args"`
	Selector string   `json:"selector"`
}

type out struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

type endpoint struct {
	method, path, body string
}

var endpoints = map[string]endpoint{
	"users-single":       {http.MethodGet, "/api/users/2", ""},
	"users-list":         {http.MethodGet, "/api/users?page=2", ""},
	"post":               {http.MethodPost, "/api/users", `{"name":"morpheus","job":"leader"}`},
	"login-unsuccessful": {http.MethodPost, "/api/login", `{"email":"peter@klaven"}`},
}

func main() {
	var req in
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fmt.Fprintf(os.Stderr, "decode: %v\n", err)
		os.Exit(1)
	}

	var o out
	var err error
	switch req.Op {
	case "do":
		err = do(req)
	case "read":
		o.Text, err = read()
	default:
		err = fmt.Errorf("unknown op %q", req.Op)
	}
	if err != nil {
		o.Error = err.Error()
	}
	_ = json.NewEncoder(os.Stdout).Encode(o)
}

func do(req in) error {
	if req.Action != "click" || len(req.Args) != 1 {
		return fmt.Errorf("unsupported action %s %v", req.Action, req.Args)
	}
	ep, ok := endpoints[req.Args[0]]
	if !ok {
		return fmt.Errorf("no button for %q", req.Args[0])
	}
	base := strings.TrimRight(env("BASE_URL", "http://localhost:8081"), "/")

	var body io.Reader
	if ep.body != "" {
		body = strings.NewReader(ep.body)
	}
	r, err := http.NewRequest(ep.method, base+ep.path, body)
	if err != nil {
		return err
	}
	if ep.body != "" {
		r.Header.Set("Content-Type", "application/json")
	}

	// ProxyFromEnvironment skips loopback hosts, so the proxy is set
	// explicitly.
	tr := &http.Transport{}
	if p := os.Getenv("HTTP_PROXY"); p != "" {
		pu, err := url.Parse(p)
		if err != nil {
			return fmt.Errorf("HTTP_PROXY: %w", err)
		}
		tr.Proxy = http.ProxyURL(pu)
	}
	resp, err := (&http.Client{Transport: tr, Timeout: 10 * time.Second}).Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "    ") != nil {
		pretty.Reset()
		pretty.Write(raw)
	}
	return os.WriteFile(statePath(), pretty.Bytes(), 0o644)
}

func read() (string, error) {
	b, err := os.ReadFile(statePath())
	if err != nil {
		return "", fmt.Errorf("nothing rendered yet: %w", err)
	}
	return string(b), nil
}

func statePath() string {
	return env("SEA_UI_STATE", filepath.Join(os.TempDir(), "sea-fakepage.txt"))
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
