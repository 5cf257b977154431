package fixture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"sea-intercept/internal/logger"
)

// Fixture is a parsed, immutable document. Body is a schema-less value
// (map[string]any, []any or a scalar) shared by every consumer, so it must
// be treated as read-only. Raw is its canonical JSON encoding.
type Fixture struct {
	Name string
	Body any
	Raw  []byte
}

type NotFoundError struct {
	Name string
	Err  error
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("fixture %q not found", e.Name) }
func (e *NotFoundError) Unwrap() error { return e.Err }

type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("fixture %q: parse: %v", e.Name, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Resolver loads each fixture name at most once per run. Failed parses are
// not cached, so a fixed document is picked up on the next Resolve.
type Resolver struct {
	store Store
	log   logger.Logger

	mu    sync.Mutex
	cache map[string]*Fixture
	loads int
}

func NewResolver(store Store, l logger.Logger) *Resolver {
	if l == nil {
		l = logger.NewNop()
	}
	return &Resolver{store: store, log: l, cache: map[string]*Fixture{}}
}

func (r *Resolver) Resolve(name string) (*Fixture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.cache[name]; ok {
		return f, nil
	}

	r.loads++
	raw, err := r.store.Load(name)
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, &NotFoundError{Name: name, Err: err}
		}
		return nil, fmt.Errorf("fixture %q: %w", name, err)
	}

	body, err := parse(r.formatOf(name), raw)
	if err != nil {
		r.log.Warn("fixture parse failed", "name", name, "err", err)
		return nil, &ParseError{Name: name, Err: err}
	}
	canon, err := json.Marshal(body)
	if err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}

	f := &Fixture{Name: name, Body: body, Raw: canon}
	r.cache[name] = f
	r.log.Debug("fixture loaded", "name", name, "bytes", len(raw))
	return f, nil
}

// Loads reports how many times the store was hit.
func (r *Resolver) Loads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

type pather interface {
	Path(name string) (string, error)
}

func (r *Resolver) formatOf(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		if p, ok := r.store.(pather); ok {
			if path, err := p.Path(name); err == nil {
				ext = strings.ToLower(filepath.Ext(path))
			}
		}
	}
	if ext == ".yaml" || ext == ".yml" {
		return "yaml"
	}
	return "json"
}

func parse(format string, raw []byte) (any, error) {
	var v any
	if format == "yaml" {
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after document")
	}
	return v, nil
}
