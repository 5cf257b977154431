package exchange

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"sea-intercept/internal/logger"
)

// Recorder owns every Exchange of one test. State changes are broadcast by
// closing the current changed channel and replacing it, which is what
// Waiter blocks on.
type Recorder struct {
	log logger.Logger

	mu      sync.Mutex
	current map[string]*Exchange
	history []*Exchange
	changed chan struct{}
}

func NewRecorder(l logger.Logger) *Recorder {
	if l == nil {
		l = logger.NewNop()
	}
	return &Recorder{
		log:     l,
		current: map[string]*Exchange{},
		changed: make(chan struct{}),
	}
}

// Begin opens a pending exchange for alias. A completed or failed exchange
// under the same alias is superseded; a pending one is a conflict.
func (r *Recorder) Begin(alias string, req *Request) (Exchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.current[alias]; ok {
		if cur.State == Pending {
			return Exchange{}, &AliasConflictError{Alias: alias}
		}
		r.log.Debug("alias reused after completion", "alias", alias, "previous", cur.ID)
	}

	ex := &Exchange{
		ID:        uuid.NewString(),
		Alias:     alias,
		State:     Pending,
		Request:   req.Clone(),
		StartedAt: time.Now(),
	}
	r.current[alias] = ex
	r.history = append(r.history, ex)
	r.broadcast()
	r.log.Debug("exchange begun", "alias", alias, "id", ex.ID, "method", req.Method, "url", req.URL)
	return ex.snapshot(), nil
}

// Amend replaces the request snapshot of a pending exchange, used once a
// rewrite has produced the request that is actually sent.
func (r *Recorder) Amend(alias string, req *Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ex, ok := r.current[alias]; ok && ex.State == Pending {
		ex.Request = req.Clone()
	}
}

func (r *Recorder) Complete(alias string, resp *Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.current[alias]
	if !ok || ex.State != Pending {
		r.log.Debug("late completion ignored", "alias", alias)
		return
	}
	ex.State = Completed
	ex.Response = resp.Clone()
	ex.FinishedAt = time.Now()
	r.broadcast()
	r.log.Debug("exchange completed", "alias", alias, "id", ex.ID, "status", resp.StatusCode, "duration", ex.Duration())
}

func (r *Recorder) Fail(alias string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.current[alias]
	if !ok || ex.State != Pending {
		r.log.Debug("late failure ignored", "alias", alias, "err", err)
		return
	}
	ex.State = Failed
	ex.Err = err
	ex.FinishedAt = time.Now()
	r.broadcast()
	r.log.Debug("exchange failed", "alias", alias, "id", ex.ID, "err", err)
}

// Get returns a copy of the latest exchange recorded under alias.
func (r *Recorder) Get(alias string) (Exchange, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.current[alias]
	if !ok {
		return Exchange{}, false
	}
	return ex.snapshot(), true
}

// Pending reports whether alias has an exchange still in flight.
func (r *Recorder) Pending(alias string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.current[alias]
	return ok && ex.State == Pending
}

// History returns every exchange in begin order.
func (r *Recorder) History() []Exchange {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Exchange, 0, len(r.history))
	for _, ex := range r.history {
		out = append(out, ex.snapshot())
	}
	return out
}

// Reset forgets everything; called at the test boundary.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = map[string]*Exchange{}
	r.history = nil
	r.broadcast()
}

// take hands out the oldest finished exchange for alias that no Await has
// returned yet. The changed channel is captured under the same lock so a
// transition right after take cannot be missed.
func (r *Recorder) take(alias string) (ex *Exchange, started bool, changed <-chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.history {
		if h.Alias != alias || h.consumed {
			continue
		}
		if h.State == Pending {
			started = true
			continue
		}
		h.consumed = true
		snap := h.snapshot()
		return &snap, true, nil
	}
	return nil, started, r.changed
}

// abandon marks the exchanges still pending under alias as already
// handed out. Their late completion stays visible to Get and History but
// never satisfies a later Await.
func (r *Recorder) abandon(alias string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, h := range r.history {
		if h.Alias == alias && !h.consumed && h.State == Pending {
			h.consumed = true
			n++
		}
	}
	return n
}

// must hold mu
func (r *Recorder) broadcast() {
	close(r.changed)
	r.changed = make(chan struct{})
}
