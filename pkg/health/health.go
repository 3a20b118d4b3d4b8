package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Checker probes one dependency. It must return once ctx is done.
type Checker func(ctx context.Context) error

// Status of a dependency or of the whole instance.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Response is the body of both endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is one dependency's outcome.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type dependency struct {
	check    Checker
	critical bool
}

// Handler serves /health/live and /health/ready. A critical dependency that
// is down makes the instance unready; any other failure only degrades it.
type Handler struct {
	mu      sync.RWMutex
	deps    map[string]dependency
	timeout time.Duration
}

// NewHandler returns a Handler whose readiness checks share a 5s budget.
func NewHandler() *Handler {
	return &Handler{deps: make(map[string]dependency), timeout: 5 * time.Second}
}

// RegisterCritical adds a dependency the instance cannot serve without.
// Registering a name again replaces it.
func (h *Handler) RegisterCritical(name string, c Checker) { h.register(name, c, true) }

// RegisterNonCritical adds a dependency whose loss degrades the instance.
func (h *Handler) RegisterNonCritical(name string, c Checker) { h.register(name, c, false) }

func (h *Handler) register(name string, c Checker, critical bool) {
	h.mu.Lock()
	h.deps[name] = dependency{check: c, critical: critical}
	h.mu.Unlock()
}

// LivenessHandler answers 200 while the process can serve HTTP at all.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, Response{Status: StatusUp, Timestamp: time.Now().UTC()})
	}
}

// ReadinessHandler probes every dependency in parallel. It answers 503 when
// a critical one is down and 200 otherwise.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		checks := h.probe(ctx)
		resp := Response{Status: summarize(checks), Timestamp: time.Now().UTC(), Checks: checks}
		code := http.StatusOK
		if resp.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		write(w, code, resp)
	}
}

func (h *Handler) probe(ctx context.Context) map[string]CheckResult {
	h.mu.RLock()
	deps := make(map[string]dependency, len(h.deps))
	for name, d := range h.deps {
		deps[name] = d
	}
	h.mu.RUnlock()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]CheckResult, len(deps))
	)
	for name, d := range deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := CheckResult{Status: StatusUp, Critical: d.critical}
			if err := d.check(ctx); err != nil {
				res.Status, res.Error = StatusDown, err.Error()
			}
			mu.Lock()
			out[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

func summarize(checks map[string]CheckResult) Status {
	overall := StatusUp
	for _, c := range checks {
		switch {
		case c.Status != StatusDown:
		case c.Critical:
			return StatusDown
		default:
			overall = StatusDegraded
		}
	}
	return overall
}

func write(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
