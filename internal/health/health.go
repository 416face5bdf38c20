// Package health provides HTTP liveness and readiness handlers for the
// voxwire client.
//
// Two endpoints are exposed:
//
//   - /healthz — liveness probe; always returns 200 OK.
//   - /readyz  — readiness probe; returns 200 only when every registered
//     [Probe] passes.
//
// Responses are JSON with a top-level "status" field ("ok" or "fail"), the
// current realtime session state, and a "checks" map with each probe result.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds a single readiness probe.
const probeTimeout = 5 * time.Second

// Probe is a named readiness check. Check returns nil when the dependency is
// healthy and an error describing the failure otherwise. It must respect
// context cancellation.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// StateFunc reports the current realtime session state as a short string
// (e.g. "open", "idle", "closed"). Optional; when nil the session field is
// omitted from responses.
type StateFunc func() string

// report is the JSON response body for both endpoints.
type report struct {
	Status  string            `json:"status"`
	Session string            `json:"session,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Handler serves the health endpoints. Safe for concurrent use; the probe
// list is fixed at construction time.
type Handler struct {
	probes []Probe
	state  StateFunc
}

// New creates a [Handler] evaluating the given probes on each /readyz
// request, in order.
func New(probes ...Probe) *Handler {
	p := make([]Probe, len(probes))
	copy(p, probes)
	return &Handler{probes: p}
}

// WithSessionState attaches a [StateFunc] whose result is included in every
// response. Returns h for chaining.
func (h *Handler) WithSessionState(fn StateFunc) *Handler {
	h.state = fn
	return h
}

// Healthz is a liveness probe that always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: "ok", Session: h.sessionState()})
}

// Readyz returns 200 only when every registered [Probe] passes. Each probe
// runs under a [probeTimeout] deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.probes))
	allOK := true

	for _, p := range h.probes {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := p.Check(ctx)
		cancel()

		if err != nil {
			checks[p.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[p.Name] = "ok"
		}
	}

	res := report{
		Status:  "ok",
		Session: h.sessionState(),
		Checks:  checks,
	}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func (h *Handler) sessionState() string {
	if h.state == nil {
		return ""
	}
	return h.state()
}

// writeJSON encodes v as JSON with the given status code. On encoding failure
// it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
