package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusFailing      = "failing"
)

// storeProbeTimeout bounds the job store listing done by readiness probes.
const storeProbeTimeout = 2 * time.Second

// HealthChecker serves the liveness and readiness probes of the API server.
type HealthChecker struct {
	ready   atomic.Bool
	sc      *ServerContext
	started time.Time
}

// NewHealthChecker returns a checker that reports ready until SetReady(false).
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{sc: sc, started: time.Now()}
	h.ready.Store(true)
	return h
}

// SetReady flips readiness. The HTTP server clears it before draining.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness flag alone, without running the probes.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status      string            `json:"status"`
	Uptime      string            `json:"uptime"`
	Jobs        int               `json:"jobs"`
	Subscribers int               `json:"subscribers"`
	Checks      map[string]string `json:"checks"`
}

// RegisterHealthEndpoints mounts /healthz, /readyz and /healthz/detailed.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("GET /healthz", h.LivenessHandler())
	mux.Handle("GET /readyz", h.ReadinessHandler())
	mux.Handle("GET /healthz/detailed", h.DetailedHealthHandler())
}

// LivenessHandler answers 200 as long as the process can serve HTTP at all.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers 503 while draining, after shutdown, or when the
// job store cannot be listed.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, _, ok := h.probe(r.Context())
		resp := HealthResponse{Status: healthStatusOK, Checks: checks}
		code := http.StatusOK
		if !ok {
			resp.Status = healthStatusNotReady
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, resp)
	})
}

// DetailedHealthHandler adds uptime and job and subscriber counts to the
// readiness checks.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, jobs, ok := h.probe(r.Context())
		resp := DetailedHealthResponse{
			Status: healthStatusOK,
			Uptime: time.Since(h.started).Truncate(time.Second).String(),
			Jobs:   jobs,
			Checks: checks,
		}
		if h.sc != nil && h.sc.Registry() != nil {
			resp.Subscribers = h.sc.Registry().Len()
		}
		code := http.StatusOK
		if !ok {
			resp.Status = healthStatusNotReady
			if h.shuttingDown() {
				resp.Status = healthStatusShuttingDown
			}
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, resp)
	})
}

// probe runs the readiness checks and returns them with the stored job count.
func (h *HealthChecker) probe(ctx context.Context) (map[string]string, int, bool) {
	checks := map[string]string{
		"ready":    healthStatusOK,
		"shutdown": healthStatusOK,
	}
	ok := true
	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		ok = false
	}
	if h.shuttingDown() {
		checks["shutdown"] = healthStatusShuttingDown
		ok = false
	}

	jobs := 0
	if ok && h.sc != nil && h.sc.store != nil {
		ctx, cancel := context.WithTimeout(ctx, storeProbeTimeout)
		defer cancel()
		ids, err := h.sc.store.List(ctx)
		if err != nil {
			h.sc.Logger().Warn("readiness store probe failed", "error", err)
			checks["store"] = healthStatusFailing
			ok = false
		} else {
			checks["store"] = healthStatusOK
			jobs = len(ids)
		}
	}
	return checks, jobs, ok
}

func (h *HealthChecker) shuttingDown() bool {
	return h.sc != nil && h.sc.IsShutdown()
}

func writeHealth(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
