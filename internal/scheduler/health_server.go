package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// HealthServer exposes the scheduler's liveness/readiness state over HTTP,
// generalizing the teacher's HealthHandler (internal/infra/worker/health.go)
// from a database/rate-limiter health payload to a scheduled-source one.
type HealthServer struct {
	Scheduler *Scheduler
	Logger    *slog.Logger

	srv *http.Server
}

// NewHealthServer builds a HealthServer bound to addr (":8090" etc).
func NewHealthServer(sched *Scheduler, logger *slog.Logger, addr string) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HealthServer{Scheduler: sched, Logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", h.handleLive)
	mux.HandleFunc("/healthz", h.handleHealth)
	h.srv = &http.Server{Addr: addr, Handler: mux}
	return h
}

// handleLive reports process liveness only: it always returns 200 once the
// server is serving, regardless of per-source health.
func (h *HealthServer) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"alive"}`))
}

// handleHealth reports scheduler readiness: HealthSummary as JSON, with a
// 503 when the scheduler isn't running or any source is in the failing band.
func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	summary := h.Scheduler.Health()
	w.Header().Set("Content-Type", "application/json")
	if !summary.SchedulerRunning || summary.Failing > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		h.Logger.Error("health: encode response failed", slog.Any("error", err))
	}
}

// Start begins serving in the background. Errors other than a clean
// shutdown are logged, mirroring the teacher's fire-and-forget
// http.Server.ListenAndServe goroutine pattern.
func (h *HealthServer) Start() {
	go func() {
		if err := h.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.Logger.Error("health server stopped", slog.Any("error", err))
		}
	}()
}

// Stop gracefully shuts the health server down.
func (h *HealthServer) Stop(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}
