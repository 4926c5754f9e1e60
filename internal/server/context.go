package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teemow/meetgate/internal/calendar"
	"github.com/teemow/meetgate/internal/events"
	"github.com/teemow/meetgate/internal/instrumentation"
	"github.com/teemow/meetgate/internal/logging"
	"github.com/teemow/meetgate/internal/orchestrator"
	"github.com/teemow/meetgate/internal/store"
)

// ServerContext holds the long-lived collaborators shared by the HTTP API and
// the MCP tools.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	orch     *orchestrator.Orchestrator
	registry *events.Registry
	store    store.Store
	logger   *slog.Logger

	mu           sync.RWMutex
	availability calendar.AvailabilityProvider
	metrics      *instrumentation.Metrics
	audit        *instrumentation.AuditLogger
	shutdown     bool
}

// NewServerContext creates a new server context. The store and registry are
// owned by the context and released on Shutdown.
func NewServerContext(ctx context.Context, orch *orchestrator.Orchestrator, registry *events.Registry, st store.Store, logger *slog.Logger) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		orch:     orch,
		registry: registry,
		store:    st,
		logger:   logging.WithComponent(logger, "server"),
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Orchestrator returns the job orchestrator.
func (sc *ServerContext) Orchestrator() *orchestrator.Orchestrator {
	return sc.orch
}

// Registry returns the event subscriber registry.
func (sc *ServerContext) Registry() *events.Registry {
	return sc.registry
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Availability returns the provider used for ad-hoc slot previews, or nil.
func (sc *ServerContext) Availability() calendar.AvailabilityProvider {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.availability
}

// SetAvailability sets the provider used for ad-hoc slot previews.
func (sc *ServerContext) SetAvailability(p calendar.AvailabilityProvider) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.availability = p
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil when auditing is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.audit
}

// SetInstrumentation sets the metrics recorder and audit logger used by the
// tool handlers. Either may be nil.
func (sc *ServerContext) SetInstrumentation(metrics *instrumentation.Metrics, audit *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
	sc.audit = audit
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the context, ends every open event stream and closes the
// store. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	if sc.registry != nil {
		sc.registry.Shutdown()
	}
	if sc.store != nil {
		return sc.store.Close()
	}
	return nil
}
