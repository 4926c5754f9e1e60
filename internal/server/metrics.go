package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/teemow/meetgate/internal/instrumentation"
	"github.com/teemow/meetgate/internal/logging"
)

// DefaultMetricsAddr is where Prometheus scrapes unless metrics.addr says
// otherwise.
const DefaultMetricsAddr = ":9090"

// MetricsServerConfig configures the scrape endpoint.
type MetricsServerConfig struct {
	Addr string

	// InstrumentationProvider must be enabled and use the prometheus
	// exporter.
	InstrumentationProvider *instrumentation.Provider

	Logger *slog.Logger
}

// MetricsServer serves /metrics on its own port so scrapes never share the
// meeting API's listener or CORS policy.
type MetricsServer struct {
	srv    *http.Server
	logger *slog.Logger

	mu   sync.Mutex
	addr string
}

// NewMetricsServer checks that there is something to scrape and builds the
// server. Nothing listens until Start.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	p := config.InstrumentationProvider
	switch {
	case p == nil:
		return nil, errors.New("instrumentation provider is required for metrics server")
	case !p.Enabled():
		return nil, errors.New("instrumentation provider is not enabled")
	case p.PrometheusHandler() == nil:
		return nil, errors.New("prometheus exporter is not configured")
	}
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", p.PrometheusHandler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:              config.Addr,
			Handler:           mux,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       defaultIdleTimeout,
		},
		logger: logging.WithComponent(config.Logger, "metrics"),
		addr:   config.Addr,
	}, nil
}

// Handler returns the routes: /metrics and /healthz.
func (s *MetricsServer) Handler() http.Handler {
	return s.srv.Handler
}

// Addr is the configured address until Start binds, then the bound one.
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds and serves until Shutdown, after which it returns
// http.ErrServerClosed.
func (s *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info("starting metrics server", "addr", s.addr)
	return s.srv.Serve(ln)
}

// Shutdown stops the server. It is safe to call without Start.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down metrics server")
	return s.srv.Shutdown(ctx)
}
