package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/teemow/meetgate/internal/instrumentation"
	"github.com/teemow/meetgate/internal/logging"
)

const (
	// DefaultAPIAddr is the default address for the meeting API.
	DefaultAPIAddr = ":8080"

	// DefaultReadHeaderTimeout bounds header reads on the API server. There is
	// no write timeout because event streams are long-lived.
	DefaultReadHeaderTimeout = 10 * time.Second

	defaultIdleTimeout = 60 * time.Second
)

// HTTPServerConfig configures the meeting API server.
type HTTPServerConfig struct {
	Addr string

	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables CORS handling.
	CORSOrigins []string

	// Metrics records per-request counters and latencies. May be nil.
	Metrics *instrumentation.Metrics
}

// HTTPServer serves the JSON API, the event streams and the health probes.
type HTTPServer struct {
	httpServer *http.Server
	health     *HealthChecker
	sc         *ServerContext
	addr       string
	logger     *slog.Logger
}

// NewHTTPServer builds the API server over sc.
func NewHTTPServer(sc *ServerContext, config HTTPServerConfig) *HTTPServer {
	if config.Addr == "" {
		config.Addr = DefaultAPIAddr
	}

	s := &HTTPServer{
		health: NewHealthChecker(sc),
		sc:     sc,
		addr:   config.Addr,
		logger: logging.WithComponent(sc.Logger(), "http"),
	}

	mux := http.NewServeMux()
	NewAPI(sc).Register(mux)
	s.health.RegisterHealthEndpoints(mux)

	var handler http.Handler = mux
	handler = requestMetrics(handler, config.Metrics)
	if len(config.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   config.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(handler)
	}

	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	return s
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Health returns the server's health checker.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.addr
}

// Start serves until Shutdown; it then returns http.ErrServerClosed.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting meeting API", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server not ready, ends the open event streams and waits
// for in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down meeting API")
	s.health.SetReady(false)
	if reg := s.sc.Registry(); reg != nil {
		reg.Shutdown()
	}
	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps event streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// requestMetrics records http_requests_total and http_request_duration_seconds.
// Requests are labelled by their route pattern to bound cardinality.
func requestMetrics(next http.Handler, metrics *instrumentation.Metrics) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}
