package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/meetgate/internal/config"
	"github.com/teemow/meetgate/internal/resources"
	"github.com/teemow/meetgate/internal/server"
	"github.com/teemow/meetgate/internal/tools/meeting_tools"
)

// Supported transports.
const (
	transportHTTP  = "http"
	transportStdio = "stdio"
)

// serveOptions holds the serve flags after environment fallbacks.
type serveOptions struct {
	Transport   string
	Debug       bool
	HTTPAddr    string
	CORSOrigins []string
	Metrics     MetricsConfig
	Creds       googleCredentials
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode          bool
		transport          string
		httpAddr           string
		corsOrigins        string
		metricsEnabled     bool
		metricsAddr        string
		googleClientID     string
		googleClientSecret string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the meeting gatekeeper",
		Long: `Start the meeting gatekeeper.

Supports multiple transports:
  - http: JSON API under /api with a server-sent event stream per job (default)
  - stdio: MCP server over standard input/output for AI assistants

Settings are read from the YAML file given by --config (or MEETGATE_CONFIG).
Flags override the file; environment variables fill in flags that were not set.

Google Calendar (calendar.type: google) needs a token created with
'meetgate auth' and OAuth client credentials from the config file, the
--google-client-id/--google-client-secret flags, or GOOGLE_CLIENT_ID and
GOOGLE_CLIENT_SECRET.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := serveOptions{
				Transport: transport,
				Debug:     debugMode,
				HTTPAddr:  httpAddr,
				Metrics:   MetricsConfig{Enabled: metricsEnabled, Addr: metricsAddr},
				Creds:     googleCredentials{ClientID: googleClientID, ClientSecret: googleClientSecret},
			}
			opts.CORSOrigins = parseCommaSeparatedList(corsOrigins)
			loadServeEnvVars(cmd, &opts)
			return runServe(opts)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", transportHTTP, "Transport type: http or stdio (can also be set via MEETGATE_TRANSPORT env var)")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP API listen address, overrides server.addr (can also be set via MEETGATE_HTTP_ADDR env var)")
	cmd.Flags().StringVar(&corsOrigins, "cors-origins", "", "Comma-separated list of allowed browser origins, overrides server.cors_origins (can also be set via MEETGATE_CORS_ORIGINS env var)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Start the dedicated Prometheus metrics server (can also be set via METRICS_ENABLED env var)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics server listen address, overrides metrics.addr (can also be set via METRICS_ADDR env var)")
	cmd.Flags().StringVar(&googleClientID, "google-client-id", "", "Google OAuth client ID (can also be set via GOOGLE_CLIENT_ID env var)")
	cmd.Flags().StringVar(&googleClientSecret, "google-client-secret", "", "Google OAuth client secret (can also be set via GOOGLE_CLIENT_SECRET env var)")

	return cmd
}

// loadServeEnvVars fills serve options from environment variables.
// Environment variables only override flag values when the flag was not explicitly set.
func loadServeEnvVars(cmd *cobra.Command, opts *serveOptions) {
	if !cmd.Flags().Changed("transport") {
		if t := os.Getenv("MEETGATE_TRANSPORT"); t != "" {
			opts.Transport = t
		}
	}
	if !cmd.Flags().Changed("http-addr") {
		if addr := os.Getenv("MEETGATE_HTTP_ADDR"); addr != "" {
			opts.HTTPAddr = addr
		}
	}
	if !cmd.Flags().Changed("cors-origins") {
		if origins := os.Getenv("MEETGATE_CORS_ORIGINS"); origins != "" {
			opts.CORSOrigins = parseCommaSeparatedList(origins)
		}
	}
	if !cmd.Flags().Changed("metrics-enabled") {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				opts.Metrics.Enabled = enabled
			}
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			opts.Metrics.Addr = addr
		}
	}
}

// applyServeOptions merges command-line overrides into cfg.
func applyServeOptions(cfg *config.Config, opts serveOptions) {
	if opts.HTTPAddr != "" {
		cfg.Server.Addr = opts.HTTPAddr
	}
	if len(opts.CORSOrigins) > 0 {
		cfg.Server.CORSOrigins = opts.CORSOrigins
	}
	cfg.Metrics.Enabled = cfg.Metrics.Enabled && opts.Metrics.Enabled
	if opts.Metrics.Addr != "" {
		cfg.Metrics.Addr = opts.Metrics.Addr
	}
}

func runServe(opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch opts.Transport {
	case transportHTTP, transportStdio:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", opts.Transport, transportHTTP, transportStdio)
	}

	logger := newLogger(os.Stderr, opts.Debug, opts.Transport == transportHTTP)
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeOptions(cfg, opts)

	a, err := newApp(shutdownCtx, cfg, logger, appOptions{Creds: opts.Creds})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.close(ctx); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
	}()

	if opts.Transport == transportStdio {
		mcpSrv, err := newMCPServer(a.sc)
		if err != nil {
			return err
		}
		return runStdioServer(mcpSrv)
	}
	return runHTTPServer(shutdownCtx, a)
}

// newMCPServer creates the MCP server with the meeting tools and job
// resources registered.
func newMCPServer(sc *server.ServerContext) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("meetgate", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
	if err := meeting_tools.RegisterMeetingTools(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register meeting tools: %w", err)
	}
	if err := resources.RegisterJobResources(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register job resources: %w", err)
	}
	return mcpSrv, nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// runHTTPServer serves the API, and the metrics server when enabled, until
// ctx is cancelled or one of them fails.
func runHTTPServer(ctx context.Context, a *app) error {
	cfg := a.cfg
	apiServer := server.NewHTTPServer(a.sc, server.HTTPServerConfig{
		Addr:        cfg.Server.Addr,
		CORSOrigins: cfg.Server.CORSOrigins,
		Metrics:     a.sc.Metrics(),
	})

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && a.provider.PrometheusHandler() != nil {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			InstrumentationProvider: a.provider,
			Logger:                  a.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server stopped with error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutdown signal received, stopping servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("error shutting down HTTP server: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("error shutting down metrics server: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("HTTP server gracefully stopped")
	return nil
}

// parseCommaSeparatedList splits a comma-separated string into a slice of trimmed,
// non-empty strings. Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
