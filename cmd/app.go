package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/teemow/meetgate/internal/calendar"
	"github.com/teemow/meetgate/internal/config"
	"github.com/teemow/meetgate/internal/events"
	"github.com/teemow/meetgate/internal/google"
	"github.com/teemow/meetgate/internal/instrumentation"
	"github.com/teemow/meetgate/internal/oracle"
	"github.com/teemow/meetgate/internal/orchestrator"
	"github.com/teemow/meetgate/internal/server"
	"github.com/teemow/meetgate/internal/store"
)

// loadConfig reads the config file named by --config or MEETGATE_CONFIG.
// Without either, the built-in defaults are used.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("MEETGATE_CONFIG")
	}
	if path == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("validating default config: %w", err)
		}
		return cfg, nil
	}
	return config.Load(path)
}

// newLogger builds the process logger. JSON is used for the HTTP transport;
// stdio keeps to text on stderr so stdout stays free for the protocol.
func newLogger(w io.Writer, debug, jsonFormat bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	if jsonFormat {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// googleCredentials are client credentials given on the command line. They
// take precedence over the config file and the environment.
type googleCredentials struct {
	ClientID     string
	ClientSecret string
}

// oauthConfig resolves the Google OAuth client for cfg.
func oauthConfig(cfg *config.Config, creds googleCredentials) google.OAuthConfig {
	oc := google.OAuthConfig{
		ClientID:     cfg.Calendar.ClientID,
		ClientSecret: cfg.Calendar.ClientSecret,
	}
	if creds.ClientID != "" {
		oc.ClientID = creds.ClientID
	}
	if creds.ClientSecret != "" {
		oc.ClientSecret = creds.ClientSecret
	}
	return google.OAuthConfigFromEnv(oc)
}

// newCalendarProvider builds the provider selected by the calendar section.
func newCalendarProvider(ctx context.Context, cfg *config.Config, creds googleCredentials, metrics *instrumentation.Metrics, logger *slog.Logger) (calendar.Provider, error) {
	settings := cfg.CalendarSettings()
	switch cfg.Calendar.Type {
	case config.CalendarNone:
		logger.Warn("calendar provider disabled, bookings are dry runs")
		return calendar.NewDryRunProvider(settings)
	case config.CalendarGoogle:
		oc := oauthConfig(cfg, creds)
		if err := oc.Validate(); err != nil {
			return nil, err
		}
		tokens := google.NewFileTokenProvider(cfg.Calendar.TokenDir)
		httpClient, err := google.HTTPClient(ctx, oc, tokens, cfg.Calendar.Account)
		if err != nil {
			return nil, err
		}
		client, err := calendar.NewClient(ctx, httpClient, metrics)
		if err != nil {
			return nil, err
		}
		return calendar.NewGoogleProvider(client, settings, logger)
	default:
		return nil, fmt.Errorf("unsupported calendar type: %s", cfg.Calendar.Type)
	}
}

// app is the wired set of collaborators behind both transports.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	store    store.Store
	registry *events.Registry
	orch     *orchestrator.Orchestrator
	sc       *server.ServerContext
}

// appOptions are the command-line overrides for newApp.
type appOptions struct {
	Creds googleCredentials
}

// newApp wires store, oracle, calendar, event registry and orchestrator
// from cfg. The caller must call close.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.AuditLogging.Enabled = cfg.Audit.Enabled
	instrConfig.AuditLogging.IncludePII = cfg.Audit.IncludePII

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	metrics := provider.Metrics()
	audit := instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)

	a := &app{cfg: cfg, logger: logger, provider: provider}
	fail := func(err error) (*app, error) {
		return nil, errors.Join(err, a.close(context.Background()))
	}

	a.store, err = store.Open(cfg.Store.Type, cfg.Store.Path, logger)
	if err != nil {
		return fail(fmt.Errorf("failed to open %s store: %w", cfg.Store.Type, err))
	}

	o, err := oracle.New(cfg.OracleSettings())
	if err != nil {
		return fail(fmt.Errorf("failed to create oracle: %w", err))
	}
	instrumented := oracle.Instrument(o, metrics)

	cal, err := newCalendarProvider(ctx, cfg, opts.Creds, metrics, logger)
	if err != nil {
		return fail(fmt.Errorf("failed to create calendar provider: %w", err))
	}

	a.registry = events.NewRegistry(logger, metrics)
	a.orch, err = orchestrator.New(cfg.OrchestratorConfig(), orchestrator.Deps{
		Store:     a.store,
		Events:    a.registry,
		Decider:   instrumented,
		Responder: instrumented,
		Calendar:  cal,
		Logger:    logger,
		Metrics:   metrics,
		Audit:     audit,
	})
	if err != nil {
		return fail(err)
	}

	a.sc = server.NewServerContext(ctx, a.orch, a.registry, a.store, logger)
	a.sc.SetAvailability(cal)
	a.sc.SetInstrumentation(metrics, audit)

	logger.Info("meetgate initialized",
		"store", cfg.Store.Type,
		"oracle", o.Name(),
		"calendar", cfg.Calendar.Type,
		"metrics", provider.Enabled())
	return a, nil
}

// close releases the server context (and with it the store and event
// streams) and flushes instrumentation.
func (a *app) close(ctx context.Context) error {
	var errs []error
	switch {
	case a.sc != nil:
		errs = append(errs, a.sc.Shutdown())
	case a.store != nil:
		errs = append(errs, a.store.Close())
	}
	if a.provider != nil {
		errs = append(errs, a.provider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
