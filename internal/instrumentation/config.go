package instrumentation

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Exporter names.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName and ServiceVersion identify the process in exported
	// telemetry. OTEL_RESOURCE_ATTRIBUTES adds further resource attributes.
	ServiceName    string
	ServiceVersion string

	// Enabled turns metrics and tracing on. A disabled config yields a
	// Provider whose Metrics record nothing.
	Enabled bool

	Metrics MetricsExport
	Tracing TracingExport
	OTLP    OTLPConfig

	// AuditLogging configures the booking and tool audit trail, which is
	// written to the process log whether or not Enabled is set.
	AuditLogging AuditLoggingConfig
}

// MetricsExport selects where metrics go.
type MetricsExport struct {
	// Exporter is prometheus (scraped from the metrics server), otlp or stdout.
	Exporter string

	// DetailedLabels adds job ids to job metrics. Keep it off in production;
	// every job becomes its own series.
	DetailedLabels bool
}

// TracingExport selects where spans go.
type TracingExport struct {
	// Exporter is otlp, stdout or none.
	Exporter string

	// SamplingRate is the parent-based trace id ratio, 0.0 to 1.0.
	SamplingRate float64
}

// OTLPConfig addresses the collector used by either otlp exporter.
type OTLPConfig struct {
	// Endpoint is host:port without scheme, e.g. localhost:4318.
	Endpoint string

	// Insecure sends OTLP over plain HTTP. Spans carry job ids and oracle
	// names, so use it only against a local collector.
	Insecure bool
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	Enabled bool

	// IncludePII controls whether requester and attendee addresses appear in
	// audit logs. When false (default), only hashes and domains are logged.
	IncludePII bool
}

// DefaultConfig returns the built-in configuration overlaid with the
// environment. Malformed values keep their defaults; use ConfigFromEnv to
// see them as errors.
func DefaultConfig() Config {
	cfg, _ := ConfigFromEnv(os.LookupEnv)
	return cfg
}

// ConfigFromEnv builds a Config from lookup, which is usually os.LookupEnv.
// Variables that are set but cannot be parsed are reported together; the
// returned Config then holds the default for each of them.
//
//	INSTRUMENTATION_ENABLED      true
//	OTEL_SERVICE_NAME            meetgate
//	OTEL_METRICS_EXPORTER        prometheus
//	OTEL_TRACES_EXPORTER         none
//	OTEL_TRACES_SAMPLER_ARG      0.1
//	OTEL_EXPORTER_OTLP_ENDPOINT
//	OTEL_EXPORTER_OTLP_INSECURE  false
//	METRICS_DETAILED_LABELS      false
//	AUDIT_LOGGING_ENABLED        true
//	AUDIT_LOGGING_INCLUDE_PII    false
func ConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	env := envReader{lookup: lookup}
	cfg := Config{
		ServiceName:    env.str("OTEL_SERVICE_NAME", "meetgate"),
		ServiceVersion: "unknown",
		Enabled:        env.boolean("INSTRUMENTATION_ENABLED", true),
		Metrics: MetricsExport{
			Exporter:       env.str("OTEL_METRICS_EXPORTER", ExporterPrometheus),
			DetailedLabels: env.boolean("METRICS_DETAILED_LABELS", false),
		},
		Tracing: TracingExport{
			Exporter:     env.str("OTEL_TRACES_EXPORTER", ExporterNone),
			SamplingRate: env.float("OTEL_TRACES_SAMPLER_ARG", 0.1),
		},
		OTLP: OTLPConfig{
			Endpoint: env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure: env.boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
		AuditLogging: AuditLoggingConfig{
			Enabled:    env.boolean("AUDIT_LOGGING_ENABLED", true),
			IncludePII: env.boolean("AUDIT_LOGGING_INCLUDE_PII", false),
		},
	}
	return cfg, errors.Join(env.errs...)
}

// Validate checks exporter names, the sampling rate and that OTLP has
// somewhere to send to. A disabled config is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Metrics.Exporter {
	case ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLP.Endpoint == "" {
			return errors.New("OTLP metrics exporter needs OTEL_EXPORTER_OTLP_ENDPOINT")
		}
	default:
		return fmt.Errorf("unsupported metrics exporter %q (supported: prometheus, otlp, stdout)", c.Metrics.Exporter)
	}

	switch c.Tracing.Exporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLP.Endpoint == "" {
			return errors.New("OTLP tracing exporter needs OTEL_EXPORTER_OTLP_ENDPOINT")
		}
	default:
		return fmt.Errorf("unsupported tracing exporter %q (supported: otlp, stdout, none)", c.Tracing.Exporter)
	}

	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.Tracing.SamplingRate)
	}
	return nil
}

// envReader reads typed values and collects parse errors.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) str(key, def string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (e *envReader) boolean(key string, def bool) bool {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (e *envReader) float(key string, def float64) float64 {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return def
	}
	return f
}
