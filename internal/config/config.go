package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teemow/meetgate/internal/calendar"
	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/oracle"
	"github.com/teemow/meetgate/internal/orchestrator"
	"github.com/teemow/meetgate/internal/store"
)

// Calendar provider types.
const (
	CalendarGoogle = "google"
	CalendarNone   = "none"
)

// Config represents the complete meetgate configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Store        StoreConfig        `yaml:"store"`
	Policy       job.Policy         `yaml:"policy"`
	Availability AvailabilityConfig `yaml:"availability"`
	Oracle       OracleConfig       `yaml:"oracle"`
	Calendar     CalendarConfig     `yaml:"calendar"`
	Requester    RequesterConfig    `yaml:"requester"`
	Audit        AuditConfig        `yaml:"audit"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"-"`

	ShutdownTimeoutRaw string `yaml:"shutdown_timeout"`
}

// MetricsConfig holds the dedicated metrics server settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// StoreConfig selects the record store backend
type StoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// AvailabilityConfig shapes slot suggestions and default bookings
type AvailabilityConfig struct {
	WindowDays       int    `yaml:"window_days"`
	SlotDurationMins int    `yaml:"slot_duration_mins"`
	DayStart         string `yaml:"day_start"`
	DayEnd           string `yaml:"day_end"`
	OwnerOnly        bool   `yaml:"owner_only"`
	TimeZone         string `yaml:"timezone"`
}

// OracleConfig selects the decision/response oracle
type OracleConfig struct {
	Type    string        `yaml:"type"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// CalendarConfig selects and configures the calendar provider
type CalendarConfig struct {
	Type              string `yaml:"type"`
	Account           string `yaml:"account"`
	OwnerCalendar     string `yaml:"owner_calendar"`
	SecondaryCalendar string `yaml:"secondary_calendar"`
	SendUpdates       string `yaml:"send_updates"`
	TokenDir          string `yaml:"token_dir"`
	ClientID          string `yaml:"client_id"`
	ClientSecret      string `yaml:"client_secret"`
}

// RequesterConfig names the default requester identity
type RequesterConfig struct {
	Default string `yaml:"default"`
}

// AuditConfig controls booking and tool audit logs
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	IncludePII bool `yaml:"include_pii"`
}

// Default returns the built-in configuration.
func Default() *Config {
	orch := orchestrator.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9090"},
		Store:   StoreConfig{Type: store.TypeFile, Path: "./data"},
		Policy:  orch.Policy,
		Availability: AvailabilityConfig{
			WindowDays:       orch.Availability.WindowDays,
			SlotDurationMins: orch.Availability.SlotDurationMins,
			DayStart:         orch.Availability.DayStart,
			DayEnd:           orch.Availability.DayEnd,
			OwnerOnly:        orch.Availability.OwnerOnly,
			TimeZone:         "UTC",
		},
		Oracle: OracleConfig{
			Type:    oracle.TypeHeuristic,
			BaseURL: oracle.DefaultChatBaseURL,
			Model:   oracle.DefaultChatModel,
			Timeout: oracle.DefaultChatTimeout,
		},
		Calendar: CalendarConfig{
			Type:          CalendarNone,
			Account:       "default",
			OwnerCalendar: "primary",
			SendUpdates:   "all",
		},
		Audit: AuditConfig{Enabled: true},
	}
}

// Load reads a configuration file on top of the defaults.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error
	if cfg.Server.ShutdownTimeoutRaw != "" {
		cfg.Server.ShutdownTimeout, err = time.ParseDuration(cfg.Server.ShutdownTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing server.shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutRaw, err)
		}
	}
	if cfg.Oracle.TimeoutRaw != "" {
		cfg.Oracle.Timeout, err = time.ParseDuration(cfg.Oracle.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing oracle.timeout %q: %w", cfg.Oracle.TimeoutRaw, err)
		}
	}
	return nil
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case store.TypeFile, store.TypeSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for %s store", c.Store.Type)
		}
	case store.TypeMemory:
	default:
		return fmt.Errorf("store.type must be one of file, sqlite, memory (got %q)", c.Store.Type)
	}

	switch c.Oracle.Type {
	case oracle.TypeHeuristic:
	case oracle.TypeChat:
		if c.Oracle.BaseURL == "" {
			return fmt.Errorf("oracle.base_url is required for the chat oracle")
		}
	default:
		return fmt.Errorf("oracle.type must be heuristic or chat (got %q)", c.Oracle.Type)
	}

	switch c.Calendar.Type {
	case CalendarGoogle:
		if c.Calendar.Account == "" {
			return fmt.Errorf("calendar.account is required for the google calendar")
		}
	case CalendarNone:
	default:
		return fmt.Errorf("calendar.type must be google or none (got %q)", c.Calendar.Type)
	}

	for _, f := range c.Policy.RequiredFields {
		if f == "" {
			return fmt.Errorf("policy.required_fields must not contain empty names")
		}
	}

	if _, err := c.Window(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Availability.TimeZone); err != nil {
		return fmt.Errorf("availability.timezone %q: %w", c.Availability.TimeZone, err)
	}
	return nil
}

// Window returns the slot suggestion window described by the availability
// section, without a timezone.
func (c *Config) Window() (calendar.Window, error) {
	a := c.Availability
	if a.WindowDays <= 0 {
		return calendar.Window{}, fmt.Errorf("availability.window_days must be positive")
	}
	if a.SlotDurationMins <= 0 {
		return calendar.Window{}, fmt.Errorf("availability.slot_duration_mins must be positive")
	}
	start, err := calendar.ParseClock(a.DayStart)
	if err != nil {
		return calendar.Window{}, fmt.Errorf("availability.day_start: %w", err)
	}
	end, err := calendar.ParseClock(a.DayEnd)
	if err != nil {
		return calendar.Window{}, fmt.Errorf("availability.day_end: %w", err)
	}
	w := calendar.Window{
		DayStart:     start,
		DayEnd:       end,
		Days:         a.WindowDays,
		SlotDuration: time.Duration(a.SlotDurationMins) * time.Minute,
	}
	if err := w.Validate(); err != nil {
		return calendar.Window{}, fmt.Errorf("availability: %w", err)
	}
	return w, nil
}

// OrchestratorConfig maps the file onto the orchestration policy.
func (c *Config) OrchestratorConfig() orchestrator.Config {
	oc := orchestrator.DefaultConfig()
	oc.Policy = c.Policy
	oc.Availability = calendar.SuggestRequest{
		WindowDays:       c.Availability.WindowDays,
		SlotDurationMins: c.Availability.SlotDurationMins,
		DayStart:         c.Availability.DayStart,
		DayEnd:           c.Availability.DayEnd,
		OwnerOnly:        c.Availability.OwnerOnly,
	}
	oc.Requester = c.Requester.Default
	oc.MeetingDuration = time.Duration(c.Availability.SlotDurationMins) * time.Minute
	return oc
}

// OracleSettings maps the oracle section.
func (c *Config) OracleSettings() oracle.Config {
	return oracle.Config{
		Type: c.Oracle.Type,
		Chat: oracle.ChatConfig{
			BaseURL: c.Oracle.BaseURL,
			APIKey:  c.Oracle.APIKey,
			Model:   c.Oracle.Model,
			Timeout: c.Oracle.Timeout,
		},
	}
}

// CalendarSettings maps the calendar and availability sections.
func (c *Config) CalendarSettings() calendar.Settings {
	return calendar.Settings{
		OwnerCalendar:     c.Calendar.OwnerCalendar,
		SecondaryCalendar: c.Calendar.SecondaryCalendar,
		TimeZone:          c.Availability.TimeZone,
		DayStart:          c.Availability.DayStart,
		DayEnd:            c.Availability.DayEnd,
		SendUpdates:       c.Calendar.SendUpdates,
	}
}
