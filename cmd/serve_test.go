package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetgate/internal/calendar"
	"github.com/teemow/meetgate/internal/config"
	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/orchestrator"
	"github.com/teemow/meetgate/internal/store"
)

func TestParseCommaSeparatedList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: nil},
		{name: "single value", input: "http://localhost:5173", expected: []string{"http://localhost:5173"}},
		{name: "multiple values", input: "http://a.test,http://b.test", expected: []string{"http://a.test", "http://b.test"}},
		{name: "values with spaces around comma", input: "http://a.test, http://b.test", expected: []string{"http://a.test", "http://b.test"}},
		{name: "trailing comma", input: "http://a.test,http://b.test,", expected: []string{"http://a.test", "http://b.test"}},
		{name: "multiple consecutive commas", input: "http://a.test,,http://b.test", expected: []string{"http://a.test", "http://b.test"}},
		{name: "only commas and spaces", input: ",  , , ", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseCommaSeparatedList(tt.input))
		})
	}
}

func TestLoadServeEnvVars(t *testing.T) {
	t.Setenv("MEETGATE_TRANSPORT", "stdio")
	t.Setenv("MEETGATE_HTTP_ADDR", ":7070")
	t.Setenv("MEETGATE_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("METRICS_ADDR", ":7071")

	t.Run("env fills unset flags", func(t *testing.T) {
		cmd := newServeCmd()
		opts := serveOptions{Transport: transportHTTP, Metrics: MetricsConfig{Enabled: true}}
		loadServeEnvVars(cmd, &opts)

		assert.Equal(t, transportStdio, opts.Transport)
		assert.Equal(t, ":7070", opts.HTTPAddr)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, opts.CORSOrigins)
		assert.False(t, opts.Metrics.Enabled)
		assert.Equal(t, ":7071", opts.Metrics.Addr)
	})

	t.Run("explicit flags win", func(t *testing.T) {
		cmd := newServeCmd()
		require.NoError(t, cmd.Flags().Set("transport", transportHTTP))
		require.NoError(t, cmd.Flags().Set("http-addr", ":6060"))

		opts := serveOptions{Transport: transportHTTP, HTTPAddr: ":6060"}
		loadServeEnvVars(cmd, &opts)

		assert.Equal(t, transportHTTP, opts.Transport)
		assert.Equal(t, ":6060", opts.HTTPAddr)
	})
}

func TestApplyServeOptions(t *testing.T) {
	cfg := config.Default()
	applyServeOptions(cfg, serveOptions{
		HTTPAddr:    ":7000",
		CORSOrigins: []string{"http://a.test"},
		Metrics:     MetricsConfig{Enabled: true, Addr: ":7001"},
	})
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://a.test"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":7001", cfg.Metrics.Addr)

	cfg = config.Default()
	applyServeOptions(cfg, serveOptions{Metrics: MetricsConfig{Enabled: false}})
	assert.Equal(t, config.Default().Server.Addr, cfg.Server.Addr)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestRunServeRejectsUnknownTransport(t *testing.T) {
	err := runServe(serveOptions{Transport: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport type")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		setConfigPath(t, "")
		t.Setenv("MEETGATE_CONFIG", "")

		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, config.Default().Store, cfg.Store)
	})

	t.Run("file from env", func(t *testing.T) {
		setConfigPath(t, "")
		path := writeConfig(t, "store:\n  type: memory\n")
		t.Setenv("MEETGATE_CONFIG", path)

		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, store.TypeMemory, cfg.Store.Type)
	})

	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv("MEETGATE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
		setConfigPath(t, writeConfig(t, "store:\n  type: memory\n"))

		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, store.TypeMemory, cfg.Store.Type)
	})
}

func TestNewApp(t *testing.T) {
	t.Setenv("INSTRUMENTATION_ENABLED", "false")

	cfg := config.Default()
	cfg.Store.Type = store.TypeMemory
	cfg.Calendar.Type = config.CalendarNone

	var logs bytes.Buffer
	a, err := newApp(context.Background(), cfg, newLogger(&logs, true, true), appOptions{})
	require.NoError(t, err)
	assert.False(t, a.provider.Enabled())
	assert.Contains(t, logs.String(), "meetgate initialized")

	j, err := a.orch.Start(context.Background(), orchestrator.StartRequest{})
	require.NoError(t, err)
	assert.Equal(t, job.StateAwaitingInput, j.State)

	_, err = a.sc.Availability().Suggest(context.Background(), calendar.SuggestRequest{WindowDays: 1, SlotDurationMins: 30})
	require.NoError(t, err)

	require.NoError(t, a.close(context.Background()))
	assert.True(t, a.sc.IsShutdown())
}

func TestNewAppRejectsGoogleWithoutCredentials(t *testing.T) {
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")

	cfg := config.Default()
	cfg.Store.Type = store.TypeMemory
	cfg.Calendar.Type = config.CalendarGoogle

	_, err := newApp(context.Background(), cfg, newLogger(&bytes.Buffer{}, false, false), appOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create calendar provider")
}

func TestNewMCPServerRegistersMeetingTools(t *testing.T) {
	t.Setenv("INSTRUMENTATION_ENABLED", "false")

	cfg := config.Default()
	cfg.Store.Type = store.TypeMemory
	a, err := newApp(context.Background(), cfg, newLogger(&bytes.Buffer{}, false, false), appOptions{})
	require.NoError(t, err)
	defer a.close(context.Background())

	mcpSrv, err := newMCPServer(a.sc)
	require.NoError(t, err)
	tools := mcpSrv.ListTools()
	for _, name := range []string{"meeting_start", "meeting_message", "meeting_get_many", "meeting_submit_form", "meeting_suggest_slots"} {
		assert.Contains(t, tools, name)
	}
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "meetgate version 1.2.3\n", out.String())
}

func TestPrintSlots(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	req := calendar.SuggestRequest{WindowDays: 5, SlotDurationMins: 30}

	var out bytes.Buffer
	printSlots(&out, req, []job.Slot{{Start: start, End: start.Add(30 * time.Minute)}})
	assert.Contains(t, out.String(), "1 free 30-minute slots in the next 5 days")
	assert.Contains(t, out.String(), "Mon 2026-03-02 09:00 - 09:30 UTC")

	out.Reset()
	printSlots(&out, req, nil)
	assert.Contains(t, out.String(), "No free 30-minute slots")
}

func TestJobsCommands(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewFileStore(dir, nil)
	require.NoError(t, err)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	j := job.New("job-1", now)
	j.Requester = "ada@example.com"
	j.Append(job.RoleUser, job.AgentUser, "can we meet?", now)
	require.NoError(t, st.Write(context.Background(), j))
	require.NoError(t, st.Close())

	setConfigPath(t, writeConfig(t, "store:\n  type: file\n  path: "+dir+"\n"))

	t.Run("list", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newJobsCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"list"})
		require.NoError(t, cmd.Execute())

		assert.Contains(t, out.String(), "job-1")
		assert.Contains(t, out.String(), "awaiting_input")
		assert.Contains(t, out.String(), "ada@example.com")
	})

	t.Run("show", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newJobsCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"show", "job-1"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), `"id": "job-1"`)
	})

	t.Run("show missing", func(t *testing.T) {
		cmd := newJobsCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"show", "nope"})
		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func setConfigPath(t *testing.T, path string) {
	t.Helper()
	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meetgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
