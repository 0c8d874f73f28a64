package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rws-panel/rws-go/pkg/metrics"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := parseArgs(nil, io.Discard)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def, cfg)
	assert.Equal(t, "https://192.168.125.1", cfg.URL)
	assert.True(t, cfg.RaiseInitial)
	assert.Equal(t, 1, cfg.Priority)
}

func TestParseArgsConfigFile(t *testing.T) {
	path := writeConfig(t, `
url: http://10.0.0.5
username: operator
timeout: 3s
priority: 2
raise_initial: false
watch:
  - T_ROB1/MainModule/counter
  - T_ROB1/MainModule/msg
mastership:
  release_timeout: 2s
  poll_interval: 50ms
  max_polls: 20
jog:
  interval: 100ms
`)

	cfg, err := parseArgs([]string{"-config", path}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5", cfg.URL)
	assert.Equal(t, "operator", cfg.Username)
	assert.Equal(t, DefaultConfig().Password, cfg.Password, "keys missing from the file keep defaults")
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Priority)
	assert.False(t, cfg.RaiseInitial)
	assert.Equal(t, []string{"T_ROB1/MainModule/counter", "T_ROB1/MainModule/msg"}, cfg.Watch)
	assert.Equal(t, MastershipConfig{ReleaseTimeout: 2 * time.Second, PollInterval: 50 * time.Millisecond, MaxPolls: 20}, cfg.Mastership)
	assert.Equal(t, 100*time.Millisecond, cfg.Jog.Interval)
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "url: http://10.0.0.5\nlog_level: warn\npriority: 2\n")

	cfg, err := parseArgs([]string{
		"-config", path,
		"-url", "http://127.0.0.1:8080",
		"-log-level", "debug",
		"-interactive=false",
		"-metrics-addr", ":9090",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8080", cfg.URL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Interactive)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, 2, cfg.Priority, "flags not given leave file values alone")
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		file string
	}{
		{name: "bad log level", args: []string{"-log-level", "loud"}},
		{name: "priority out of range", args: []string{"-priority", "3"}},
		{name: "empty url", args: []string{"-url", ""}},
		{name: "stray argument", args: []string{"extra"}},
		{name: "unknown flag", args: []string{"-zone", "home"}},
		{name: "missing file", args: []string{"-config", "/nonexistent/panel.yaml"}},
		{name: "malformed file", file: "url: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			if tt.file != "" {
				args = []string{"-config", writeConfig(t, tt.file)}
			}
			_, err := parseArgs(args, io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestClientAndPanelConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "http://10.0.0.5"
	cfg.Username = "operator"
	cfg.Timeout = 0
	cfg.Priority = 2
	cfg.RaiseInitial = false
	cfg.Mastership.MaxPolls = 7
	cfg.Jog.Interval = 50 * time.Millisecond

	cc := cfg.ClientConfig()
	assert.Equal(t, "http://10.0.0.5", cc.BaseURL)
	assert.Equal(t, "operator", cc.Username)
	assert.Equal(t, 10*time.Second, cc.Timeout, "zero timeout keeps the client default")
	assert.Equal(t, 2, cc.SubscriptionPriority)

	pc := cfg.PanelConfig()
	assert.False(t, pc.RaiseInitial)
	assert.Equal(t, 7, pc.Mastership.Negotiator.MaxPolls)
	assert.Equal(t, 50*time.Millisecond, pc.Jog.Interval)
}

func TestMetricsHandler(t *testing.T) {
	reg := newMetricsRegistry()
	m := metrics.New(reg)
	m.Subscribed("variables")

	srv := httptest.NewServer(metricsHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), metrics.Namespace+"_")
	assert.Contains(t, string(body), `registry="variables"`)
	assert.Contains(t, string(body), "go_goroutines")

}
