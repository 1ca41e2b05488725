package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "XRPUSDT"}, cfg.Symbols)
	assert.Equal(t, 30.0, cfg.TargetAlloc["BTCUSDT"])
	assert.Equal(t, 0.5, cfg.StageMult["MEDIUM"])
	assert.Equal(t, 12, cfg.Macro.CommandTimeoutS)
	assert.Equal(t, 900, cfg.Refresh.TimeoutSeconds)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.MacroTTL())
	assert.Equal(t, 30*time.Second, cfg.RefreshMinInterval())
}

func TestLoadConfigExplicitZeroDisablesCacheAndThrottle(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	body := `
target_alloc:
  btcusdt: 25
stage_multiplier:
  small: 0.1
macro:
  cache_ttl_seconds: 0
refresh:
  min_interval_seconds: 0
`
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.MacroTTL())
	assert.Equal(t, time.Duration(0), cfg.RefreshMinInterval())
	assert.Equal(t, map[string]float64{"BTCUSDT": 25}, cfg.TargetAlloc)
	assert.Equal(t, map[string]float64{"SMALL": 0.1}, cfg.StageMult)
}

func TestLoadConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	body := `
base_dir: /srv/mw
symbols: [btcusdt, solusdt]
target_alloc:
  BTCUSDT: 40
  SOLUSDT: 5
macro:
  command: [python3, macro_context.py]
  cache_ttl_seconds: 120
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, cfg.Symbols)
	assert.Equal(t, 40.0, cfg.TargetAlloc["BTCUSDT"])
	assert.Equal(t, []string{"python3", "macro_context.py"}, cfg.Macro.Command)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/mw/logs/BTCUSDT.jsonl", cfg.LogFile("btcusdt"))
	assert.Equal(t, "/abs/x.json", cfg.Path("/abs/x.json"))
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SIGNALS_BASE_DIR", "/tmp/base")
	t.Setenv("MACRO_COMMAND", "python3 ctx.py --json")
	t.Setenv("DASHBOARD_PORT", "8123")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/base", cfg.BaseDir)
	assert.Equal(t, []string{"python3", "ctx.py", "--json"}, cfg.Macro.Command)
	assert.Equal(t, 8123, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults ok", func(c *Config) {}, ""},
		{"duplicate symbol", func(c *Config) { c.Symbols = []string{"BTCUSDT", "BTCUSDT"} }, "duplicate"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "Port"},
		{"alloc over 100", func(c *Config) { c.TargetAlloc["BTCUSDT"] = 130 }, "TargetAlloc"},
		{"bad http url", func(c *Config) { c.Macro.HTTPURL = "::nope" }, "HTTPURL"},
		{"negative cache ttl", func(c *Config) { c.Macro.CacheTTLSeconds = intPtr(-1) }, "CacheTTLSeconds"},
		{"scraper without sources", func(c *Config) { c.Macro.Scraper.Enabled = true }, "sources"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("symbols: [unclosed"), 0o644))
	_, err := LoadConfig(p)
	assert.Error(t, err)
}
