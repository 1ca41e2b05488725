package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	BaseDir     string             `yaml:"base_dir" validate:"required"`
	Symbols     []string           `yaml:"symbols" validate:"required,min=1,dive,required,uppercase"`
	TargetAlloc map[string]float64 `yaml:"target_alloc" validate:"dive,gte=0,lte=100"`
	StageMult   map[string]float64 `yaml:"stage_multiplier" validate:"dive,gte=0,lte=1"`
	Paths       struct {
		LogDir       string `yaml:"log_dir"`
		TradeHistory string `yaml:"trade_history"`
		BacktestDir  string `yaml:"backtest_dir"`
		MacroCache   string `yaml:"macro_cache"`
		EconState    string `yaml:"econ_state"`
		JournalDir   string `yaml:"journal_dir"`
	} `yaml:"paths"`
	Macro struct {
		Disabled        bool              `yaml:"disabled"`
		Command         []string          `yaml:"command"`
		CommandTimeoutS int               `yaml:"command_timeout_seconds" validate:"gte=1,lte=120"`
		HTTPURL         string            `yaml:"http_url" validate:"omitempty,url"`
		HTTPTimeoutS    int               `yaml:"http_timeout_seconds" validate:"gte=1,lte=120"`
		HTTPHeaders     map[string]string `yaml:"http_headers"`
		CacheTTLSeconds *int              `yaml:"cache_ttl_seconds" validate:"omitempty,gte=0"`
		Scraper         struct {
			Enabled   bool          `yaml:"enabled"`
			Sources   []HeadlineSrc `yaml:"sources" validate:"dive"`
			MaxTitles int           `yaml:"max_titles" validate:"gte=0,lte=20"`
			TimeoutS  int           `yaml:"timeout_seconds"`
		} `yaml:"scraper"`
	} `yaml:"macro"`
	Refresh struct {
		Command         []string `yaml:"command"`
		TimeoutSeconds  int      `yaml:"timeout_seconds" validate:"gte=1"`
		MinIntervalSecs *int     `yaml:"min_interval_seconds" validate:"omitempty,gte=0"`
	} `yaml:"refresh"`
	Server struct {
		Host string `yaml:"host" validate:"required"`
		Port int    `yaml:"port" validate:"gte=1,lte=65535"`
	} `yaml:"server"`
	Scheduler struct {
		Cron       string `yaml:"cron" validate:"required"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"scheduler"`
	Recorder struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"recorder"`
	Journal struct {
		Enabled       bool `yaml:"enabled"`
		RetentionDays int  `yaml:"retention_days" validate:"gte=0"`
	} `yaml:"journal"`
}

// HeadlineSrc is one page the headline scraper reads titles from.
type HeadlineSrc struct {
	Name     string `yaml:"name" validate:"required"`
	URL      string `yaml:"url" validate:"required,url"`
	Selector string `yaml:"selector" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed '%s' check (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	seen := map[string]bool{}
	for _, s := range c.Symbols {
		if seen[s] {
			return fmt.Errorf("symbols: duplicate symbol '%s'", s)
		}
		seen[s] = true
	}
	if c.Macro.Scraper.Enabled && len(c.Macro.Scraper.Sources) == 0 {
		return errors.New("macro.scraper.sources cannot be empty when the scraper is enabled")
	}
	return nil
}

// Defaults returns a config with every default applied.
func Defaults() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.BaseDir == "" {
		c.BaseDir = "."
	}
	if len(c.Symbols) == 0 {
		c.Symbols = []string{"BTCUSDT", "ETHUSDT", "XRPUSDT"}
	}
	for i, s := range c.Symbols {
		c.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	if c.TargetAlloc == nil {
		c.TargetAlloc = map[string]float64{"BTCUSDT": 30, "ETHUSDT": 20, "XRPUSDT": 10}
	}
	c.TargetAlloc = upperKeys(c.TargetAlloc)
	if c.StageMult == nil {
		c.StageMult = map[string]float64{"SMALL": 0.20, "MEDIUM": 0.50, "FULL": 1.00}
	}
	c.StageMult = upperKeys(c.StageMult)
	if c.Paths.LogDir == "" {
		c.Paths.LogDir = "logs"
	}
	if c.Paths.TradeHistory == "" {
		c.Paths.TradeHistory = filepath.Join("data", "trade_history.jsonl")
	}
	if c.Paths.BacktestDir == "" {
		c.Paths.BacktestDir = filepath.Join("data", "backtests")
	}
	if c.Paths.MacroCache == "" {
		c.Paths.MacroCache = filepath.Join("cache", "macro_context.json")
	}
	if c.Paths.EconState == "" {
		c.Paths.EconState = filepath.Join("cache", "econ_panel_state.json")
	}
	if c.Paths.JournalDir == "" {
		c.Paths.JournalDir = "journal"
	}
	if c.Macro.CommandTimeoutS == 0 {
		c.Macro.CommandTimeoutS = 12
	}
	if c.Macro.HTTPTimeoutS == 0 {
		c.Macro.HTTPTimeoutS = 10
	}
	if c.Macro.CacheTTLSeconds == nil {
		c.Macro.CacheTTLSeconds = intPtr(60)
	}
	if c.Macro.Scraper.MaxTitles == 0 {
		c.Macro.Scraper.MaxTitles = 20
	}
	if c.Macro.Scraper.TimeoutS == 0 {
		c.Macro.Scraper.TimeoutS = 15
	}
	if c.Refresh.TimeoutSeconds == 0 {
		c.Refresh.TimeoutSeconds = 900
	}
	if c.Refresh.MinIntervalSecs == nil {
		c.Refresh.MinIntervalSecs = intPtr(30)
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Scheduler.Cron == "" {
		c.Scheduler.Cron = "0 */5 * * * *"
	}
}

// applyEnv lets deployment overrides win over the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("SIGNALS_BASE_DIR"); v != "" {
		c.BaseDir = v
	}
	if v := os.Getenv("MACRO_COMMAND"); v != "" {
		c.Macro.Command = strings.Fields(v)
	}
	if v := os.Getenv("DASHBOARD_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("DASHBOARD_PORT"); v != "" {
		var p int
		if _, err := fmt.Sscanf(v, "%d", &p); err == nil {
			c.Server.Port = p
		}
	}
}

// Path resolves p against BaseDir unless it is already absolute.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

func (c *Config) LogFile(symbol string) string {
	return filepath.Join(c.Path(c.Paths.LogDir), strings.ToUpper(symbol)+".jsonl")
}

// MacroTTL is how long a resolved macro payload is reused. Zero disables
// the cache.
func (c *Config) MacroTTL() time.Duration {
	return seconds(c.Macro.CacheTTLSeconds)
}

// RefreshMinInterval is the minimum spacing between refresh runs. Zero
// disables throttling.
func (c *Config) RefreshMinInterval() time.Duration {
	return seconds(c.Refresh.MinIntervalSecs)
}

func seconds(n *int) time.Duration {
	if n == nil {
		return 0
	}
	return time.Duration(*n) * time.Second
}

func intPtr(n int) *int { return &n }

func upperKeys(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}

// LoadConfig reads path, applies defaults and env overrides, then validates.
// A missing file is not an error: defaults are used.
func LoadConfig(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
