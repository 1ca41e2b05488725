package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"crypto-signal-engine/internal/backtest"
	"crypto-signal-engine/internal/engine"
	"crypto-signal-engine/internal/engine/engineobs"
	"crypto-signal-engine/internal/history"
	"crypto-signal-engine/internal/history/historyobs"
	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/news"
	"crypto-signal-engine/internal/recorder"
	"crypto-signal-engine/internal/refresh"
	"crypto-signal-engine/internal/store"
	"crypto-signal-engine/internal/trace"
	"crypto-signal-engine/internal/tradelog"
)

const serviceName = "crypto-signal-engine"

// initializeSystem loads .env and initializes the logger and tracer. A tracer
// failure only disables tracing.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(serviceName); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func shutdownSystem() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = trace.Shutdown(ctx)
}

// loadConfig resolves the config path from the flag, then CONFIG_PATH, then
// config.yaml.
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	tradelog.SetDir(cfg.Path(cfg.Paths.JournalDir))
	return cfg, nil
}

// compressOldLogs gzips journal files past the configured retention.
func compressOldLogs(ctx context.Context, cfg *store.Config) {
	if !cfg.Journal.Enabled || cfg.Journal.RetentionDays <= 0 {
		return
	}
	if err := tradelog.CompressOlder(cfg.Journal.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old journal files", "error", err)
	}
}

// app holds the wired services shared by the subcommands.
type app struct {
	cfg       *store.Config
	macro     *news.Service
	history   interfaces.TradeHistory
	engine    interfaces.Engine
	backtests *backtest.Store
}

func initializeApp(ctx context.Context, cfg *store.Config) *app {
	macro := news.NewService(cfg)
	if cfg.Macro.Disabled {
		logger.Warn(ctx, "Remote macro providers disabled - using local fallback only")
	}

	hist := historyobs.Wrap(history.New(cfg))
	eng := engineobs.Wrap(engine.New(cfg, macro, hist))

	return &app{
		cfg:       cfg,
		macro:     macro,
		history:   hist,
		engine:    eng,
		backtests: backtest.NewStore(cfg.Path(cfg.Paths.BacktestDir)),
	}
}

func (a *app) close() {
	a.macro.Close()
}

func initializeRecorder(ctx context.Context, cfg *store.Config) (interfaces.Recorder, error) {
	rec, err := recorder.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("open recorder: %w", err)
	}
	if cfg.Recorder.SQLitePath == "" {
		logger.Info(ctx, "No recorder configured - decision cycles are not persisted")
	}
	return rec, nil
}

// initializeRefresh returns nil when no refresh command is configured.
func initializeRefresh(cfg *store.Config) *refresh.Runner {
	if len(cfg.Refresh.Command) == 0 {
		return nil
	}
	return refresh.NewRunner(
		cfg.Refresh.Command,
		cfg.BaseDir,
		time.Duration(cfg.Refresh.TimeoutSeconds)*time.Second,
		cfg.RefreshMinInterval(),
	)
}
