package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"crypto-signal-engine/internal/history"
	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/scheduler"
	"crypto-signal-engine/internal/server"
)

// withApp loads the config, wires the services and runs fn with them.
func withApp(cmd *cobra.Command, configPath string, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	a := initializeApp(ctx, cfg)
	defer a.close()
	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func newLiveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "live",
		Short: "Print the current trade plan of every configured symbol",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				live, err := a.engine.Live(ctx)
				if err != nil {
					return err
				}
				return printJSON(live)
			})
		},
	}
}

func newNewsCmd(configPath *string) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Print the resolved macro context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				if fresh {
					return printJSON(a.macro.Refresh(ctx))
				}
				return printJSON(a.macro.Resolve(ctx))
			})
		},
	}
	cmd.Flags().BoolVar(&fresh, "refresh", false, "Bypass the macro cache")
	return cmd
}

func newTradesCmd(configPath *string) *cobra.Command {
	var (
		symbol string
		limit  int
		asCSV  bool
	)
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Reconstruct recent trades from the trade-event log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 || limit > 500 {
				return fmt.Errorf("--limit must be between 1 and 500, got %d", limit)
			}
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				payload, err := a.history.Recent(ctx, strings.ToUpper(symbol), limit)
				if err != nil {
					return err
				}
				if asCSV {
					return history.ExportCSV(os.Stdout, payload.Trades)
				}
				return printJSON(payload)
			})
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "Only trades of this symbol")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of trades (1-500)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "Write CSV instead of JSON")
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				return serve(ctx, a)
			})
		},
	}
}

func serve(ctx context.Context, a *app) error {
	runner := initializeRefresh(a.cfg)
	if runner == nil {
		logger.Info(ctx, "No refresh command configured - refresh endpoints disabled")
	} else {
		defer runner.Wait()
	}
	srv := server.New(server.Deps{
		Engine:    a.engine,
		Macro:     a.macro,
		History:   a.history,
		Backtests: a.backtests,
		Refresh:   runner,
	})
	addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
	return srv.Run(ctx, addr)
}

func newRunCmd(configPath *string) *cobra.Command {
	var (
		once    bool
		withAPI bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run decision cycles on the configured cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				compressOldLogs(ctx, a.cfg)

				rec, err := initializeRecorder(ctx, a.cfg)
				if err != nil {
					return err
				}
				defer rec.Close()

				sched := scheduler.NewScheduler(a.engine, a.macro, rec, scheduler.Options{
					Journal:          a.cfg.Journal.Enabled,
					RetentionDays:    a.cfg.Journal.RetentionDays,
					RecordMacroEvery: true,
				})

				if once {
					changes, err := sched.RunCycle(ctx)
					if err != nil {
						return err
					}
					return printJSON(changes)
				}

				if err := sched.Register(ctx, a.cfg.Scheduler.Cron); err != nil {
					return err
				}
				if a.cfg.Scheduler.RunOnStart {
					if _, err := sched.RunCycle(ctx); err != nil {
						logger.ErrorWithErr(ctx, "Initial decision cycle failed", err)
					}
				}
				sched.Start()
				defer sched.Stop()

				if withAPI {
					return serve(ctx, a)
				}
				<-ctx.Done()
				logger.Info(ctx, "Shutting down...")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run a single cycle and print the plan changes")
	cmd.Flags().BoolVar(&withAPI, "serve", false, "Also serve the JSON API")
	return cmd
}
