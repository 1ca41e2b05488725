// Package scheduler runs decision cycles on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/robfig/cron/v3"

	"crypto-signal-engine/internal/engine"
	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/tradelog"
	"crypto-signal-engine/internal/types"
)

const journalCompressSpec = "0 10 0 * * *"

// Options toggle the side effects of a cycle.
type Options struct {
	Journal          bool
	RetentionDays    int
	RecordMacroEvery bool
}

// Scheduler computes the live payload on every tick, logs what changed since
// the previous tick, journals the plans and hands them to the recorder.
type Scheduler struct {
	Cron     *cron.Cron
	Engine   interfaces.Engine
	Macro    interfaces.MacroResolver
	Recorder interfaces.Recorder
	opts     Options

	mu   sync.Mutex
	prev *types.LivePayload
}

func NewScheduler(eng interfaces.Engine, macro interfaces.MacroResolver, rec interfaces.Recorder, opts Options) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Engine:   eng,
		Macro:    macro,
		Recorder: rec,
		opts:     opts,
	}
}

// Register adds the decision cycle on spec and, when journaling, a nightly
// compression of old journal files.
func (s *Scheduler) Register(ctx context.Context, spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() {
		if _, err := s.RunCycle(ctx); err != nil {
			logger.ErrorWithErr(ctx, "Decision cycle failed", err)
		}
	}); err != nil {
		return fmt.Errorf("register decision cycle: %w", err)
	}
	if s.opts.Journal && s.opts.RetentionDays > 0 {
		if _, err := s.Cron.AddFunc(journalCompressSpec, func() {
			if err := tradelog.CompressOlder(s.opts.RetentionDays); err != nil {
				logger.ErrorWithErr(ctx, "Journal compression failed", err)
			}
		}); err != nil {
			return fmt.Errorf("register journal compression: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info(context.Background(), "Scheduler started", "entries", len(s.Cron.Entries()))
}

// Stop stops the cron and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info(context.Background(), "Scheduler stopped")
}

// RunCycle runs one decision cycle and returns the plan changes against the
// previous cycle. Journal and recorder failures are logged, not returned.
func (s *Scheduler) RunCycle(ctx context.Context) ([]types.PlanChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.RecordMacroEvery && s.Macro != nil {
		if err := s.Recorder.RecordMacro(ctx, s.Macro.Resolve(ctx)); err != nil {
			logger.ErrorWithErr(ctx, "Failed to record macro context", err)
		}
	}

	live, err := s.Engine.Live(ctx)
	if err != nil {
		return nil, err
	}

	changes := engine.DiffLive(s.prev, live)
	for _, c := range changes {
		switch {
		case c.New:
			logger.Info(ctx, "Plan added", "symbol", c.Symbol, "action", c.Action,
				"confidence", c.Confidence, "bottleneck", c.Bottleneck)
		case c.Removed:
			logger.Info(ctx, "Plan removed", "symbol", c.Symbol, "prev_action", c.PrevAction)
		default:
			logger.Info(ctx, "Plan changed", "symbol", c.Symbol,
				"prev_action", c.PrevAction, "action", c.Action,
				"prev_confidence", c.PrevConfidence, "confidence", c.Confidence,
				"prev_bottleneck", c.PrevBottleneck, "bottleneck", c.Bottleneck)
		}
	}
	s.prev = live

	if s.opts.Journal {
		s.journal(ctx, live)
	}
	if err := s.Recorder.RecordPlans(ctx, live); err != nil {
		logger.ErrorWithErr(ctx, "Failed to record plans", err)
	}
	return changes, nil
}

func (s *Scheduler) journal(ctx context.Context, live *types.LivePayload) {
	for _, sym := range slices.Sorted(maps.Keys(live.Symbols)) {
		v := live.Symbols[sym]
		p := v.TradePlan
		if err := tradelog.AppendDecision(tradelog.DecisionEntry{
			Time:       live.GeneratedAt,
			Symbol:     sym,
			Action:     v.DisplayAction,
			Confidence: p.Confidence,
			Bottleneck: p.Bottleneck.Key,
			Posture:    p.Quality.MacroPosture,
			Price:      v.Price,
			StopOp:     p.StopOperationalPrice,
			Target1:    p.Target1Price,
			Blocked:    p.GuardrailsBlocked,
			Steps:      p.BuyNowSteps,
		}); err != nil {
			logger.ErrorWithErr(ctx, "Failed to journal decision", err, "symbol", sym)
		}
	}
}
