package engine

import (
	"context"
	"maps"
	"slices"
	"time"

	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/news"
	"crypto-signal-engine/internal/store"
	"crypto-signal-engine/internal/tradelog"
	"crypto-signal-engine/internal/types"
)

type Engine struct {
	cfg       *store.Config
	macro     interfaces.MacroResolver
	plans     *planner
	positions *positionManager
	now       func() time.Time
}

func newEngine(cfg *store.Config, macro interfaces.MacroResolver, history interfaces.TradeHistory) *Engine {
	return &Engine{
		cfg:       cfg,
		macro:     macro,
		plans:     newPlanner(cfg.TargetAlloc, cfg.StageMult),
		positions: newPositionManager(history),
		now:       time.Now,
	}
}

// Live resolves the macro context once and derives a plan for every
// configured symbol that has a readable log row.
func (e *Engine) Live(ctx context.Context) (*types.LivePayload, error) {
	macro := e.macro.Resolve(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.positions.refresh(ctx)

	out := &types.LivePayload{
		GeneratedAt: news.FormatTS(e.now()),
		Macro:       macro.Macro,
		Symbols:     map[string]types.SymbolView{},
	}

	for _, sym := range e.cfg.Symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		view, ok := e.step(ctx, sym, macro.Macro.Posture)
		if ok {
			out.Symbols[sym] = view
		}
	}

	logger.Debug(ctx, "Live payload built", "symbols", len(out.Symbols), "posture", macro.Macro.Posture)
	return out, nil
}

func (e *Engine) step(ctx context.Context, symbol, globalPosture string) (types.SymbolView, bool) {
	row, err := tradelog.ReadLatest(e.cfg.LogFile(symbol))
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to read symbol log", err, "symbol", symbol)
		return types.SymbolView{}, false
	}
	if row == nil {
		logger.Debug(ctx, "No log row for symbol", "symbol", symbol)
		return types.SymbolView{}, false
	}

	snap := SnapshotFromRecord(symbol, row)
	posture := news.PostureFor(globalPosture, row)
	plan := e.plans.build(ctx, snap, posture)

	logger.Decision(ctx, symbol, plan.Action, plan.Confidence, plan.Bottleneck.Key,
		"stage", snap.Stage,
		"posture", posture,
		"invalidated", plan.Invalidated,
		"guardrails_blocked", plan.GuardrailsBlocked,
	)

	open := e.positions.has(symbol)
	display := DisplayAction(plan, open)
	return types.SymbolView{
		TsUTC:         row["ts_utc"],
		Price:         snap.Price,
		Stage:         snap.Stage,
		Regime1W:      snap.Regime1W,
		Regime4H:      snap.Regime4H,
		Vol1Ratio:     snap.Vol1Ratio,
		Vol4Ratio:     snap.Vol4Ratio,
		ContextScore:  snap.ContextScore,
		ContextLabel:  snap.ContextLabel,
		RRAdj:         snap.RRAdj,
		RRAtr:         snap.RRAtr,
		RRUpPct:       snap.RRUpPct,
		RRDownPct:     snap.RRDownPct,
		TradePlan:     plan,
		DisplayAction: display,
		Light:         Light(plan),
		Note:          Note(display),
		HasOpenTrade:  open,
	}, true
}

// DiffLive reports symbols whose action, confidence or bottleneck moved
// between two payloads. A nil previous payload marks every symbol as new.
func DiffLive(prev, cur *types.LivePayload) []types.PlanChange {
	var changes []types.PlanChange
	prevSyms := map[string]types.SymbolView{}
	if prev != nil {
		prevSyms = prev.Symbols
	}
	curSyms := map[string]types.SymbolView{}
	if cur != nil {
		curSyms = cur.Symbols
	}

	for _, sym := range slices.Sorted(maps.Keys(curSyms)) {
		now := curSyms[sym].TradePlan
		before, ok := prevSyms[sym]
		if !ok {
			changes = append(changes, types.PlanChange{
				Symbol: sym, Action: now.Action, Confidence: now.Confidence,
				Bottleneck: now.Bottleneck.Key, New: true,
			})
			continue
		}
		was := before.TradePlan
		if was.Action == now.Action && was.Confidence == now.Confidence && was.Bottleneck.Key == now.Bottleneck.Key {
			continue
		}
		changes = append(changes, types.PlanChange{
			Symbol:         sym,
			PrevAction:     was.Action,
			Action:         now.Action,
			PrevConfidence: was.Confidence,
			Confidence:     now.Confidence,
			PrevBottleneck: was.Bottleneck.Key,
			Bottleneck:     now.Bottleneck.Key,
		})
	}
	for _, sym := range slices.Sorted(maps.Keys(prevSyms)) {
		if _, ok := curSyms[sym]; ok {
			continue
		}
		was := prevSyms[sym].TradePlan
		changes = append(changes, types.PlanChange{
			Symbol: sym, PrevAction: was.Action, PrevConfidence: was.Confidence,
			PrevBottleneck: was.Bottleneck.Key, Removed: true,
		})
	}
	return changes
}
