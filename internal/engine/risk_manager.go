package engine

import (
	"context"
	"strings"

	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/types"
)

// Stages that carry an entry.
var buyStages = map[string]bool{"SMALL": true, "MEDIUM": true, "FULL": true}

// riskManager turns the robot's stage and guardrails into an action and a
// suggested allocation.
type riskManager struct {
	targetAlloc map[string]float64
	stageMult   map[string]float64
}

func newRiskManager(targetAlloc, stageMult map[string]float64) *riskManager {
	return &riskManager{targetAlloc: targetAlloc, stageMult: stageMult}
}

// action is COMPRAR for entry stages unless a guardrail blocks the trade.
func (rm *riskManager) action(ctx context.Context, symbol, stage string, guard types.Guardrails) string {
	if !buyStages[stage] {
		return types.ActionWait
	}
	if guard.Blocked {
		logger.Risk(ctx, symbol, "TRADE_BLOCKED_GUARDRAILS",
			"stage", stage,
			"issues", guard.Issues,
			"risk_per_trade_pct", guard.TradePct,
			"risk_portfolio_projected_pct", guard.PortfolioProjPct,
		)
		return types.ActionWait
	}
	return types.ActionBuy
}

// allocation is the symbol's target weight scaled by the stage multiplier.
// Stages match exactly; unknown symbols and stages allocate nothing.
func (rm *riskManager) allocation(symbol, stage string) float64 {
	return rm.targetAlloc[strings.ToUpper(symbol)] * rm.stageMult[stage]
}
