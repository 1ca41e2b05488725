package engine

import (
	"context"

	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/ta"
	"crypto-signal-engine/internal/types"
)

// stopManager derives the price levels of a plan and checks whether the
// price has already crossed the operational stop.
type stopManager struct{}

func newStopManager() *stopManager {
	return &stopManager{}
}

// levels computes targets and both stops for a snapshot.
//
// Two stops are produced:
//   - structural: price minus the 4H downside, capped at 20%
//   - operational: ATR risk * 1.10 bounded to [1.2%, 3.2%] and never wider
//     than the structural stop
func (sm *stopManager) levels(s *types.Snapshot) ta.Levels {
	return ta.DeriveLevels(s.Price, s.RRUpPct, s.RRDownPct, s.RRAtrRiskPct)
}

// checkInvalidated reports a buy plan whose own operational stop is
// already breached.
//
// Parameters:
//   - ctx: Context for logging
//   - symbol: Trading symbol
//   - action: Raw plan action
//   - price: Current price
//   - stop: Operational stop price
//
// Returns:
//   - invalidated: true if the plan should not be followed
func (sm *stopManager) checkInvalidated(ctx context.Context, symbol, action string, price, stop *float64) bool {
	if action != types.ActionBuy || price == nil || stop == nil {
		return false
	}
	if *price > *stop {
		return false
	}

	logger.Risk(ctx, symbol, "PLAN_INVALIDATED",
		"current_price", *price,
		"stop_operational_price", *stop,
	)
	return true
}
