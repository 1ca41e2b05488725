package engine

import (
	"context"
	"strings"
	"sync"

	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/logger"
)

// openTradeScanLimit bounds how many reconstructed trades are scanned for
// open positions.
const openTradeScanLimit = 500

// positionManager knows which symbols currently have an open trade, as
// reconstructed from the trade-event log.
type positionManager struct {
	history interfaces.TradeHistory

	mu   sync.RWMutex
	open map[string]bool
}

func newPositionManager(history interfaces.TradeHistory) *positionManager {
	return &positionManager{history: history, open: map[string]bool{}}
}

// refresh reloads open positions. Without a history source every symbol is
// flat; a failing source keeps the previous view.
func (pm *positionManager) refresh(ctx context.Context) {
	if pm.history == nil {
		return
	}
	payload, err := pm.history.Recent(ctx, "", openTradeScanLimit)
	if err != nil {
		logger.Warn(ctx, "Failed to load open trades", "error", err)
		return
	}
	open := map[string]bool{}
	for _, t := range payload.Trades {
		if strings.EqualFold(t.Status, "OPEN") {
			open[strings.ToUpper(t.Symbol)] = true
		}
	}

	pm.mu.Lock()
	pm.open = open
	pm.mu.Unlock()
}

// has checks if an open trade exists for the symbol.
func (pm *positionManager) has(symbol string) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.open[strings.ToUpper(symbol)]
}
