package engine

import (
	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/store"
)

// New builds the decision engine. history may be nil, in which case no
// symbol is considered to have an open trade.
func New(cfg *store.Config, macro interfaces.MacroResolver, history interfaces.TradeHistory) interfaces.Engine {
	return newEngine(cfg, macro, history)
}
