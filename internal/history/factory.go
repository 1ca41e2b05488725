package history

import (
	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/store"
)

var _ interfaces.TradeHistory = (*Service)(nil)

// New builds the trade history service over the configured event log and
// symbol logs.
func New(cfg *store.Config) interfaces.TradeHistory {
	return newService(cfg)
}
