package interfaces

import (
	"context"

	"crypto-signal-engine/internal/types"
)

// TradeHistory serves closed and open trades reconstructed from the
// persisted event log. An empty symbol means every symbol.
type TradeHistory interface {
	Recent(ctx context.Context, symbol string, limit int) (*types.TradesPayload, error)
}
