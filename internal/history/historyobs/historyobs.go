package historyobs

import (
	"context"

	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/types"
)

type observableHistory struct {
	history interfaces.TradeHistory
}

var _ interfaces.TradeHistory = (*observableHistory)(nil)

func Wrap(history interfaces.TradeHistory) interfaces.TradeHistory {
	return &observableHistory{
		history: history,
	}
}

func (oh *observableHistory) Recent(ctx context.Context, symbol string, limit int) (*types.TradesPayload, error) {
	op := logger.StartOperation(ctx, "history.Recent", "symbol", symbol, "limit", limit).Quiet()

	payload, err := oh.history.Recent(op.Context(), symbol, limit)
	if err != nil {
		op.Fail("Trade history reconstruction failed", err)
		return nil, err
	}

	open := 0
	for _, t := range payload.Trades {
		if t.Status == "OPEN" {
			open++
		}
	}
	op.End("Trade history reconstructed", "trades", payload.Count, "open", open)
	return payload, nil
}
