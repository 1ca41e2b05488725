package history

import (
	"context"
	"fmt"
	"time"

	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/store"
	"crypto-signal-engine/internal/tradelog"
	"crypto-signal-engine/internal/types"
)

// Service serves reconstructed trades from the trade-event log.
type Service struct {
	eventsPath string
	symbols    []string
	logFile    func(symbol string) string
	now        func() time.Time
}

func newService(cfg *store.Config) *Service {
	return &Service{
		eventsPath: cfg.Path(cfg.Paths.TradeHistory),
		symbols:    cfg.Symbols,
		logFile:    cfg.LogFile,
		now:        time.Now,
	}
}

// Recent replays the last events (optionally for one symbol) and returns at
// most limit trades, newest first. A missing event log yields no trades.
func (s *Service) Recent(ctx context.Context, symbol string, limit int) (*types.TradesPayload, error) {
	events, err := tradelog.ReadEvents(s.eventsPath, maxEvents, symbol)
	if err != nil {
		return nil, fmt.Errorf("read trade events: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trades := Reconstruct(events, s.latestPrices(ctx), s.now())
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}

	label := symbol
	if label == "" {
		label = "ALL"
	}
	return &types.TradesPayload{
		Symbol: label,
		Count:  len(trades),
		Trades: trades,
		Source: s.eventsPath,
	}, nil
}

// latestPrices reads the last logged price of every configured symbol.
// Unreadable logs are skipped.
func (s *Service) latestPrices(ctx context.Context) map[string]float64 {
	prices := make(map[string]float64, len(s.symbols))
	for _, sym := range s.symbols {
		row, err := tradelog.ReadLatest(s.logFile(sym))
		if err != nil {
			logger.Warn(ctx, "Failed to read latest price", "symbol", sym, "error", err)
			continue
		}
		if row == nil {
			continue
		}
		if p := row.Num("price"); p != nil {
			prices[sym] = *p
		}
	}
	return prices
}
