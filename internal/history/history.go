package history

import (
	"sort"
	"strings"
	"time"

	"crypto-signal-engine/internal/news"
	"crypto-signal-engine/internal/ta"
	"crypto-signal-engine/internal/tradelog"
	"crypto-signal-engine/internal/types"
)

// Reconstruct replays BUY/SELL events in file order into trades. Each symbol
// holds at most one open trade: repeated BUYs scale into it and a SELL
// closes it. A SELL with nothing open still yields a closed trade with no
// entry side. Open trades are marked against latestPrices and now.
// The result is sorted newest first by exit, else entry, timestamp.
func Reconstruct(events []tradelog.Record, latestPrices map[string]float64, now time.Time) []types.Trade {
	open := map[string]*openTrade{}
	var order []string
	var closed []types.Trade

	for _, ev := range events {
		sym := strings.ToUpper(strings.TrimSpace(ev.Str("symbol", "")))
		if sym == "" {
			continue
		}
		side := strings.ToUpper(strings.TrimSpace(ev.Str("side", "")))
		ts, tsOK := news.ParseTS(ev.Str("ts_utc", ""))
		signal := strings.ToUpper(strings.TrimSpace(ev.Str("signal_type", "")))

		switch side {
		case SideBuy:
			cur, ok := open[sym]
			if !ok {
				cur = &openTrade{
					EntryPrice:     ev.Num("entry_price"),
					TargetPrice:    ev.Num("target_price"),
					ExpectedProfit: ev.Num("expected_profit_pct"),
					Stage:          ev["stage"],
					LastSignal:     orDefault(signal, SignalEntry),
				}
				if tsOK {
					cur.EntryTS = formatTS(ts)
					cur.entryAt = &ts
				}
				open[sym] = cur
				order = append(order, sym)
				continue
			}
			if v := ev.Num("target_price"); v != nil {
				cur.TargetPrice = v
			}
			if v := ev.Num("expected_profit_pct"); v != nil {
				cur.ExpectedProfit = v
			}
			if truthy(ev["stage"]) {
				cur.Stage = ev["stage"]
			}
			cur.LastSignal = orDefault(signal, SignalScaleIn)

		case SideSell:
			exitPrice := ev.Num("exit_price")
			var exitTS *string
			if tsOK {
				exitTS = formatTS(ts)
			}
			cur, ok := open[sym]
			if !ok {
				closed = append(closed, types.Trade{
					Symbol:            sym,
					Side:              SideBuy,
					Status:            StatusClosed,
					ExitTS:            exitTS,
					EntryPrice:        ev.Num("entry_price"),
					ExitPrice:         exitPrice,
					RealizedProfitPct: ev.Num("realized_profit_pct"),
					Stage:             ev["stage"],
					LastSignal:        orDefault(signal, SignalExit),
				})
				continue
			}

			entryPrice := cur.EntryPrice
			if entryPrice == nil {
				entryPrice = ev.Num("entry_price")
			}
			realized := ev.Num("realized_profit_pct")
			if realized == nil {
				realized = changePct(entryPrice, exitPrice)
			}
			var hold *float64
			if cur.entryAt != nil && tsOK && !ts.Before(*cur.entryAt) {
				hold = ta.Ptr(ts.Sub(*cur.entryAt).Hours())
			}
			closed = append(closed, types.Trade{
				Symbol:            sym,
				Side:              SideBuy,
				Status:            StatusClosed,
				EntryTS:           cur.EntryTS,
				ExitTS:            exitTS,
				EntryPrice:        entryPrice,
				ExitPrice:         exitPrice,
				TargetPrice:       cur.TargetPrice,
				ExpectedProfitPct: cur.ExpectedProfit,
				RealizedProfitPct: realized,
				HoldHours:         hold,
				Stage:             cur.Stage,
				LastSignal:        orDefault(signal, SignalExit),
			})
			delete(open, sym)
		}
	}

	trades := closed
	for _, sym := range order {
		cur, ok := open[sym]
		if !ok {
			continue
		}
		// A symbol can reopen after a close; emit it once.
		delete(open, sym)

		var last *float64
		if p, ok := latestPrices[sym]; ok {
			last = ta.Ptr(p)
		}
		var hold *float64
		if cur.entryAt != nil && !now.Before(*cur.entryAt) {
			hold = ta.Ptr(now.Sub(*cur.entryAt).Hours())
		}
		trades = append(trades, types.Trade{
			Symbol:              sym,
			Side:                SideBuy,
			Status:              StatusOpen,
			EntryTS:             cur.EntryTS,
			EntryPrice:          cur.EntryPrice,
			CurrentPrice:        last,
			TargetPrice:         cur.TargetPrice,
			ExpectedProfitPct:   cur.ExpectedProfit,
			UnrealizedProfitPct: changePct(cur.EntryPrice, last),
			HoldHours:           hold,
			Stage:               cur.Stage,
			LastSignal:          cur.LastSignal,
		})
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return sortKey(trades[i]).After(sortKey(trades[j]))
	})
	if trades == nil {
		trades = []types.Trade{}
	}
	return trades
}

// changePct is (to/from - 1) * 100, or nil unless both prices are non-zero.
func changePct(from, to *float64) *float64 {
	if from == nil || to == nil || *from == 0 || *to == 0 {
		return nil
	}
	return ta.Ptr((*to / *from - 1) * 100)
}

// sortKey is the exit time, else the entry time, else the epoch.
func sortKey(t types.Trade) time.Time {
	for _, s := range []*string{t.ExitTS, t.EntryTS} {
		if s == nil {
			continue
		}
		if ts, ok := news.ParseTS(*s); ok {
			return ts
		}
	}
	return time.Unix(0, 0).UTC()
}

func formatTS(t time.Time) *string {
	s := news.FormatTS(t)
	return &s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	}
	return true
}
