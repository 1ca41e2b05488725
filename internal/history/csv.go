package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"crypto-signal-engine/internal/types"
)

var csvHeaders = []string{
	"symbol", "status", "entry_ts", "exit_ts", "entry_price", "exit_price", "current_price",
	"target_price", "expected_profit_pct", "realized_profit_pct", "unrealized_profit_pct",
	"hold_hours", "stage", "last_signal",
}

// ExportCSV writes trades as CSV with a header row. Null fields are empty;
// profits and hold hours use two decimals, prices four.
func ExportCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders); err != nil {
		return err
	}
	for _, t := range trades {
		rec := []string{
			t.Symbol,
			t.Status,
			str(t.EntryTS),
			str(t.ExitTS),
			num(t.EntryPrice, 4),
			num(t.ExitPrice, 4),
			num(t.CurrentPrice, 4),
			num(t.TargetPrice, 4),
			num(t.ExpectedProfitPct, 2),
			num(t.RealizedProfitPct, 2),
			num(t.UnrealizedProfitPct, 2),
			num(t.HoldHours, 2),
			stage(t.Stage),
			t.LastSignal,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func stage(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
