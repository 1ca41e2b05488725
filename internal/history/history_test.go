package history

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-signal-engine/internal/history/historyobs"
	"crypto-signal-engine/internal/store"
	"crypto-signal-engine/internal/tradelog"
	"crypto-signal-engine/internal/types"
)

var now = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

func ev(fields map[string]any) tradelog.Record {
	return tradelog.Record(fields)
}

func TestReconstructBuyThenSell(t *testing.T) {
	trades := Reconstruct([]tradelog.Record{
		ev(map[string]any{"symbol": "btcusdt", "side": "buy", "ts_utc": "2024-05-01T10:00:00Z", "entry_price": 100.0, "target_price": 110.0, "expected_profit_pct": 10.0, "stage": "SMALL"}),
		ev(map[string]any{"symbol": "BTCUSDT", "side": "SELL", "ts_utc": "2024-05-01T16:00:00Z", "exit_price": 105.0}),
	}, nil, now)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, "BTCUSDT", tr.Symbol)
	assert.Equal(t, StatusClosed, tr.Status)
	assert.Equal(t, SideBuy, tr.Side)
	assert.Equal(t, "2024-05-01T10:00:00Z", *tr.EntryTS)
	assert.Equal(t, "2024-05-01T16:00:00Z", *tr.ExitTS)
	assert.InDelta(t, 5.0, *tr.RealizedProfitPct, 1e-9)
	assert.InDelta(t, 6.0, *tr.HoldHours, 1e-9)
	assert.InDelta(t, 110.0, *tr.TargetPrice, 1e-9)
	assert.Equal(t, "SMALL", tr.Stage)
	assert.Equal(t, SignalExit, tr.LastSignal)
}

func TestReconstructScaleInCollapses(t *testing.T) {
	trades := Reconstruct([]tradelog.Record{
		ev(map[string]any{"symbol": "ETHUSDT", "side": "BUY", "ts_utc": "2024-05-01T10:00:00Z", "entry_price": 200.0, "target_price": 220.0, "stage": "SMALL", "signal_type": "breakout"}),
		ev(map[string]any{"symbol": "ETHUSDT", "side": "BUY", "ts_utc": "2024-05-01T11:00:00Z", "entry_price": 210.0, "target_price": 230.0, "stage": "MEDIUM"}),
		ev(map[string]any{"symbol": "ETHUSDT", "side": "SELL", "ts_utc": "2024-05-01T12:00:00Z", "exit_price": 220.0, "realized_profit_pct": 9.5, "signal_type": "target"}),
	}, nil, now)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, StatusClosed, tr.Status)
	assert.InDelta(t, 200.0, *tr.EntryPrice, 1e-9)
	assert.InDelta(t, 230.0, *tr.TargetPrice, 1e-9)
	assert.Equal(t, "MEDIUM", tr.Stage)
	assert.InDelta(t, 9.5, *tr.RealizedProfitPct, 1e-9)
	assert.Equal(t, "TARGET", tr.LastSignal)
}

func TestReconstructScaleInSignal(t *testing.T) {
	trades := Reconstruct([]tradelog.Record{
		ev(map[string]any{"symbol": "ETHUSDT", "side": "BUY", "ts_utc": "2024-05-01T10:00:00Z", "entry_price": 200.0, "stage": "SMALL"}),
		ev(map[string]any{"symbol": "ETHUSDT", "side": "BUY", "ts_utc": "2024-05-01T11:00:00Z", "stage": ""}),
	}, map[string]float64{"ETHUSDT": 210}, now)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, StatusOpen, tr.Status)
	assert.Equal(t, SignalScaleIn, tr.LastSignal)
	assert.Equal(t, "SMALL", tr.Stage)
	assert.InDelta(t, 210.0, *tr.CurrentPrice, 1e-9)
	assert.InDelta(t, 5.0, *tr.UnrealizedProfitPct, 1e-9)
	assert.InDelta(t, 26.0, *tr.HoldHours, 1e-9)
	assert.Nil(t, tr.ExitTS)
}

func TestReconstructLoneSell(t *testing.T) {
	trades := Reconstruct([]tradelog.Record{
		ev(map[string]any{"symbol": "XRPUSDT", "side": "SELL", "ts_utc": "2024-05-01T10:00:00Z", "exit_price": 0.5, "realized_profit_pct": -2.0}),
	}, nil, now)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, StatusClosed, tr.Status)
	assert.Nil(t, tr.EntryTS)
	assert.Nil(t, tr.EntryPrice)
	assert.Nil(t, tr.TargetPrice)
	assert.Nil(t, tr.HoldHours)
	assert.InDelta(t, -2.0, *tr.RealizedProfitPct, 1e-9)
}

func TestReconstructOpenWithoutPrice(t *testing.T) {
	trades := Reconstruct([]tradelog.Record{
		ev(map[string]any{"symbol": "", "side": "BUY"}),
		ev(map[string]any{"symbol": "BTCUSDT", "side": "BUY", "ts_utc": "garbage", "entry_price": 100.0}),
		ev(map[string]any{"symbol": "BTCUSDT", "side": "HOLD"}),
	}, nil, now)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, StatusOpen, tr.Status)
	assert.Equal(t, SignalEntry, tr.LastSignal)
	assert.Nil(t, tr.EntryTS)
	assert.Nil(t, tr.CurrentPrice)
	assert.Nil(t, tr.UnrealizedProfitPct)
	assert.Nil(t, tr.HoldHours)
}

func TestReconstructOrderAndReopen(t *testing.T) {
	trades := Reconstruct([]tradelog.Record{
		ev(map[string]any{"symbol": "BTCUSDT", "side": "BUY", "ts_utc": "2024-05-01T08:00:00Z", "entry_price": 100.0}),
		ev(map[string]any{"symbol": "ETHUSDT", "side": "SELL", "ts_utc": "2024-05-01T09:00:00Z"}),
		ev(map[string]any{"symbol": "BTCUSDT", "side": "SELL", "ts_utc": "2024-05-01T10:00:00Z", "exit_price": 100.0}),
		ev(map[string]any{"symbol": "BTCUSDT", "side": "BUY", "ts_utc": "2024-05-01T11:00:00Z", "entry_price": 101.0}),
		ev(map[string]any{"symbol": "XRPUSDT", "side": "SELL"}),
	}, nil, now)

	require.Len(t, trades, 4)
	assert.Equal(t, StatusOpen, trades[0].Status)
	assert.Equal(t, "2024-05-01T11:00:00Z", *trades[0].EntryTS)
	assert.Equal(t, "2024-05-01T10:00:00Z", *trades[1].ExitTS)
	assert.InDelta(t, 0.0, *trades[1].RealizedProfitPct, 1e-9)
	assert.Equal(t, "ETHUSDT", trades[2].Symbol)
	// No timestamp sorts as the epoch.
	assert.Equal(t, "XRPUSDT", trades[3].Symbol)

	assert.NotNil(t, Reconstruct(nil, nil, now))
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var b bytes.Buffer
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
}

func newTestService(t *testing.T) (*store.Config, *Service) {
	t.Helper()
	cfg := store.Defaults()
	cfg.BaseDir = t.TempDir()
	writeLines(t, cfg.Path(cfg.Paths.TradeHistory),
		`{"symbol":"BTCUSDT","side":"BUY","ts_utc":"2024-05-01T10:00:00Z","entry_price":100,"stage":"SMALL"}`,
		`{"symbol":"ETHUSDT","side":"BUY","ts_utc":"2024-05-01T09:00:00Z","entry_price":NaN}`,
		`{"symbol":"ETHUSDT","side":"SELL","ts_utc":"2024-05-01T09:30:00Z","entry_price":200,"exit_price":190}`,
		`not json`,
	)
	writeLines(t, cfg.LogFile("BTCUSDT"), `{"price":"110"}`)

	svc := newService(cfg)
	svc.now = func() time.Time { return now }
	return cfg, svc
}

func TestServiceRecent(t *testing.T) {
	cfg, svc := newTestService(t)

	payload, err := historyobs.Wrap(svc).Recent(context.Background(), "", 50)
	require.NoError(t, err)
	assert.Equal(t, "ALL", payload.Symbol)
	assert.Equal(t, cfg.Path(cfg.Paths.TradeHistory), payload.Source)
	require.Equal(t, 2, payload.Count)

	btc := payload.Trades[0]
	assert.Equal(t, "BTCUSDT", btc.Symbol)
	assert.Equal(t, StatusOpen, btc.Status)
	assert.InDelta(t, 10.0, *btc.UnrealizedProfitPct, 1e-9)

	eth := payload.Trades[1]
	// Entry price falls back to the SELL event when the BUY had none.
	assert.InDelta(t, 200.0, *eth.EntryPrice, 1e-9)
	assert.InDelta(t, -5.0, *eth.RealizedProfitPct, 1e-9)
	assert.InDelta(t, 0.5, *eth.HoldHours, 1e-9)
}

func TestServiceRecentFilterAndLimit(t *testing.T) {
	_, svc := newTestService(t)

	payload, err := svc.Recent(context.Background(), "ethusdt", 50)
	require.NoError(t, err)
	assert.Equal(t, "ethusdt", payload.Symbol)
	require.Len(t, payload.Trades, 1)
	assert.Equal(t, "ETHUSDT", payload.Trades[0].Symbol)

	payload, err = svc.Recent(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, payload.Count)
	assert.Equal(t, "BTCUSDT", payload.Trades[0].Symbol)
}

func TestServiceRecentMissingLog(t *testing.T) {
	cfg := store.Defaults()
	cfg.BaseDir = t.TempDir()

	payload, err := New(cfg).Recent(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, payload.Count)
	assert.NotNil(t, payload.Trades)
}

func TestExportCSV(t *testing.T) {
	entry := "2024-05-01T10:00:00Z"
	trades := []types.Trade{{
		Symbol: "BTCUSDT", Status: StatusOpen, EntryTS: &entry,
		EntryPrice: ptr(100), UnrealizedProfitPct: ptr(1.23456), Stage: "SMALL", LastSignal: SignalEntry,
	}}

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, trades))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeaders, rows[0])
	assert.Equal(t, []string{
		"BTCUSDT", "OPEN", entry, "", "100.0000", "", "", "", "", "", "1.23", "", "SMALL", "ENTRY",
	}, rows[1])
}

func ptr(f float64) *float64 { return &f }
