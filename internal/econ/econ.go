// Package econ builds the economic indicator panel shown next to the macro
// headlines and tracks how each indicator moved since the previous reading.
package econ

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crypto-signal-engine/internal/ta"
	"crypto-signal-engine/internal/tradelog"
	"crypto-signal-engine/internal/types"
)

const (
	FedFunds = "Fed Funds"
	US10Y    = "US10Y"
	US2Y     = "US2Y"
	Curve    = "Curva 10Y-2Y"
	CPI      = "CPI (índice)"
	VIX      = "VIX"
	SPX      = "S&P 500 (dia)"
	DXY      = "DXY (dia)"
)

// Snapshot is the set of indicator values seen in one reading.
type Snapshot struct {
	TS     int64              `json:"ts"`
	Values map[string]float64 `json:"values"`
}

// BuildCards derives the panel from the raw provider block of the macro
// cache ({fred: {items: ...}, finnhub: {items: ...}}).
func BuildCards(raw tradelog.Record) []types.EconCard {
	fred := raw.Obj("fred").Obj("items")
	fin := raw.Obj("finnhub").Obj("items")

	fedFunds := fred.Obj("fed_funds").Num("value")
	us10y := fred.Obj("us10y").Num("value")
	us2y := fred.Obj("us2y").Num("value")
	var spread *float64
	if us10y != nil && us2y != nil {
		spread = ta.Ptr(*us10y - *us2y)
	}
	cpi := fred.Obj("cpi_yoy").Num("value")

	vix, vixSrc := fin.Obj("vix").Num("c"), "FINNHUB"
	if vix == nil {
		if v := fred.Obj("vix").Num("value"); v != nil {
			vix, vixSrc = v, "FRED"
		}
	}

	spxDP := fin.Obj("spx").Num("dp")
	spxLevel := fred.Obj("sp500").Num("value")
	dxyDP := fin.Obj("dxy").Num("dp")
	dxyLevel := fred.Obj("dxy_broad").Num("value")

	spxVal, spxUnit, spxSrc := dailyOrLevel(spxDP, spxLevel)
	dxyVal, dxyUnit, dxySrc := dailyOrLevel(dxyDP, dxyLevel)

	return []types.EconCard{
		card(FedFunds, fedFunds, "%", "Juro básico dos EUA.", "FRED"),
		card(US10Y, us10y, "%", "Treasury 10 anos.", "FRED"),
		card(US2Y, us2y, "%", "Treasury 2 anos.", "FRED"),
		card(Curve, spread, "pp", spreadNote(spread), "FRED"),
		card(CPI, cpi, "", "Nível de preços (série CPIAUCSL).", "FRED"),
		card(VIX, vix, "", vixNote(vix), vixSrc),
		card(SPX, spxVal, spxUnit, spxNote(spxDP, spxLevel), spxSrc),
		card(DXY, dxyVal, dxyUnit, dxyNote(dxyDP, dxyLevel), dxySrc),
	}
}

func dailyOrLevel(dp, level *float64) (*float64, string, string) {
	if dp != nil {
		return dp, "%", "FINNHUB"
	}
	if level != nil {
		return level, "", "FRED"
	}
	return nil, "", "FINNHUB"
}

func card(name string, value *float64, unit, note, source string) types.EconCard {
	return types.EconCard{
		Name:         name,
		Value:        value,
		Unit:         unit,
		Note:         note,
		Source:       source,
		Available:    value != nil,
		Signal:       Signal(name, value),
		ImpactCrypto: ImpactCrypto(name, value, unit),
	}
}

// ApplyDeltas fills delta and delta_pct against prev and returns the snapshot
// to persist for the next reading. It has no side effects.
func ApplyDeltas(cards []types.EconCard, prev Snapshot, now time.Time) ([]types.EconCard, Snapshot) {
	next := Snapshot{TS: now.Unix(), Values: map[string]float64{}}
	out := make([]types.EconCard, len(cards))
	for i, c := range cards {
		c.Delta, c.DeltaPct = nil, nil
		if c.Value != nil {
			next.Values[c.Name] = *c.Value
			if p, ok := prev.Values[c.Name]; ok {
				d := *c.Value - p
				c.Delta = ta.Ptr(d)
				if p != 0 {
					c.DeltaPct = ta.Ptr(d / abs(p) * 100)
				}
			}
		}
		out[i] = c
	}
	return out, next
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// StateStore persists the previous snapshot as a small JSON file.
type StateStore struct {
	path string
	mu   sync.Mutex
}

func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Load returns an empty snapshot when the file is missing or unreadable.
func (s *StateStore) Load() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var snap Snapshot
	b, err := os.ReadFile(s.path)
	if err != nil {
		return Snapshot{Values: map[string]float64{}}
	}
	if err := json.Unmarshal(tradelog.SanitizeJSON(b), &snap); err != nil || snap.Values == nil {
		return Snapshot{Values: map[string]float64{}}
	}
	return snap
}

func (s *StateStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return errors.New("econ state path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Panel builds the cards, diffs them against the stored snapshot and saves
// the new one. Save failures keep the computed cards.
func (s *StateStore) Panel(raw tradelog.Record, now time.Time) ([]types.EconCard, error) {
	cards, next := ApplyDeltas(BuildCards(raw), s.Load(), now)
	return cards, s.Save(next)
}
