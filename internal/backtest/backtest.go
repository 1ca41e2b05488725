// Package backtest serves the backtest artifacts written by the external
// research job. Nothing here computes a backtest.
package backtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crypto-signal-engine/internal/tradelog"
)

const (
	SummaryFile = "backtest_summary.json"
	SweepFile   = "backtest_sweep.json"
)

// ErrNotFound is returned when an artifact is missing or is not a JSON object.
var ErrNotFound = errors.New("backtest artifact not found")

type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Summary() (map[string]any, error) {
	return s.read(SummaryFile)
}

func (s *Store) Sweep() (map[string]any, error) {
	return s.read(SweepFile)
}

// Trades returns the last limit simulated trades of symbol from the summary.
// An unknown symbol or a missing summary yields an empty list.
func (s *Store) Trades(symbol string, limit int) []any {
	summary, err := s.Summary()
	if err != nil {
		return []any{}
	}
	symbols, _ := summary["symbols"].(map[string]any)
	entry, _ := symbols[strings.ToUpper(symbol)].(map[string]any)
	trades, ok := entry["trades"].([]any)
	if !ok {
		return []any{}
	}
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	return trades
}

func (s *Store) read(name string) (map[string]any, error) {
	path := filepath.Join(s.dir, name)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(tradelog.SanitizeJSON(b), &out); err != nil || out == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return out, nil
}
