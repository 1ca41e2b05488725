// Package recorder persists decision cycles for later audit.
package recorder

import (
	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/store"
)

// New opens the SQLite recorder when a path is configured and falls back to
// the no-op recorder otherwise.
func New(cfg *store.Config) (interfaces.Recorder, error) {
	if cfg.Recorder.SQLitePath == "" {
		return NewNoopRecorder(), nil
	}
	return NewSQLiteRecorder(cfg.Path(cfg.Recorder.SQLitePath))
}
