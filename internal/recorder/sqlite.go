package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/types"
)

var _ interfaces.Recorder = (*SQLiteRecorder)(nil)

// SQLiteRecorder keeps one row per symbol and cycle, plus the macro context
// the cycle ran under.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// The dashboard reads while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info(context.Background(), "SQLite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS plan_snapshots (
			id                     INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp              INTEGER NOT NULL,
			generated_at           TEXT,
			symbol                 TEXT NOT NULL,
			price                  REAL,
			stage                  TEXT,
			action                 TEXT,
			display_action         TEXT,
			confidence             INTEGER,
			bottleneck             TEXT,
			macro_posture          TEXT,
			stop_operational_price REAL,
			stop_structural_price  REAL,
			target1_price          REAL,
			target2_price          REAL,
			suggested_alloc_pct    REAL,
			invalidated            INTEGER,
			guardrails_blocked     INTEGER,
			plan_json              TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plan_symbol_ts ON plan_snapshots(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS macro_snapshots (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			generated_at TEXT,
			status       TEXT,
			source       TEXT,
			posture      TEXT,
			macro_score  REAL,
			headlines    INTEGER,
			payload_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_macro_ts ON macro_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordPlans stores every symbol of live in a single transaction.
func (r *SQLiteRecorder) RecordPlans(ctx context.Context, live *types.LivePayload) error {
	if live == nil || len(live.Symbols) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO plan_snapshots
		(timestamp, generated_at, symbol, price, stage, action, display_action, confidence,
		 bottleneck, macro_posture, stop_operational_price, stop_structural_price,
		 target1_price, target2_price, suggested_alloc_pct, invalidated, guardrails_blocked, plan_json)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := r.now().Unix()
	for sym, v := range live.Symbols {
		p := v.TradePlan
		planJSON, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode plan %s: %w", sym, err)
		}
		if _, err := stmt.ExecContext(ctx,
			now, live.GeneratedAt, sym, v.Price, v.Stage, p.Action, v.DisplayAction, p.Confidence,
			p.Bottleneck.Key, p.Quality.MacroPosture, p.StopOperationalPrice, p.StopStructuralPrice,
			p.Target1Price, p.Target2Price, p.SuggestedAllocPct, p.Invalidated, p.GuardrailsBlocked,
			string(planJSON),
		); err != nil {
			return fmt.Errorf("insert plan %s: %w", sym, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordMacro(ctx context.Context, macro *types.GlobalNews) error {
	if macro == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := json.Marshal(macro)
	if err != nil {
		return fmt.Errorf("encode macro: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO macro_snapshots
		(timestamp, generated_at, status, source, posture, macro_score, headlines, payload_json)
		VALUES (?,?,?,?,?,?,?,?)`,
		r.now().Unix(), macro.GeneratedAt, macro.Status, macro.Source, macro.Macro.Posture,
		macro.Macro.MacroScore, len(macro.Headlines), string(payload),
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	logger.Info(context.Background(), "Closing SQLite recorder")
	return r.db.Close()
}
