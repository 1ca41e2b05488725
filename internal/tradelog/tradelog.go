package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	mu         sync.Mutex
	journalDir string
)

// DecisionEntry is one journaled trade plan.
type DecisionEntry struct {
	Time       string   `json:"time"`
	Symbol     string   `json:"symbol"`
	Action     string   `json:"action"`
	Confidence int      `json:"confidence"`
	Bottleneck string   `json:"bottleneck"`
	Posture    string   `json:"posture"`
	Price      *float64 `json:"price"`
	StopOp     *float64 `json:"stop_operational_price"`
	Target1    *float64 `json:"target1_price"`
	Blocked    bool     `json:"guardrails_blocked"`
	Steps      []string `json:"buy_now_steps,omitempty"`
}

// SetDir points the decision journal at dir. An empty dir restores the default.
func SetDir(dir string) {
	mu.Lock()
	defer mu.Unlock()
	journalDir = dir
}

func logDir() string {
	if journalDir != "" {
		return journalDir
	}
	if v := os.Getenv("SIGNALS_JOURNAL_DIR"); v != "" {
		return v
	}
	return "journal"
}

func decisionsFilepath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), "decisions", d+".jsonl")
}

// DecisionsFile returns the journal file that entries written at t land in.
func DecisionsFile(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return decisionsFilepath(t)
}

func AppendDecision(e DecisionEntry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().UTC()
	if e.Time == "" {
		e.Time = now.Format(time.RFC3339)
	}
	p := decisionsFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// compressFile is swapped in tests.
var compressFile = gzipFile

// CompressOlder gzips journal files last modified more than retentionDays ago.
// A file that fails to compress is left in place and its error is returned
// after the remaining files have been handled.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	mu.Lock()
	root := logDir()
	mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	var failed []error
	walkErr := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".jsonl") {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := compressFile(p, gz); err != nil {
			_ = os.Remove(gz)
			failed = append(failed, fmt.Errorf("compress %s: %w", filepath.Base(p), err))
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
	return errors.Join(append(failed, walkErr)...)
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
