package news

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"crypto-signal-engine/internal/api"
	"crypto-signal-engine/internal/econ"
	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/ta"
	"crypto-signal-engine/internal/tradelog"
	"crypto-signal-engine/internal/types"
)

// ErrDisabled is returned by a provider that has nothing configured.
var ErrDisabled = errors.New("provider disabled")

// CommandProvider runs an external collector that prints the full macro
// payload as JSON on stdout.
type CommandProvider struct {
	args    []string
	dir     string
	timeout time.Duration
}

func NewCommandProvider(args []string, dir string, timeout time.Duration) *CommandProvider {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &CommandProvider{args: args, dir: dir, timeout: timeout}
}

func (p *CommandProvider) Name() string { return "command" }

func (p *CommandProvider) Fetch(ctx context.Context) (*types.GlobalNews, error) {
	if len(p.args) == 0 {
		return nil, ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.args[0], p.args[1:]...)
	cmd.Dir = p.dir
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("macro command timed out after %s", p.timeout)
		}
		return nil, fmt.Errorf("macro command failed: %w: %s", err, lastLine(stderr.String()))
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return nil, errors.New("macro command produced no output")
	}
	payload, err := decodePayload(out)
	if err != nil {
		// Collectors sometimes print progress before the payload.
		if payload, err = decodePayload([]byte(lastJSONLine(string(out)))); err != nil {
			return nil, fmt.Errorf("macro command output is not a payload: %w", err)
		}
	}
	payload.Source = p.Name()
	return payload, nil
}

// HTTPProvider fetches the macro payload from a remote collector.
type HTTPProvider struct {
	client *api.Client
	url    string
}

// NewHTTPProvider sends headers with every request, e.g. an auth token for
// the collector.
func NewHTTPProvider(url string, timeout time.Duration, headers map[string]string) *HTTPProvider {
	opts := []api.ClientOption{api.WithTimeout(timeout), api.WithLogging(true)}
	for k, v := range headers {
		opts = append(opts, api.WithHeader(k, v))
	}
	return &HTTPProvider{client: api.NewClient(opts...), url: url}
}

func (p *HTTPProvider) Name() string { return "http" }

func (p *HTTPProvider) Fetch(ctx context.Context) (*types.GlobalNews, error) {
	if p.url == "" {
		return nil, ErrDisabled
	}
	resp, err := p.client.GET(ctx, p.url)
	if err != nil {
		return nil, err
	}
	payload, err := decodePayload(resp.Body)
	if err != nil {
		return nil, err
	}
	payload.Source = p.Name()
	return payload, nil
}

func decodePayload(b []byte) (*types.GlobalNews, error) {
	var p types.GlobalNews
	if err := json.Unmarshal(tradelog.SanitizeJSON(b), &p); err != nil {
		return nil, err
	}
	if p.Status == "" && p.Macro.Posture == "" && len(p.Headlines) == 0 {
		return nil, errors.New("payload has no status, posture or headlines")
	}
	return Normalize(&p, time.Now()), nil
}

func lastJSONLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); strings.HasPrefix(l, "{") {
			return l
		}
	}
	return ""
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// LocalProvider builds the payload from files on disk: the macro cache, then
// the optional headline source, then the bullets of the latest log rows.
// It never fails.
type LocalProvider struct {
	cachePath string
	logFiles  []string
	econ      *econ.StateStore
	headlines interfaces.HeadlineSource
	now       func() time.Time
}

type LocalOption func(*LocalProvider)

// WithHeadlineSource consults src when the cache has no highlights.
func WithHeadlineSource(src interfaces.HeadlineSource) LocalOption {
	return func(p *LocalProvider) { p.headlines = src }
}

// WithEconState enables the economic panel deltas.
func WithEconState(s *econ.StateStore) LocalOption {
	return func(p *LocalProvider) { p.econ = s }
}

func WithClock(now func() time.Time) LocalOption {
	return func(p *LocalProvider) { p.now = now }
}

func NewLocalProvider(cachePath string, logFiles []string, opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{cachePath: cachePath, logFiles: logFiles, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) Fetch(ctx context.Context) (*types.GlobalNews, error) {
	now := p.now()
	payload := NewPayload(now)
	payload.Source = p.Name()

	var highlights, notes []string
	raw := tradelog.Record{}
	usedCache := false

	if cache, data := p.readCache(); data != nil {
		usedCache = true
		payload.Status = "ok"
		payload.Macro.Badge = data.Str("badge", BadgeNeutral)
		payload.Macro.MacroScore = data.Num("macro_score")
		payload.Macro.Posture = data.Str("posture", types.PostureNoData)
		if ts := cache.Num("ts"); ts != nil {
			s := FormatTS(time.Unix(int64(*ts), 0))
			payload.Macro.UpdatedTS = &s
		}
		highlights = data.Strings("highlights")
		notes = data.Strings("notes")
		raw = data.Obj("raw")
	}

	if len(highlights) == 0 && p.headlines != nil {
		titles, err := p.headlines.Headlines(ctx)
		if err != nil {
			logger.Warn(ctx, "Headline source failed", "error", err)
		}
		if len(titles) > 0 {
			highlights = titles
			payload.Status = "ok"
			notes = append(notes, NoteScraped)
		}
	}

	if len(highlights) == 0 {
		bullets, latest, posture := p.scanLogs()
		switch {
		case len(bullets) > 0:
			highlights = bullets
			payload.Status = "ok"
			if posture != "" {
				payload.Macro.Posture = posture
			}
			if !latest.IsZero() {
				s := FormatTS(latest)
				payload.Macro.UpdatedTS = &s
			}
			notes = append(notes, NoteLocalFallback)
		case !usedCache:
			notes = append(notes, NoteNoData)
			payload.Watchlist = []string{WatchRunRefresh}
		}
	}

	if p.econ != nil {
		cards, err := p.econ.Panel(raw, now)
		if err != nil {
			logger.Warn(ctx, "Failed to persist economic panel state", "error", err)
		}
		payload.EconomicPanel = cards
	} else {
		payload.EconomicPanel = econ.BuildCards(raw)
	}

	return Finalize(payload, highlights, notes), nil
}

// readCache returns the cache object and its data block. A top-level object
// without "data" is its own data block.
func (p *LocalProvider) readCache() (tradelog.Record, tradelog.Record) {
	if p.cachePath == "" {
		return nil, nil
	}
	b, err := os.ReadFile(p.cachePath)
	if err != nil {
		return nil, nil
	}
	var cache map[string]any
	if err := json.Unmarshal(tradelog.SanitizeJSON(b), &cache); err != nil || cache == nil {
		return nil, nil
	}
	rec := tradelog.Record(cache)
	if data, ok := cache["data"].(map[string]any); ok {
		return rec, tradelog.Record(data)
	}
	return rec, rec
}

func (p *LocalProvider) scanLogs() ([]string, time.Time, string) {
	var (
		bullets []string
		latest  time.Time
		posture string
	)
	seen := map[string]bool{}
	for _, path := range p.logFiles {
		if len(bullets) >= maxHighlights {
			break
		}
		row, err := tradelog.ReadLatest(path)
		if err != nil || row == nil {
			continue
		}
		if ts, ok := ParseTS(row.Str("ts_utc", "")); ok && ts.After(latest) {
			latest = ts
		}
		if v, ok := ParsePosture(row.Str("macro_news_line", "")); ok {
			posture = v
		}
		for _, b := range row.Strings("macro_bullets") {
			key := strings.ToLower(b)
			if seen[key] {
				continue
			}
			seen[key] = true
			bullets = append(bullets, b)
			if len(bullets) >= maxHighlights {
				break
			}
		}
	}
	return bullets, latest, posture
}

// Chain tries each provider in order and returns the first payload. The
// fallback, when set, runs last and is consulted even after the caller's
// context is done.
type Chain struct {
	providers []interfaces.MacroProvider
	fallback  interfaces.MacroProvider
	now       func() time.Time
}

func NewChain(providers ...interfaces.MacroProvider) *Chain {
	return &Chain{providers: providers, now: time.Now}
}

// WithFallback sets the provider that always gets a turn.
func (c *Chain) WithFallback(p interfaces.MacroProvider) *Chain {
	c.fallback = p
	return c
}

// Resolve never fails: when every provider errors it returns the empty
// "sem_dados" payload.
func (c *Chain) Resolve(ctx context.Context) *types.GlobalNews {
	for _, p := range c.providers {
		if ctx.Err() != nil {
			break
		}
		if payload, ok := c.fetch(ctx, p); ok {
			return payload
		}
	}
	if c.fallback != nil {
		fctx := ctx
		if ctx.Err() != nil {
			fctx = context.WithoutCancel(ctx)
		}
		if payload, ok := c.fetch(fctx, c.fallback); ok {
			return payload
		}
	}
	return NewPayload(c.now())
}

func (c *Chain) fetch(ctx context.Context, p interfaces.MacroProvider) (*types.GlobalNews, bool) {
	payload, err := p.Fetch(ctx)
	if err == nil && payload != nil {
		logger.Debug(ctx, "Macro payload resolved", "provider", p.Name(), "posture", payload.Macro.Posture)
		return payload, true
	}
	if !errors.Is(err, ErrDisabled) {
		logger.Warn(ctx, "Macro provider failed", "provider", p.Name(), "error", err)
	}
	return nil, false
}

// PostureFor returns the posture to use for one symbol: the global posture,
// or the one the row's macro line reports when the global one has no data.
func PostureFor(global string, row tradelog.Record) string {
	if global != "" && global != types.PostureNoData {
		return global
	}
	if v, ok := ParsePosture(row.Str("macro_news_line", "")); ok {
		return v
	}
	return types.PostureNoData
}

// ScoreLabel renders the macro score for log lines.
func ScoreLabel(p *types.GlobalNews) string {
	if p == nil || p.Macro.MacroScore == nil {
		return "n/a"
	}
	return ta.FormatNumber(p.Macro.MacroScore)
}
