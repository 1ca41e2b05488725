package news

import (
	"context"
	"sync"
	"time"

	"crypto-signal-engine/internal/econ"
	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/store"
	"crypto-signal-engine/internal/types"
)

// Service resolves the macro payload through the provider chain and keeps
// the result for a short TTL.
type Service struct {
	chain   *Chain
	cache   *payloadCache
	enabled bool
}

// payloadCache holds the last resolved payload.
type payloadCache struct {
	mu      sync.RWMutex
	payload *types.GlobalNews
	stored  time.Time
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

func newPayloadCache(ttl time.Duration) *payloadCache {
	c := &payloadCache{ttl: ttl, stop: make(chan struct{})}
	if ttl > 0 {
		go c.cleanupLoop()
	}
	return c
}

func (c *payloadCache) get() (*types.GlobalNews, time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.payload == nil || c.ttl <= 0 {
		return nil, 0, false
	}
	age := time.Since(c.stored)
	if age > c.ttl {
		return nil, 0, false
	}
	return c.payload, age, true
}

func (c *payloadCache) set(p *types.GlobalNews) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.payload = p
	c.stored = time.Now()
}

func (c *payloadCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.payload = nil
}

func (c *payloadCache) cleanupLoop() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup drops an expired payload so it can be collected.
func (c *payloadCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.payload != nil && time.Since(c.stored) > c.ttl {
		c.payload = nil
	}
}

func (c *payloadCache) close() {
	c.once.Do(func() { close(c.stop) })
}

// NewService wires the providers described by cfg: command, then HTTP, then
// the local fallback (with the scraper as its headline source when enabled).
func NewService(cfg *store.Config) *Service {
	var localOpts []LocalOption
	if cfg.Paths.EconState != "" {
		localOpts = append(localOpts, WithEconState(econ.NewStateStore(cfg.Path(cfg.Paths.EconState))))
	}
	if sc := cfg.Macro.Scraper; sc.Enabled && len(sc.Sources) > 0 {
		srcs := make([]HeadlineSourceConfig, 0, len(sc.Sources))
		for _, s := range sc.Sources {
			srcs = append(srcs, HeadlineSourceConfig{Name: s.Name, URL: s.URL, Selector: s.Selector})
		}
		localOpts = append(localOpts, WithHeadlineSource(
			NewScraper(srcs, time.Duration(sc.TimeoutS)*time.Second, sc.MaxTitles)))
	}

	logFiles := make([]string, 0, len(cfg.Symbols))
	for _, sym := range cfg.Symbols {
		logFiles = append(logFiles, cfg.LogFile(sym))
	}
	local := NewLocalProvider(cfg.Path(cfg.Paths.MacroCache), logFiles, localOpts...)

	providers := []interfaces.MacroProvider{
		NewCommandProvider(cfg.Macro.Command, cfg.BaseDir, time.Duration(cfg.Macro.CommandTimeoutS)*time.Second),
		NewHTTPProvider(cfg.Macro.HTTPURL, time.Duration(cfg.Macro.HTTPTimeoutS)*time.Second, cfg.Macro.HTTPHeaders),
	}
	return NewServiceWith(providers, local, cfg.MacroTTL(), !cfg.Macro.Disabled)
}

// NewServiceWith builds a service from explicit providers. local always runs
// last; when enabled is false it is the only provider consulted.
func NewServiceWith(remote []interfaces.MacroProvider, local *LocalProvider, ttl time.Duration, enabled bool) *Service {
	var providers []interfaces.MacroProvider
	if enabled {
		providers = remote
	}
	return &Service{
		chain:   NewChain(providers...).WithFallback(local),
		cache:   newPayloadCache(ttl),
		enabled: enabled,
	}
}

// Resolve returns the cached payload while fresh, else resolves a new one.
func (s *Service) Resolve(ctx context.Context) *types.GlobalNews {
	if cached, age, ok := s.cache.get(); ok {
		logger.Debug(ctx, "Using cached macro payload", "age_seconds", age.Seconds())
		return cached
	}
	return s.Refresh(ctx)
}

// Refresh bypasses the cache.
func (s *Service) Refresh(ctx context.Context) *types.GlobalNews {
	logger.Info(ctx, "Resolving macro payload", "remote_enabled", s.enabled)
	payload := s.chain.Resolve(ctx)
	if ctx.Err() != nil && payload.Status == types.PostureNoData {
		logger.Warn(ctx, "Macro payload resolved after cancellation - not cached", "error", ctx.Err())
		return payload
	}
	s.cache.set(payload)
	return payload
}

// ClearCache removes the cached payload
func (s *Service) ClearCache() {
	s.cache.clear()
}

// Close stops the cache cleanup loop.
func (s *Service) Close() {
	s.cache.close()
}
