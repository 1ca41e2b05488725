// Package server exposes the decision engine over a small JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"crypto-signal-engine/internal/backtest"
	"crypto-signal-engine/internal/interfaces"
	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/refresh"
)

// Deps are the services the API reads from. Refresh may be nil, in which
// case the refresh endpoints report the runner as unavailable.
type Deps struct {
	Engine    interfaces.Engine
	Macro     interfaces.MacroResolver
	History   interfaces.TradeHistory
	Backtests *backtest.Store
	Refresh   *refresh.Runner
}

type Server struct {
	deps   Deps
	router *gin.Engine
}

func New(deps Deps) *Server {
	s := &Server{deps: deps, router: gin.New()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(gin.Recovery(), requestLogger(), noStore())

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	api.GET("/live", s.live)
	api.GET("/global-news", s.globalNews)
	api.GET("/recent-trades", s.recentTrades)
	api.GET("/trades", s.backtestTrades)
	api.GET("/backtest-summary", s.backtestSummary)
	api.GET("/backtest-sweep", s.backtestSweep)
	api.GET("/refresh-status", s.refreshStatus)
	api.POST("/refresh-run", s.refreshRun)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info(shutdownCtx, "HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func noStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// queryLimit parses the limit parameter, falling back to def when it is
// missing or not a number, and clamps it to [1, hi].
func queryLimit(c *gin.Context, def, hi int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query("limit")))
	if err != nil {
		return def
	}
	return min(max(n, 1), hi)
}
