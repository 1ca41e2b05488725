package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"crypto-signal-engine/internal/backtest"
	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/refresh"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) live(c *gin.Context) {
	payload, err := s.deps.Engine.Live(c.Request.Context())
	if err != nil {
		logger.ErrorWithErr(c.Request.Context(), "Live payload failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) globalNews(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Macro.Resolve(c.Request.Context()))
}

func (s *Server) recentTrades(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	limit := queryLimit(c, 50, 500)

	payload, err := s.deps.History.Recent(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) backtestTrades(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	limit := queryLimit(c, 20, 200)

	trades := []any{}
	if symbol != "" {
		trades = s.deps.Backtests.Trades(symbol, limit)
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "trades": trades})
}

func (s *Server) backtestSummary(c *gin.Context) {
	s.artifact(c, backtest.SummaryFile, s.deps.Backtests.Summary)
}

func (s *Server) backtestSweep(c *gin.Context) {
	s.artifact(c, backtest.SweepFile, s.deps.Backtests.Sweep)
}

func (s *Server) artifact(c *gin.Context, name string, read func() (map[string]any, error)) {
	data, err := read()
	switch {
	case errors.Is(err, backtest.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": name + " não encontrado"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, data)
	}
}

func (s *Server) refreshStatus(c *gin.Context) {
	if s.deps.Refresh == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "refresh não configurado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": s.deps.Refresh.Status()})
}

func (s *Server) refreshRun(c *gin.Context) {
	if s.deps.Refresh == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "refresh não configurado"})
		return
	}
	res, err := s.deps.Refresh.Start(c.Request.Context())
	switch {
	case errors.Is(err, refresh.ErrThrottled):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"ok":      false,
			"started": false,
			"status":  res.Status,
			"message": "aguarde antes de iniciar outra atualização",
		})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	case !res.Started:
		c.JSON(http.StatusConflict, res)
	default:
		c.JSON(http.StatusAccepted, res)
	}
}
