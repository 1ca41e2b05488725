// Package refresh runs the external data refresh command in the background,
// one run at a time.
package refresh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"crypto-signal-engine/internal/logger"
	"crypto-signal-engine/internal/news"
)

const (
	maxMessageLen   = 240
	exitTimeout     = 124
	exitStartFailed = 1
)

// ErrThrottled is returned by Start when runs are requested faster than the
// configured minimum interval.
var ErrThrottled = errors.New("refresh throttled")

// Status is the state of the last (or current) run.
type Status struct {
	Running    bool    `json:"running"`
	StartedAt  *string `json:"started_at"`
	FinishedAt *string `json:"finished_at"`
	ExitCode   *int    `json:"exit_code"`
	Message    string  `json:"message"`
}

type StartResult struct {
	OK      bool   `json:"ok"`
	Started bool   `json:"started"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

type Runner struct {
	args    []string
	dir     string
	timeout time.Duration
	limiter *rate.Limiter
	now     func() time.Time

	mu    sync.Mutex
	state Status
	wg    sync.WaitGroup
}

// NewRunner builds a runner for args executed in dir. A zero minInterval
// disables throttling.
func NewRunner(args []string, dir string, timeout, minInterval time.Duration) *Runner {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Runner{
		args:    args,
		dir:     dir,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
		state:   Status{Message: "idle"},
	}
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start launches a run unless one is already going. A concurrent run is not
// an error: the result reports Started false.
func (r *Runner) Start(ctx context.Context) (StartResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Running {
		return StartResult{Status: r.state, Message: "já existe atualização em andamento"}, nil
	}
	if !r.limiter.Allow() {
		return StartResult{Status: r.state}, ErrThrottled
	}

	r.state = Status{
		Running:   true,
		StartedAt: r.stamp(),
		Message:   fmt.Sprintf("executando %s...", r.label()),
	}
	logger.Info(ctx, "Refresh started", "command", r.label())

	r.wg.Add(1)
	go r.run()

	return StartResult{OK: true, Started: true, Status: r.state, Message: "refresh iniciado"}, nil
}

// Wait blocks until the current run, if any, has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run() {
	defer r.wg.Done()

	code, msg := r.exec()

	r.mu.Lock()
	r.state.Running = false
	r.state.FinishedAt = r.stamp()
	r.state.ExitCode = &code
	r.state.Message = msg
	r.mu.Unlock()

	ctx := context.Background()
	if code == 0 {
		logger.Info(ctx, "Refresh finished", "command", r.label())
	} else {
		logger.Warn(ctx, "Refresh failed", "command", r.label(), "exit_code", code, "message", msg)
	}
}

func (r *Runner) exec() (int, string) {
	if len(r.args) == 0 {
		return exitStartFailed, "falha ao iniciar refresh: nenhum comando configurado"
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.args[0], r.args[1:]...)
	cmd.Dir = r.dir
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return exitTimeout, fmt.Sprintf("timeout (%ds) ao executar %s", int(r.timeout.Seconds()), r.label())
	}
	if err == nil {
		return 0, "ok"
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return exitStartFailed, "falha ao iniciar refresh: " + err.Error()
	}
	out := strings.TrimSpace(stderr.String())
	if out == "" {
		out = strings.TrimSpace(stdout.String())
	}
	msg := fmt.Sprintf("erro ao executar %s", r.label())
	if out != "" {
		lines := strings.Split(out, "\n")
		msg = strings.TrimSpace(lines[len(lines)-1])
	}
	return exitErr.ExitCode(), truncate(msg, maxMessageLen)
}

func (r *Runner) label() string {
	return strings.Join(r.args, " ")
}

func (r *Runner) stamp() *string {
	s := news.FormatTS(r.now())
	return &s
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}
