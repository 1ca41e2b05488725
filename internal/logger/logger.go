package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"crypto-signal-engine/internal/trace"
)

var (
	// Global logger instance, replaced by Init
	globalLogger = slog.Default()
	// Adds the caller and debug records when set
	detailedLogging bool
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level           string // DEBUG, INFO, WARN, ERROR
	Format          string // json or text
	DetailedLogging bool
	Output          io.Writer // stdout when nil
}

// Init configures the global logger from LOG_LEVEL, LOG_FORMAT and
// LOG_DETAILED. Span export is owned by the trace package.
func Init() error {
	return InitWithConfig(LogConfig{
		Level:           getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format:          getEnvOrDefault("LOG_FORMAT", "json"),
		DetailedLogging: getEnvOrDefault("LOG_DETAILED", "false") == "true",
	})
}

func InitWithConfig(config LogConfig) error {
	detailedLogging = config.DetailedLogging

	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	// Source is added by logWithTrace so decorators can report their caller.
	opts := &slog.HandlerOptions{Level: parseLogLevel(config.Level)}

	var handler slog.Handler
	switch strings.ToLower(config.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		return fmt.Errorf("unknown log format %q", config.Format)
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Debug records are dropped unless LOG_DETAILED is on.
func Debug(ctx context.Context, msg string, args ...any) {
	if !detailedLogging {
		return
	}
	logWithTrace(ctx, slog.LevelDebug, msg, 2, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelInfo, msg, 2, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelWarn, msg, 2, args...)
}

// ErrorWithErr logs at error level and marks the active span as failed.
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	markSpanFailed(ctx, err)
	logWithTrace(ctx, slog.LevelError, msg, 2, append([]any{"error", err}, args...)...)
}

func markSpanFailed(ctx context.Context, err error) {
	if !trace.Enabled() || err == nil {
		return
	}
	span := oteltrace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// logWithTrace prefixes trace and span ids when tracing is on. skip counts
// frames from runtime.Caller up to the caller reported as source.
func logWithTrace(ctx context.Context, level slog.Level, msg string, skip int, args ...any) {
	if traceID, spanID, ok := trace.GetTraceFields(ctx); ok {
		args = append([]any{"trace_id", traceID, "span_id", spanID}, args...)
	}
	if detailedLogging {
		if pc, file, line, ok := runtime.Caller(skip); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				args = append(args, "source", slog.GroupValue(
					slog.String("function", fn.Name()),
					slog.String("file", file),
					slog.Int("line", line),
				))
			}
		}
	}
	globalLogger.Log(ctx, level, msg, args...)
}

// Operation times one traced call. Fields given at start are attached to
// the span and repeated on the closing record.
type Operation struct {
	ctx    context.Context
	span   oteltrace.Span
	start  time.Time
	level  slog.Level
	fields []any
}

// StartOperation opens a span named name and starts the clock. The closing
// record is logged at info level.
func StartOperation(ctx context.Context, name string, fields ...any) *Operation {
	ctx, span := trace.StartSpan(ctx, name)
	if trace.Enabled() {
		span.SetAttributes(spanAttrs(fields)...)
	}
	return &Operation{ctx: ctx, span: span, start: time.Now(), level: slog.LevelInfo, fields: fields}
}

// Quiet logs the closing record at debug level instead.
func (op *Operation) Quiet() *Operation {
	op.level = slog.LevelDebug
	return op
}

// Context carries the operation's span.
func (op *Operation) Context() context.Context { return op.ctx }

// End logs msg with the elapsed time and closes the span.
func (op *Operation) End(msg string, fields ...any) {
	elapsed := time.Since(op.start)
	if trace.Enabled() {
		op.span.SetAttributes(attribute.Int64("duration_ms", elapsed.Milliseconds()))
		op.span.SetAttributes(spanAttrs(fields)...)
		op.span.SetStatus(codes.Ok, "")
	}
	op.span.End()

	if op.level == slog.LevelDebug && !detailedLogging {
		return
	}
	all := append(append(append([]any{}, op.fields...), fields...), "duration_ms", elapsed.Milliseconds())
	logWithTrace(op.ctx, op.level, msg, 2, all...)
}

// Fail logs err with the elapsed time and closes the span as failed.
func (op *Operation) Fail(msg string, err error, fields ...any) {
	elapsed := time.Since(op.start)
	markSpanFailed(op.ctx, err)
	op.span.End()

	all := append([]any{"error", err}, op.fields...)
	all = append(append(all, fields...), "duration_ms", elapsed.Milliseconds())
	logWithTrace(op.ctx, slog.LevelError, msg, 2, all...)
}

func spanAttrs(fields []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		default:
			attrs = append(attrs, attribute.String(key, fmt.Sprint(v)))
		}
	}
	return attrs
}

// Decision logs a derived trade plan at info level and adds a trade_plan
// event to the active span.
func Decision(ctx context.Context, symbol, action string, confidence int, bottleneck string, fields ...any) {
	if trace.Enabled() {
		oteltrace.SpanFromContext(ctx).AddEvent("trade_plan", oteltrace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("action", action),
			attribute.Int("confidence", confidence),
			attribute.String("bottleneck", bottleneck),
		))
	}
	all := append([]any{
		"type", "DECISION",
		"symbol", symbol,
		"action", action,
		"confidence", confidence,
		"bottleneck", bottleneck,
	}, fields...)
	logWithTrace(ctx, slog.LevelInfo, "Trade plan derived", 2, all...)
}

// Risk logs a guardrail or macro risk event at warn level.
func Risk(ctx context.Context, symbol, eventType string, fields ...any) {
	if trace.Enabled() {
		oteltrace.SpanFromContext(ctx).AddEvent("risk_event", oteltrace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("event_type", eventType),
		))
	}
	all := append([]any{"type", "RISK", "symbol", symbol, "event_type", eventType}, fields...)
	logWithTrace(ctx, slog.LevelWarn, "Risk event", 2, all...)
}
