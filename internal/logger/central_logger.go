package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	// Embed timezone database so LoadLocation works on every platform.
	_ "time/tzdata"
)

// traceLevelValue is slog.Level for TRACE level (below Debug which is -4)
const traceLevelValue = slog.Level(-8)

// Global logger instance
var (
	globalLogger   *CentralLogger
	globalLoggerMu sync.Mutex
)

// SetGlobal sets the global CentralLogger instance.
func SetGlobal(cl *CentralLogger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = cl
}

// Global returns the global CentralLogger instance.
// If none has been set it returns a console logger on stderr.
func Global() *CentralLogger {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalLogger != nil {
		return globalLogger
	}

	globalLogger = &CentralLogger{
		config:       &LoggingConfig{DefaultLevel: DefaultLogLevel},
		timezone:     time.Local,
		defaultLevel: slog.LevelInfo,
		moduleLevels: make(map[string]slog.Level),
		handler:      newTextHandler(os.Stderr, slog.LevelInfo, time.Local, false),
	}
	return globalLogger
}

type loggerContextKey struct{ name string }

// TraceIDKey is the context key for trace IDs. Use WithTraceID() to set values.
var TraceIDKey = loggerContextKey{"trace_id"}

// WithTraceID returns a new context with the trace ID set
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// CentralLogger manages module-aware logging with console and file routing
type CentralLogger struct {
	config       *LoggingConfig
	timezone     *time.Location
	handler      slog.Handler
	file         *os.File
	defaultLevel slog.Level
	moduleLevels map[string]slog.Level
	mu           sync.RWMutex
}

// NewCentralLogger creates a centralized logger with module routing
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	var tz *time.Location
	switch cfg.Timezone {
	case "", "Local":
		tz = time.Local
	default:
		var err error
		tz, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
		}
	}

	cl := &CentralLogger{
		config:       cfg,
		timezone:     tz,
		defaultLevel: parseLogLevel(cfg.DefaultLevel),
		moduleLevels: make(map[string]slog.Level),
	}

	for module, levelStr := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(levelStr)
	}

	if err := cl.createBaseHandler(); err != nil {
		return nil, fmt.Errorf("failed to create base handler: %w", err)
	}

	return cl, nil
}

// createBaseHandler fans out to the console and the main log file
func (cl *CentralLogger) createBaseHandler() error {
	var handlers []slog.Handler

	if cl.config.Console != nil && cl.config.Console.Enabled {
		handlers = append(handlers, newTextHandler(os.Stderr, parseLogLevel(cl.config.Console.Level), cl.timezone, false))
	}

	if fo := cl.config.FileOutput; fo != nil && fo.Enabled && fo.Path != "" {
		if err := os.MkdirAll(filepath.Dir(fo.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(fo.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", fo.Path, err)
		}
		cl.file = f
		handlers = append(handlers, newJSONHandler(f, parseLogLevel(fo.Level), cl.timezone))
	}

	switch len(handlers) {
	case 0:
		cl.handler = slog.DiscardHandler
	case 1:
		cl.handler = handlers[0]
	default:
		cl.handler = fanoutHandler(handlers)
	}
	return nil
}

// Module returns a logger scoped to the named module
func (cl *CentralLogger) Module(name string) Logger {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return &moduleLogger{
		central: cl,
		handler: cl.handler,
		module:  name,
		level:   cl.levelFor(name),
		tz:      cl.timezone,
	}
}

// levelFor resolves "panel.view" against "panel.view", then "panel", then the default
func (cl *CentralLogger) levelFor(module string) slog.Level {
	for name := module; name != ""; {
		if level, ok := cl.moduleLevels[name]; ok {
			return level
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return cl.defaultLevel
}

// Flush syncs the log file, if any
func (cl *CentralLogger) Flush() error {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	if cl.file == nil {
		return nil
	}
	return cl.file.Sync()
}

// Close flushes and closes the log file
func (cl *CentralLogger) Close() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.file == nil {
		return nil
	}
	err := cl.file.Close()
	cl.file = nil
	cl.handler = slog.DiscardHandler
	return err
}

// NewSlogLogger creates a standalone text logger, mainly for tests.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if tz == nil {
		tz = time.UTC
	}
	lvl := parseLogLevel(string(level))
	return &moduleLogger{
		handler: newTextHandler(w, lvl, tz, true),
		level:   lvl,
		tz:      tz,
	}
}

// Discard returns a logger that drops everything.
func Discard() Logger {
	return &moduleLogger{handler: slog.DiscardHandler, level: slog.LevelError + 1, tz: time.UTC}
}

// moduleLogger implements Logger on top of a shared slog.Handler
type moduleLogger struct {
	central *CentralLogger
	handler slog.Handler
	module  string
	level   slog.Level
	fields  []slog.Attr
	tz      *time.Location
}

func (ml *moduleLogger) Module(name string) Logger {
	full := name
	if ml.module != "" {
		full = ml.module + "." + name
	}
	level := ml.level
	if ml.central != nil {
		ml.central.mu.RLock()
		level = ml.central.levelFor(full)
		ml.central.mu.RUnlock()
	}
	return &moduleLogger{
		central: ml.central,
		handler: ml.handler,
		module:  full,
		level:   level,
		fields:  ml.fields,
		tz:      ml.tz,
	}
}

func (ml *moduleLogger) Trace(msg string, fields ...Field) { ml.log(traceLevelValue, msg, fields) }
func (ml *moduleLogger) Debug(msg string, fields ...Field) { ml.log(slog.LevelDebug, msg, fields) }
func (ml *moduleLogger) Info(msg string, fields ...Field)  { ml.log(slog.LevelInfo, msg, fields) }
func (ml *moduleLogger) Warn(msg string, fields ...Field)  { ml.log(slog.LevelWarn, msg, fields) }
func (ml *moduleLogger) Error(msg string, fields ...Field) { ml.log(slog.LevelError, msg, fields) }

func (ml *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	ml.log(parseLogLevel(string(level)), msg, fields)
}

func (ml *moduleLogger) With(fields ...Field) Logger {
	merged := make([]slog.Attr, 0, len(ml.fields)+len(fields))
	merged = append(merged, ml.fields...)
	for _, f := range fields {
		merged = append(merged, fieldToAttr(f))
	}
	clone := *ml
	clone.fields = merged
	return &clone
}

func (ml *moduleLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return ml
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		return ml.With(String("trace_id", traceID))
	}
	return ml
}

func (ml *moduleLogger) Flush() error {
	if ml.central != nil {
		return ml.central.Flush()
	}
	return nil
}

func (ml *moduleLogger) log(level slog.Level, msg string, fields []Field) {
	if level < ml.level {
		return
	}
	ctx := context.Background()
	handler := ml.handler
	if ml.central != nil {
		ml.central.mu.RLock()
		handler = ml.central.handler
		ml.central.mu.RUnlock()
	}
	if !handler.Enabled(ctx, level) {
		return
	}

	record := slog.NewRecord(time.Now().In(ml.tz), level, msg, 0)
	if ml.module != "" {
		record.AddAttrs(slog.String("module", ml.module))
	}
	record.AddAttrs(ml.fields...)
	for _, f := range fields {
		record.AddAttrs(fieldToAttr(f))
	}
	_ = handler.Handle(ctx, record)
}

func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, v)
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case nil:
		return slog.Any(f.Key, nil)
	default:
		return slog.Any(f.Key, v)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return traceLevelValue
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func levelName(level slog.Level) string {
	if level <= traceLevelValue {
		return "TRACE"
	}
	return level.String()
}

// newTextHandler builds the console handler; timestamps are optional
func newTextHandler(w io.Writer, level slog.Level, tz *time.Location, withTime bool) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				if !withTime {
					return slog.Attr{}
				}
				return slog.String(slog.TimeKey, a.Value.Time().In(tz).Format(time.RFC3339))
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					return slog.String(slog.LevelKey, levelName(lvl))
				}
			}
			return a
		},
	})
}

func newJSONHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String(slog.TimeKey, a.Value.Time().In(tz).Format(time.RFC3339))
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					return slog.String(slog.LevelKey, levelName(lvl))
				}
			}
			return a
		},
	})
}

// fanoutHandler delivers each record to every handler that accepts its level
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, inner := range h {
		if inner.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, inner := range h {
		if !inner.Enabled(ctx, r.Level) {
			continue
		}
		if err := inner.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, inner := range h {
		out[i] = inner.WithAttrs(attrs)
	}
	return out
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, inner := range h {
		out[i] = inner.WithGroup(name)
	}
	return out
}
