// Package log provides structured logging with pool and worker context.
//
// Two logger variants are available:
//   - Logger: Non-sugared zap.Logger for the pool and worker hot paths
//   - SugaredLogger: Printf-style logging for CLI/debug surfaces
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Meta is the context attached to every entry of a logger.
type Meta struct {
	// Component names the emitting subsystem (pool, worker, cli, ...).
	Component string
	// PoolID identifies the pool instance, when known.
	PoolID string
	// Worker is the worker index, or nil outside a worker.
	Worker *int
}

// Logger provides structured logging with pool context.
//
// Use this for core paths where performance matters.
// For CLI/debug surfaces, use Sugar() to get a SugaredLogger.
// A nil *Logger discards everything.
type Logger struct {
	zap *zap.Logger
}

// SugaredLogger provides printf-style logging for CLI and debug surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a new logger with the given context.
// Output defaults to os.Stderr; worker processes reserve stdout for frames.
func NewLogger(meta Meta) *Logger {
	return newLoggerWithWriter(meta, os.Stderr)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

func newCore(w io.Writer) zapcore.Core {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
}

// WithOutput returns a new logger with a different output writer.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	core := newCore(w)
	return &Logger{zap: l.zap.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }))}
}

// WithWorker returns a logger tagged with a worker index.
func (l *Logger) WithWorker(index int) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{zap: l.zap.With(zap.Int("worker", index))}
}

// With returns a logger with an additional context field.
func (l *Logger) With(key string, value any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{zap: l.zap.With(zap.Any(key, value))}
}

// newLoggerWithWriter creates a logger writing to the specified writer.
func newLoggerWithWriter(meta Meta, w io.Writer) *Logger {
	var contextFields []zap.Field
	if meta.Component != "" {
		contextFields = append(contextFields, zap.String("component", meta.Component))
	}
	if meta.PoolID != "" {
		contextFields = append(contextFields, zap.String("pool_id", meta.PoolID))
	}
	if meta.Worker != nil {
		contextFields = append(contextFields, zap.Int("worker", *meta.Worker))
	}

	return &Logger{zap: zap.New(newCore(w)).With(contextFields...)}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	if l == nil {
		return
	}
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	if l == nil {
		return
	}
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	if l == nil {
		return
	}
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	if l == nil {
		return
	}
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.zap.Sync()
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	if l == nil {
		return &SugaredLogger{sugar: zap.NewNop().Sugar()}
	}
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) {
	s.sugar.Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) {
	s.sugar.Errorf(template, args...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
