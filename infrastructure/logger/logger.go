// Package logger wraps go.uber.org/zap behind a subsystem-tag logging
// convention: every call site logs through a short subsystem tag like
// "CMGR" or "BDAG". A single process-wide zap core is built once in
// NewBackend and every subsystem gets its own *Logger sharing that core
// without a global mutable registry. The log level belongs to the shared
// core, so it is the same for every subsystem.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Backend owns the shared zap core. Callers construct one Backend per
// process and hand out subsystem loggers from it; test harnesses build
// their own Backend instead of relying on an init()-time singleton.
type Backend struct {
	base *zap.Logger
}

// NewBackend builds a Backend writing leveled, human-readable lines to
// stderr, matching the console-first logging posture of a node.
func NewBackend(level zapcore.Level) *Backend {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(zapcore.AddSync(os.Stderr)), level)
	return &Backend{base: zap.New(core)}
}

// Logger is a subsystem-tagged logger. Method names follow the familiar
// btclog-style call sites (Infof, Warnf, Errorf, Debugf).
type Logger struct {
	sugar *zap.SugaredLogger
}

// Subsystem returns a Logger tagged with the given short subsystem code,
// e.g. Backend.Subsystem("CMGR") for the connection manager.
func (b *Backend) Subsystem(tag string) *Logger {
	return &Logger{sugar: b.base.Sugar().With("subsystem", tag)}
}

func (l *Logger) Infof(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
