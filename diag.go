package legtrace

import (
	"strings"

	"github.com/go-logr/zapr"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// OTel logs warnings at V(1), info at V(4) and debug at V(8); zapr maps V(n) to zap level -n.
const (
	diagWarnLevel  = zapcore.Level(-1)
	diagInfoLevel  = zapcore.Level(-4)
	diagDebugLevel = zapcore.Level(-8)
	diagTraceLevel = zapcore.Level(-127)
)

// diagLevel maps a LogLevel option onto the zap level enabling matching OTel output.
// Unknown levels fall back to warn.
func diagLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "info":
		return diagInfoLevel
	case "debug":
		return diagDebugLevel
	case "trace":
		return diagTraceLevel
	default:
		return diagWarnLevel
	}
}

// newDiagLogger returns a logger sharing base's output whose verbosity is set by level alone.
func newDiagLogger(base *zap.Logger, level string) *zap.Logger {
	lvl := diagLevel(level)
	core := &levelCore{Core: base.Core(), level: lvl}
	return zap.New(core).Named("otel")
}

// levelCore re-gates a core at a fixed level, which may be lower than the wrapped core's.
type levelCore struct {
	zapcore.Core
	level zapcore.Level
}

func (c *levelCore) Enabled(l zapcore.Level) bool {
	return l >= c.level
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// installDiagnostics routes OTel internal logging and export errors through logger.
func installDiagnostics(logger *zap.Logger, level string) {
	diag := newDiagLogger(logger, level)
	otel.SetLogger(zapr.NewLogger(diag))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		diag.Warn("trace backend error", zap.Error(err))
	}))
}
