// Package logger builds the zap loggers used across the rover.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Modes accepted by New.
const (
	ModeRelease = "release"
	ModeDebug   = "debug"
)

// New builds a logger for the given mode. Release mode produces JSON at info
// level; any other mode produces colored console output at debug level.
// level, when non-empty, overrides the mode's default level.
func New(mode, level string) (*zap.Logger, error) {
	var cfg zap.Config

	if mode == ModeRelease {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	return cfg.Build()
}

// Sync flushes buffered entries, ignoring the EINVAL some terminals return.
func Sync(l *zap.Logger) {
	if l != nil {
		_ = l.Sync()
	}
}
