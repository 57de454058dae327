// Package logger builds the zap loggers used throughout chainwatch.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	Debug bool
}

// NewLogger returns a JSON production logger, or a development logger at debug
// level when cfg.Debug is set.
func NewLogger(cfg *LoggerConfig) (*zap.Logger, error) {
	mergedCfg := zap.NewProductionConfig()
	mergedCfg.EncoderConfig.TimeKey = "timestamp"
	mergedCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg != nil && cfg.Debug {
		mergedCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		mergedCfg.Development = true
	} else {
		mergedCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return mergedCfg.Build()
}
