package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// setLogger builds the zap logger matching the deploy environment
func setLogger(environment string) (*zap.Logger, error) {
	switch environment {
	case "local":
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build()
	case "development":
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		return cfg.Build()
	default:
		return zap.NewProduction()
	}
}
