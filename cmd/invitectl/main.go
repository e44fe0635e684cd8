// Package main is an operator CLI for invitation links: build one from the person store,
// decode one to see who it invites, or list the roster.
package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wedding-invite/backend/config"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := newRootCmd(cfg, logger).Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger logs warnings and above to stderr so command output stays clean.
func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
