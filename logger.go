package crudboot

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a JSON production logger, or a console development
// logger when env is "development" or "local".
func NewLogger(env string) *zap.Logger {
	var config zap.Config
	switch env {
	case "development", "local":
		config = zap.NewDevelopmentConfig()
	default:
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
