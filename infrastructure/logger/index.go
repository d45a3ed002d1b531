package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerOptions struct {
	Key  string
	Data interface{}
}

var Logger *zap.Logger

// InitializeLogger sets up the process-wide zap logger. Call once at startup
// before anything logs.
func InitializeLogger() {
	if Logger != nil {
		return
	}
	var err error
	if os.Getenv("GIN_MODE") == "release" {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(parseLevel(os.Getenv("LOG_LEVEL")))
		Logger, err = config.Build()
	} else {
		Logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func ensure() {
	if Logger == nil {
		InitializeLogger()
	}
}

// This logs info level messages.
func Info(msg string, payload ...LoggerOptions) {
	ensure()
	zapFields := []zapcore.Field{}
	for _, data := range payload {
		zapFields = append(zapFields, zap.Any(data.Key, data.Data))
	}
	Logger.Info(msg, zapFields...)
}

// This logs error messages.
// describe the incident in msg and pass the error through logger options
// with key error
func Error(msg string, payload ...LoggerOptions) {
	ensure()
	zapFields := []zapcore.Field{}
	for _, data := range payload {
		zapFields = append(zapFields, zap.Any(data.Key, data.Data))
	}
	Logger.Error(msg, zapFields...)
}

// This logs warning messages.
func Warning(msg string, payload ...LoggerOptions) {
	ensure()
	zapFields := []zapcore.Field{}
	for _, data := range payload {
		zapFields = append(zapFields, zap.Any(data.Key, data.Data))
	}
	Logger.Warn(msg, zapFields...)
}
