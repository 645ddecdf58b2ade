package walker

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel defines the verbosity of walker logging.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelWarn:
		return zap.WarnLevel
	case LogLevelInfo:
		return zap.InfoLevel
	case LogLevelDebug:
		return zap.DebugLevel
	default:
		return zap.ErrorLevel
	}
}

// NewLogger creates a zap logger with the specified log level. All output
// goes to stderr so the path listing on stdout stays clean.
func NewLogger(level LogLevel) *zap.Logger {
	config := zap.NewProductionConfig()
	if level == LogLevelDebug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.Level = zap.NewAtomicLevelAt(level.zapLevel())
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, _ := config.Build()
	return logger
}
