package logger

import (
	"fmt"

	"github.com/vzahanych/weather-widget/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.SugaredLogger
}

// New builds a logger from the logging section. Format "console" selects the
// development encoder; anything else logs JSON.
func New(cfg config.LoggingConfig) (*Logger, error) {
	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	if cfg.OutputPath != "" {
		zc.OutputPaths = []string{cfg.OutputPath}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{logger.Sugar()}, nil
}

func NewDevelopment() *Logger {
	logger, _ := zap.NewDevelopment()
	return &Logger{logger.Sugar()}
}

func NewNop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// Zap returns the structured logger that components take.
func (l *Logger) Zap() *zap.Logger {
	return l.SugaredLogger.Desugar()
}

func (l *Logger) Sync() error {
	return l.SugaredLogger.Sync()
}
