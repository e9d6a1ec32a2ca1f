package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/niklaslong/snarkos-network/pkg/io"
)

// Logger contains node logger configuration.
type Logger struct {
	LogEncoding  string `yaml:"LogEncoding"`
	LogLevel     string `yaml:"LogLevel"`
	LogPath      string `yaml:"LogPath"`
	LogTimestamp *bool  `yaml:"LogTimestamp,omitempty"`
}

// Validate returns an error if Logger configuration is not valid.
func (l Logger) Validate() error {
	if len(l.LogEncoding) > 0 && l.LogEncoding != "console" && l.LogEncoding != "json" {
		return fmt.Errorf("invalid LogEncoding: %s", l.LogEncoding)
	}
	if len(l.LogLevel) > 0 {
		if _, err := zapcore.ParseLevel(l.LogLevel); err != nil {
			return fmt.Errorf("invalid LogLevel: %w", err)
		}
	}
	return nil
}

// NewLogger builds a zap.Logger from l. An empty LogPath logs to stderr.
func (l Logger) NewLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if len(l.LogLevel) > 0 {
		parsed, err := zapcore.ParseLevel(l.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LogLevel: %w", err)
		}
		level = parsed
	}

	encoding := l.LogEncoding
	if encoding == "" {
		encoding = "console"
	}

	zCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	zCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if l.LogTimestamp != nil && !*l.LogTimestamp {
		zCfg.EncoderConfig.TimeKey = ""
	}
	if l.LogPath != "" {
		if err := io.MakeDirForFile(l.LogPath, "log"); err != nil {
			return nil, err
		}
		zCfg.OutputPaths = []string{l.LogPath}
		zCfg.ErrorOutputPaths = []string{l.LogPath}
	}

	return zCfg.Build()
}
