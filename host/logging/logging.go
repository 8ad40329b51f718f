// Package logging builds the zap loggers used by the host programs.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"gorover/core"
	"gorover/host/config"
)

// NewEncoderConfig returns the console encoder settings shared by every logger
func NewEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// New returns a logger writing to stderr, or to a rotated file when
// cfg.File is set. The returned closer releases the file.
func New(name string, cfg config.LogConfig) (*zap.SugaredLogger, io.Closer, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var (
		sink   zapcore.WriteSyncer
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		sink = zapcore.AddSync(rotator)
		closer = rotator
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	encCfg := NewEncoderConfig()
	if cfg.Development && cfg.File == "" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	zcore := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, zap.NewAtomicLevelAt(level))
	return zap.New(zcore, opts...).Named(name).Sugar(), closer, nil
}

// BridgeDebug routes the dispatcher debug lines into logger at debug level.
// The hook is only enabled when the logger would keep debug entries.
func BridgeDebug(logger *zap.SugaredLogger) {
	dlog := logger.Named("core")
	core.SetDebugWriter(func(msg string) {
		dlog.Debug(msg)
	})
	core.SetDebugEnabled(logger.Desugar().Core().Enabled(zapcore.DebugLevel))
}

// DetachDebug disables the debug bridge
func DetachDebug() {
	core.SetDebugEnabled(false)
	core.SetDebugWriter(nil)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
