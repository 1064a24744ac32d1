package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
)

// Options configures the process logger
type Options struct {
	Level       string // debug, info, warn, error
	Development bool
	File        string // Empty logs to stderr only
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

// New builds the zap logger. Production uses JSON, development uses the console
// encoder. When File is set, entries are also written to a rotating file.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	var zapCfg zap.Config
	if opts.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "timestamp"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	if opts.File == "" {
		return logger, nil
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zapCfg.EncoderConfig),
		zapcore.AddSync(newRotatingFile(opts)),
		zapCfg.Level,
	)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

// MustNew is New for process startup, where a broken logger is fatal
func MustNew(opts Options) *zap.Logger {
	logger, err := New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func newRotatingFile(opts Options) *lumberjack.Logger {
	rotating := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	if rotating.MaxSize <= 0 {
		rotating.MaxSize = 100
	}
	if rotating.MaxBackups <= 0 {
		rotating.MaxBackups = 3
	}
	if rotating.MaxAge <= 0 {
		rotating.MaxAge = 28
	}
	return rotating
}

// ZapLoggerAdapter adapts zap.Logger to the ports.Logger interface used by services
type ZapLoggerAdapter struct {
	logger *zap.Logger
}

var _ ports.Logger = (*ZapLoggerAdapter)(nil)

// NewZapLogger wraps a zap logger
func NewZapLogger(logger *zap.Logger) *ZapLoggerAdapter {
	return &ZapLoggerAdapter{logger: logger}
}

// Named returns an adapter whose entries carry the component name
func (z *ZapLoggerAdapter) Named(name string) *ZapLoggerAdapter {
	return &ZapLoggerAdapter{logger: z.logger.Named(name)}
}

// Info logs an info message
func (z *ZapLoggerAdapter) Info(msg string, fields ...ports.Field) {
	z.logger.Info(msg, convertFields(fields)...)
}

// Error logs an error message
func (z *ZapLoggerAdapter) Error(msg string, fields ...ports.Field) {
	z.logger.Error(msg, convertFields(fields)...)
}

// Warn logs a warning message
func (z *ZapLoggerAdapter) Warn(msg string, fields ...ports.Field) {
	z.logger.Warn(msg, convertFields(fields)...)
}

// Debug logs a debug message
func (z *ZapLoggerAdapter) Debug(msg string, fields ...ports.Field) {
	z.logger.Debug(msg, convertFields(fields)...)
}

func convertFields(fields []ports.Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		if err, ok := f.Value.(error); ok {
			zapFields[i] = zap.NamedError(f.Key, err)
			continue
		}
		zapFields[i] = zap.Any(f.Key, f.Value)
	}
	return zapFields
}
