package common

import (
	"context"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*otelzap.Logger
}

func (log *Logger) Ctx(ctx context.Context) otelzap.LoggerWithCtx {
	return log.Logger.Ctx(ctx)
}

func (log *Logger) OtelZapLogger() *otelzap.Logger {
	return log.Logger
}

func (log *Logger) ZapLogger() *zap.Logger {
	return log.Logger.Logger
}

// Logr bridges to libraries that speak logr.
func (log *Logger) Logr() logr.Logger {
	return zapr.NewLogger(log.ZapLogger())
}

func NewLoggerWithParams(dsn, serviceName, environment, version, key string, debug bool) (*Logger, error) {
	cfg := DevOtlpConfig{
		debug:       debug,
		dsn:         dsn,
		serviceName: serviceName,
		environment: environment,
		version:     version,
		key:         key,
	}
	return NewLogger(&cfg)
}

// NewLogger builds the process logger and installs it as the zap and
// otelzap global.
func NewLogger(cfg OtlpConfig) (*Logger, error) {
	logger, err := NewLibLogger(cfg)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger.ZapLogger())
	otelzap.ReplaceGlobals(logger.OtelZapLogger())
	return logger, nil
}

// NewLibLogger builds a logger without touching process-wide globals,
// for use inside libraries and tests.
func NewLibLogger(cfg OtlpConfig) (*Logger, error) {
	zapConf := zap.NewProductionEncoderConfig()
	zapConf.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	var defaultLogLevel zapcore.Level
	if cfg.Debug() {
		zapConf.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(zapConf)
		defaultLogLevel = zapcore.DebugLevel
	} else {
		encoder = zapcore.NewJSONEncoder(zapConf)
		defaultLogLevel = zapcore.InfoLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), defaultLogLevel),
	)
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))

	var options []otelzap.Option
	options = append(options, otelzap.WithMinLevel(defaultLogLevel))

	return &Logger{Logger: otelzap.New(zapLogger, options...)}, nil
}

// NewNopLogger discards everything. Default for junctions built
// without WithLogger.
func NewNopLogger() *Logger {
	return &Logger{Logger: otelzap.New(zap.NewNop())}
}
