package logx

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger *zap.Logger

func init() {
	l, _, err := New(Options{Level: "info"})
	if err != nil {
		panic(err)
	}
	logger = l
}

type Options struct {
	Level string
	// File, when set, receives a copy of every entry with size based rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// New builds the production JSON logger. The returned func flushes and
// closes the file sink.
func New(opts Options) (*zap.Logger, func(), error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Sampling = nil
	zapCfg.DisableStacktrace = true
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
	}

	enc := zapcore.NewJSONEncoder(zapCfg.EncoderConfig)
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)}

	var file *lumberjack.Logger
	if opts.File != "" {
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(file), level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	closeFn := func() {
		_ = l.Sync()
		if file != nil {
			_ = file.Close()
		}
	}
	return l, closeFn, nil
}

// Init builds a logger and installs it as the package and zap global.
func Init(opts Options) (*zap.Logger, func(), error) {
	l, closeFn, err := New(opts)
	if err != nil {
		return nil, nil, err
	}
	logger = l
	zap.ReplaceGlobals(l)
	return l, closeFn, nil
}

// L returns the package-level logger instance.
func L() *zap.Logger {
	return logger
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	traceIDKey
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// WithFields enriches base with the request and trace ids carried by ctx.
func WithFields(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = logger
	}
	var fields []zap.Field
	if rid := RequestID(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if tid := TraceID(ctx); tid != "" {
		fields = append(fields, zap.String("trace_id", tid))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
