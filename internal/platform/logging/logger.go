package logging

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// Format selects the encoder used for log lines.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// callerSkip hides the Logger method and logAt from the reported caller.
const callerSkip = 2

// Logger is a key/value front for zap. Args alternate key, value; a zap.Field
// may also be passed directly.
type Logger struct {
	base   *zap.Logger
	synced *atomic.Bool
}

var fallback atomic.Pointer[Logger]

func init() {
	fallback.Store(NewNop())
}

func New(level Level, format Format) *Logger {
	return newWithWriter(level, format, os.Stdout)
}

func newWithWriter(level Level, format Format, w io.Writer) *Logger {
	core := zapcore.NewCore(encoderFor(format), zapcore.Lock(zapcore.AddSync(w)), level)
	return FromZap(zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(callerSkip),
		zap.AddStacktrace(zapcore.ErrorLevel),
	))
}

func encoderFor(format Format) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == FormatConsole {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

func NewJSON(level Level) *Logger {
	return New(level, FormatJSON)
}

func NewNop() *Logger {
	return FromZap(zap.NewNop())
}

func FromZap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{base: z, synced: new(atomic.Bool)}
}

// Default returns the process logger installed by SetDefault.
func Default() *Logger {
	if l := fallback.Load(); l != nil {
		return l
	}
	return NewNop()
}

func SetDefault(l *Logger) {
	if l == nil {
		l = NewNop()
	}
	fallback.Store(l)
}

func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.base == nil {
		return zap.NewNop()
	}
	return l.base
}

// Sync flushes buffered entries once; later calls are no-ops. Children made
// with With or Named share the flag with their parent.
func (l *Logger) Sync() error {
	if l == nil || l.base == nil || !l.synced.CompareAndSwap(false, true) {
		return nil
	}
	return l.base.Sync()
}

func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return NewNop()
	}
	return l.derive(l.base.With(toFields(args)...))
}

// Named scopes the logger to a component, e.g. "recall.scheduler".
func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return NewNop()
	}
	return l.derive(l.base.Named(name))
}

func (l *Logger) derive(z *zap.Logger) *Logger {
	return &Logger{base: z, synced: l.synced}
}

func (l *Logger) Enabled(level Level) bool {
	return l != nil && l.base != nil && l.base.Core().Enabled(level)
}

func (l *Logger) Debug(msg string, args ...any) { l.logAt(nil, LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.logAt(nil, LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.logAt(nil, LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.logAt(nil, LevelError, msg, args) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logAt(ctx, LevelDebug, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logAt(ctx, LevelInfo, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logAt(ctx, LevelWarn, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logAt(ctx, LevelError, msg, args)
}

func (l *Logger) logAt(ctx context.Context, level Level, msg string, args []any) {
	if l == nil || l.base == nil {
		l = Default()
	}
	ce := l.base.Check(level, msg)
	if ce == nil {
		return
	}
	fields := toFields(args)
	if ctx != nil {
		fields = appendSpan(fields, trace.SpanContextFromContext(ctx))
	}
	ce.Write(fields...)
}

func appendSpan(fields []zap.Field, sc trace.SpanContext) []zap.Field {
	if !sc.IsValid() {
		return fields
	}
	return append(fields,
		zap.Stringer("trace_id", sc.TraceID()),
		zap.Stringer("span_id", sc.SpanID()),
	)
}

func toFields(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); {
		if f, ok := args[i].(zap.Field); ok {
			out = append(out, f)
			i++
			continue
		}
		key, _ := args[i].(string)
		if key == "" {
			key = "arg"
		}
		if i+1 == len(args) {
			out = append(out, zap.Any(key, nil))
			break
		}
		switch v := args[i+1].(type) {
		case error:
			out = append(out, zap.NamedError(key, v))
		default:
			out = append(out, zap.Any(key, v))
		}
		i += 2
	}
	return out
}
