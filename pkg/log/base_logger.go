package log

import (
	"context"
	"log/slog"
	"os"
)

func (b *BaseLogger) log(level Level, msg string, fields ...Field) {
	if level < b.level {
		return
	}
	attrs := attrsFromFieldSlice(fields)
	b.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrs...)
}

// Debug logs at DebugLevel with structured fields.
func (b *BaseLogger) Debug(msg string, fields ...Field) { b.log(DebugLevel, msg, fields...) }

// Info logs at InfoLevel with structured fields.
func (b *BaseLogger) Info(msg string, fields ...Field) { b.log(InfoLevel, msg, fields...) }

// Warn logs at WarnLevel with structured fields.
func (b *BaseLogger) Warn(msg string, fields ...Field) { b.log(WarnLevel, msg, fields...) }

// Error logs at ErrorLevel with structured fields.
func (b *BaseLogger) Error(msg string, fields ...Field) { b.log(ErrorLevel, msg, fields...) }

// Fatal logs at FatalLevel with structured fields, then exits the process.
func (b *BaseLogger) Fatal(msg string, fields ...Field) {
	b.log(FatalLevel, msg, fields...)
	os.Exit(1)
}

func (b *BaseLogger) logf(level Level, msg string, args ...interface{}) {
	if level < b.level {
		return
	}
	attrs := argsToAttrs(args)
	b.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrs...)
}

// Debugf logs at DebugLevel with key-value style arguments.
func (b *BaseLogger) Debugf(msg string, args ...interface{}) { b.logf(DebugLevel, msg, args...) }

// Infof logs at InfoLevel with key-value style arguments.
func (b *BaseLogger) Infof(msg string, args ...interface{}) { b.logf(InfoLevel, msg, args...) }

// Warnf logs at WarnLevel with key-value style arguments.
func (b *BaseLogger) Warnf(msg string, args ...interface{}) { b.logf(WarnLevel, msg, args...) }

// Errorf logs at ErrorLevel with key-value style arguments.
func (b *BaseLogger) Errorf(msg string, args ...interface{}) { b.logf(ErrorLevel, msg, args...) }

// Fatalf logs at FatalLevel with key-value style arguments, then exits the process.
func (b *BaseLogger) Fatalf(msg string, args ...interface{}) {
	b.logf(FatalLevel, msg, args...)
	os.Exit(1)
}

// WithField returns a derived logger carrying an additional field.
func (b *BaseLogger) WithField(key string, value interface{}) Logger {
	return b.With(F(key, value))
}

// WithFields returns a derived logger carrying the given fields.
func (b *BaseLogger) WithFields(fields Fields) Logger {
	fs := make([]Field, 0, len(fields))
	for k, v := range fields {
		fs = append(fs, F(k, v))
	}
	return b.With(fs...)
}

// WithError returns a derived logger carrying an error field.
func (b *BaseLogger) WithError(err error) Logger {
	return b.With(Err(err))
}

// With returns a derived logger carrying the given fields.
func (b *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return b
	}
	clone := b.clone()
	clone.slogLogger = clone.slogLogger.With(attrsToAny(attrsFromFieldSlice(fields))...)
	return clone
}

// WithContext returns a derived logger carrying fields extracted from ctx.
func (b *BaseLogger) WithContext(ctx context.Context) Logger {
	extracted := ContextExtractor(ctx)
	if len(extracted) == 0 {
		return b
	}
	return b.WithFields(extracted)
}

// WithComponent returns a derived logger tagged with a component name.
func (b *BaseLogger) WithComponent(component string) Logger {
	return b.With(Component(component))
}

// SetLevel sets the minimum log level.
func (b *BaseLogger) SetLevel(level Level) {
	b.level = level
}

// GetLevel returns the current minimum log level.
func (b *BaseLogger) GetLevel() Level {
	return b.level
}

func (b *BaseLogger) clone() *BaseLogger {
	clone := &BaseLogger{
		level:     b.level,
		fields:    b.fields,
		formatter: b.formatter,
		outputs:   b.outputs,
	}
	h := newBridgeHandler(clone)
	if bh, ok := b.slogLogger.Handler().(*bridgeHandler); ok {
		h.attrs = append([]slog.Attr{}, bh.attrs...)
		h.group = bh.group
		h.redactions = bh.redactions
		h.sampler = bh.sampler
	}
	h.logger = clone
	clone.slogLogger = slog.New(h)
	return clone
}
