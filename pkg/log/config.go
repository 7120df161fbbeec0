package log

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
)

// ParseLevel parses a case-insensitive level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// OutputConfig describes a single configured log sink.
type OutputConfig struct {
	// Type is one of "console", "file", or "null".
	Type string `json:"type"`
	// Path is the target file path, required when Type is "file".
	Path string `json:"path,omitempty"`
}

// Config is the declarative configuration for building a Logger.
type Config struct {
	// Level is the minimum level, e.g. "debug", "info", "warn", "error".
	Level string `json:"level"`
	// Format is either "json" or "text".
	Format string `json:"format"`
	// Outputs lists the sinks to write formatted entries to. Defaults to a
	// single console output when empty.
	Outputs []OutputConfig `json:"outputs,omitempty"`
	// RedactFields names fields to redact before they reach any output.
	RedactFields []string `json:"redact_fields,omitempty"`
	// SampleInitial and SampleThereafter configure log sampling: the first
	// SampleInitial occurrences of a message are logged, then every
	// SampleThereafter-th occurrence after that.
	SampleInitial    int `json:"sample_initial,omitempty"`
	SampleThereafter int `json:"sample_thereafter,omitempty"`
}

// DefaultConfig returns a Config matching NewLogger's defaults.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "json"}
}

// ApplyConfig builds a Logger from a declarative Config.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		formatter = &JSONFormatter{}
	case "text":
		formatter = &TextFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}

	opts := []LoggerOption{WithLevel(level), WithFormatter(formatter)}

	if len(cfg.Outputs) == 0 {
		opts = append(opts, WithOutput(NewConsoleOutput()))
	} else {
		for _, oc := range cfg.Outputs {
			out, err := buildOutput(oc)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithOutput(out))
		}
	}

	logger := NewLogger(opts...)
	base, ok := logger.(*BaseLogger)
	if !ok {
		return logger, nil
	}

	if len(cfg.RedactFields) > 0 || cfg.SampleThereafter > 0 {
		handler := newBridgeHandler(base)
		if len(cfg.RedactFields) > 0 {
			handler = handler.withRedactions(cfg.RedactFields)
		}
		if cfg.SampleThereafter > 0 {
			handler = handler.withSampler(cfg.SampleInitial, cfg.SampleThereafter)
		}
		base.slogLogger = slog.New(handler)
	}
	return logger, nil
}

func buildOutput(oc OutputConfig) (Output, error) {
	switch strings.ToLower(oc.Type) {
	case "", "console":
		return NewConsoleOutput(), nil
	case "file":
		if oc.Path == "" {
			return nil, fmt.Errorf("log: file output requires a path")
		}
		return NewFileOutput(oc.Path)
	case "null":
		return NullOutput{}, nil
	default:
		return nil, fmt.Errorf("log: unknown output type %q", oc.Type)
	}
}

// stdLogWriter adapts a Logger into an io.Writer for log.SetOutput.
type stdLogWriter struct {
	logger Logger
}

// Write implements io.Writer, logging each write at ErrorLevel under the
// "stdlog" component. The standard library's *log.Logger calls Write once
// per formatted line.
func (w stdLogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	w.logger.Error(msg, Component("stdlog"))
	return len(p), nil
}

// RedirectStdLog routes the standard library's default logger through the
// given structured Logger. Pebble and other third-party packages that call
// log.Printf end up captured by our pipeline instead of writing to stderr
// directly.
func RedirectStdLog(logger Logger) {
	log.SetFlags(0)
	log.SetOutput(stdLogWriter{logger: logger})
}
