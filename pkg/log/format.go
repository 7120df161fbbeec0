package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// JSONFormatter renders log entries as single-line JSON objects.
type JSONFormatter struct {
	// TimeKey overrides the default "ts" key for the timestamp field.
	TimeKey string
}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	timeKey := f.TimeKey
	if timeKey == "" {
		timeKey = "ts"
	}

	rec := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		rec[k] = v
	}
	rec[timeKey] = entry.Timestamp.UTC().Format(timeLayout)
	rec["level"] = entry.Level.String()
	rec["msg"] = entry.Message
	if entry.Caller != "" {
		rec["caller"] = entry.Caller
	}
	if entry.Error != nil {
		rec["error"] = entry.Error.Error()
	}

	buf, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("log: marshal entry: %w", err)
	}
	return append(buf, '\n'), nil
}

// TextFormatter renders log entries as human-readable key=value lines.
type TextFormatter struct {
	// DisableColors disables ANSI color codes in the level field.
	DisableColors bool
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Format implements Formatter.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(entry.Timestamp.UTC().Format(timeLayout))
	buf.WriteByte(' ')
	buf.WriteString(f.levelString(entry.Level))
	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, entry.Fields[k])
	}
	if entry.Caller != "" {
		fmt.Fprintf(&buf, " caller=%s", entry.Caller)
	}
	if entry.Error != nil {
		fmt.Fprintf(&buf, " error=%v", entry.Error)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (f *TextFormatter) levelString(level Level) string {
	s := level.String()
	if f.DisableColors {
		return s
	}
	switch level {
	case DebugLevel:
		return "\x1b[90m" + s + "\x1b[0m"
	case InfoLevel:
		return "\x1b[34m" + s + "\x1b[0m"
	case WarnLevel:
		return "\x1b[33m" + s + "\x1b[0m"
	case ErrorLevel, FatalLevel:
		return "\x1b[31m" + s + "\x1b[0m"
	default:
		return s
	}
}
