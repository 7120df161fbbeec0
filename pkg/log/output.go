package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes formatted entries to an io.Writer, stderr by default.
type ConsoleOutput struct {
	w  io.Writer
	mu sync.Mutex
}

// NewConsoleOutput creates a ConsoleOutput writing to os.Stderr.
func NewConsoleOutput() *ConsoleOutput {
	return &ConsoleOutput{w: os.Stderr}
}

// NewConsoleOutputTo creates a ConsoleOutput writing to an arbitrary writer.
func NewConsoleOutputTo(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: w}
}

// Write implements Output.
func (c *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		c.w = os.Stderr
	}
	_, err := c.w.Write(formatted)
	return err
}

// Close implements Output.
func (c *ConsoleOutput) Close() error {
	return nil
}

// FileOutput writes formatted entries to a file on disk.
type FileOutput struct {
	f  *os.File
	mu sync.Mutex
}

// NewFileOutput opens (creating if needed) the file at path for appending.
func NewFileOutput(path string) (*FileOutput, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{f: f}, nil
}

// Write implements Output.
func (o *FileOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.f.Write(formatted)
	return err
}

// Close implements Output.
func (o *FileOutput) Close() error {
	return o.f.Close()
}

// NullOutput discards every entry. Useful for tests and disabled log sinks.
type NullOutput struct{}

// Write implements Output.
func (NullOutput) Write(*Entry, []byte) error { return nil }

// Close implements Output.
func (NullOutput) Close() error { return nil }
