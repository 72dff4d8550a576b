package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

// ConsoleOutput formats logs for human readability.
type ConsoleOutput struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewConsoleOutput creates a console output writing to stdout, or stderr
// when useStderr is set.
func NewConsoleOutput(useStderr bool) *ConsoleOutput {
	writer := io.Writer(os.Stdout)
	if useStderr {
		writer = os.Stderr
	}
	return &ConsoleOutput{writer: writer}
}

func (c *ConsoleOutput) Write(entry LogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := time.Unix(0, entry.Time).Format("2006-01-02T15:04:05.000")
	_, err := fmt.Fprintf(c.writer, "%s %-5s %s:%d %s%s\n",
		ts, entry.Severity, entry.File, entry.Line, entry.Message, formatFields(entry.Fields))
	return err
}

func (c *ConsoleOutput) Sync() error { return nil }

func (c *ConsoleOutput) Close() error { return nil }

// WriterOutput sends log entries to an arbitrary writer, useful for tests
// and log files managed by the caller.
type WriterOutput struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewWriterOutput(w io.Writer) *WriterOutput {
	return &WriterOutput{writer: w}
}

func (w *WriterOutput) Write(entry LogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := fmt.Fprintf(w.writer, "%d %s %s%s\n",
		entry.Time, entry.Severity, entry.Message, formatFields(entry.Fields))
	return err
}

func (w *WriterOutput) Sync() error { return nil }

func (w *WriterOutput) Close() error {
	if c, ok := w.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for _, k := range keys {
		out += fmt.Sprintf(" %s=%v", k, fields[k])
	}
	return out
}
