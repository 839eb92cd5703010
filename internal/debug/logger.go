package debug

import (
	"io"
	"log"
	"os"
)

// Logger writes debug lines to its own log file. A nil *Logger is valid and silent.
type Logger struct {
	enabled bool
	out     *log.Logger
	file    *os.File
}

// NewLogger opens path for appending when enabled. If the file cannot be opened
// the logger falls back to stderr.
func NewLogger(enabled bool, path string) *Logger {
	if !enabled {
		return &Logger{enabled: false}
	}

	var w io.Writer = os.Stderr
	var file *os.File
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			w = f
			file = f
		}
	}

	l := &Logger{enabled: true, out: log.New(w, "", log.LstdFlags|log.Lmicroseconds), file: file}
	l.out.Printf("=== DEBUG MODE ENABLED ===")
	return l
}

// NewWriterLogger logs to w; used by tests and the MCP server, which must keep stdout clean.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{enabled: true, out: log.New(w, "", 0)}
}

func (d *Logger) IsEnabled() bool {
	return d != nil && d.enabled
}

func (d *Logger) Printf(format string, args ...interface{}) {
	if d.IsEnabled() {
		d.out.Printf(format, args...)
	}
}

func (d *Logger) Println(args ...interface{}) {
	if d.IsEnabled() {
		d.out.Println(args...)
	}
}

func (d *Logger) Close() error {
	if d == nil || d.file == nil {
		return nil
	}
	return d.file.Close()
}
