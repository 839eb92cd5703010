package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLoggerIsSilent(t *testing.T) {
	var l *Logger
	assert.False(t, l.IsEnabled())
	l.Printf("nothing %d", 1)
	l.Println("nothing")
	assert.NoError(t, l.Close())
}

func TestDisabledLogger(t *testing.T) {
	l := NewLogger(false, filepath.Join(t.TempDir(), "debug.log"))
	assert.False(t, l.IsEnabled())
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)
	l.Printf("tick %d", 3)
	assert.Contains(t, buf.String(), "tick 3")
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	l := NewLogger(true, path)
	l.Println("hello grapevine")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEBUG MODE ENABLED")
	assert.Contains(t, string(data), "hello grapevine")
}
