package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) *EventLog {
	t.Helper()
	l, err := NewEventLog(filepath.Join(t.TempDir(), "events.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestEventLogAppendAndRecent(t *testing.T) {
	l := newTestLog(t)

	l.Log("Memory: Mira sold a sword, Importance: 4.")
	l.Log("Importance regex failed for memory Thorne laughed.")
	require.NoError(t, l.Append("tick 1 complete"))

	events, err := l.Recent(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "tick 1 complete", events[0].Text)
	assert.Equal(t, "Importance regex failed for memory Thorne laughed.", events[1].Text)
	assert.NotEmpty(t, events[0].ID)
}

func TestEventLogElapsedUsesClock(t *testing.T) {
	l := newTestLog(t)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	l.start = base
	l.now = func() time.Time { return base.Add(time.Hour + 2*time.Minute + 3*time.Second) }

	require.NoError(t, l.Append("late event"))

	events, err := l.Recent(1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "01:02:03", events[0].GameTime())
}

func TestEventLogExportCSV(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Append("first"))
	require.NoError(t, l.Append("second, with comma"))

	var buf bytes.Buffer
	require.NoError(t, l.ExportCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Game Time,Text", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",first"))
	assert.True(t, strings.HasSuffix(lines[2], `,"second, with comma"`))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatElapsed(0))
	assert.Equal(t, "00:01:05", FormatElapsed(65*time.Second))
	assert.Equal(t, "26:00:00", FormatElapsed(26*time.Hour))
}
