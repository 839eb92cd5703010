package logging

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"grapevine/internal/debug"
)

// Event is one row of the append-only simulation record.
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Elapsed   time.Duration `json:"elapsed_ms"`
	Text      string        `json:"text"`
}

// GameTime renders the elapsed time as HH:MM:SS.
func (e Event) GameTime() string {
	return FormatElapsed(e.Elapsed)
}

// EventLog appends (elapsed, text) rows to SQLite. Nothing in the simulation reads it back;
// Recent and ExportCSV exist for the CLI.
type EventLog struct {
	db    *sql.DB
	start time.Time
	now   func() time.Time
	debug *debug.Logger
	mu    sync.Mutex
}

func NewEventLog(path string, debug *debug.Logger) (*EventLog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	l := &EventLog{db: db, start: time.Now(), now: time.Now, debug: debug}
	if err := l.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return l, nil
}

func (l *EventLog) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		text TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
	`

	_, err := l.db.Exec(schema)
	return err
}

// Log appends text and swallows failures into the debug log. It satisfies the
// write-only logger the memory store depends on.
func (l *EventLog) Log(text string) {
	if err := l.Append(text); err != nil && l.debug != nil {
		l.debug.Printf("Failed to append event %q: %v", text, err)
	}
}

func (l *EventLog) Append(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	_, err := l.db.Exec(`
		INSERT INTO events (id, created_at, elapsed_ms, text)
		VALUES (?, ?, ?, ?)
	`, ulid.Make().String(), now.UTC(), now.Sub(l.start).Milliseconds(), text)

	return err
}

// Recent returns up to limit events, newest first.
func (l *EventLog) Recent(limit int) ([]Event, error) {
	rows, err := l.db.Query(`
		SELECT id, created_at, elapsed_ms, text
		FROM events
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var elapsedMs int64
		if err := rows.Scan(&e.ID, &e.Timestamp, &elapsedMs, &e.Text); err != nil {
			return nil, err
		}
		e.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		events = append(events, e)
	}

	return events, rows.Err()
}

// ExportCSV writes every event, oldest first, as "Game Time,Text" rows.
func (l *EventLog) ExportCSV(w io.Writer) error {
	rows, err := l.db.Query(`SELECT elapsed_ms, text FROM events ORDER BY id ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Game Time", "Text"}); err != nil {
		return err
	}
	for rows.Next() {
		var elapsedMs int64
		var text string
		if err := rows.Scan(&elapsedMs, &text); err != nil {
			return err
		}
		if err := cw.Write([]string{FormatElapsed(time.Duration(elapsedMs) * time.Millisecond), text}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (l *EventLog) Close() error {
	return l.db.Close()
}

func FormatElapsed(d time.Duration) string {
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
