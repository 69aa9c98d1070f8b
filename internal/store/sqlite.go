// Package store mirrors the in-memory journal into sqlite. The mirror is
// best-effort: writes are fire-and-forget from the journal's point of view
// and a failure never blocks the user-visible flow. The read side serves the
// entries listing surfaces.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/jot/internal/domain"
)

//go:embed schema.sql
var schema string

// Store handles database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveEntry upserts one journal entry, keyed by its id.
func (s *Store) SaveEntry(e domain.LogEntry) error {
	modules, err := json.Marshal(e.Modules)
	if err != nil {
		return fmt.Errorf("marshal modules: %w", err)
	}
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	var eventTime *string
	if e.EventTime != nil {
		v := e.EventTime.Format(time.RFC3339)
		eventTime = &v
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO entries
			(id, seq, kind, created_at, event_time, event_time_display,
			 raw_text, summary, modules, tags, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Seq, string(e.Kind), e.CreatedAt.Format(time.RFC3339),
		eventTime, e.EventTimeDisplay, e.RawText, e.Summary,
		string(modules), string(tags), e.Deleted,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// MarkDeleted records the soft delete for an entry.
func (s *Store) MarkDeleted(id string) error {
	_, err := s.db.Exec("UPDATE entries SET deleted = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	return nil
}

// ListEntries returns mirrored entries in insertion order with pagination.
// Deleted entries are included; callers filter if they need to.
func (s *Store) ListEntries(limit, offset int) ([]domain.LogEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, seq, kind, created_at, event_time, event_time_display,
		       raw_text, summary, modules, tags, deleted
		FROM entries ORDER BY seq LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (domain.LogEntry, error) {
	var (
		e         domain.LogEntry
		kind      string
		createdAt string
		eventTime sql.NullString
		modules   string
		tags      string
	)
	if err := rows.Scan(&e.ID, &e.Seq, &kind, &createdAt, &eventTime,
		&e.EventTimeDisplay, &e.RawText, &e.Summary, &modules, &tags, &e.Deleted); err != nil {
		return e, fmt.Errorf("scan entry: %w", err)
	}

	e.Kind = domain.Kind(kind)

	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return e, fmt.Errorf("parse created_at: %w", err)
	}
	e.CreatedAt = created

	if eventTime.Valid {
		t, err := time.Parse(time.RFC3339, eventTime.String)
		if err != nil {
			return e, fmt.Errorf("parse event_time: %w", err)
		}
		e.EventTime = &t
	}

	if err := json.Unmarshal([]byte(modules), &e.Modules); err != nil {
		return e, fmt.Errorf("unmarshal modules: %w", err)
	}
	if tags != "" && tags != "null" {
		if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
			return e, fmt.Errorf("unmarshal tags: %w", err)
		}
	}

	return e, nil
}
