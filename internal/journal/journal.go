// Package journal is the in-memory, append-only activity log. Entries are
// only ever soft-deleted; the full sequence is kept for audit and undo. State
// lives in the process and is lost on restart; the sqlite mirror behind
// Syncer is a best-effort copy, not a durability guarantee.
package journal

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/jot/internal/domain"
	"go.uber.org/zap"
)

// Syncer receives fire-and-forget notifications of every mutation. Failures
// are logged and never surface to the caller.
type Syncer interface {
	SaveEntry(e domain.LogEntry) error
	MarkDeleted(id string) error
}

// Store is the mutex-guarded entry sequence. Ordering and "most recent"
// semantics hold within a single stream of messages; the lock makes
// concurrent delivery safe without reordering it.
type Store struct {
	mu      sync.Mutex
	entries []*domain.LogEntry
	seq     int
	mirror  Syncer
	logger  *zap.Logger
}

// New creates an empty Store. mirror may be nil when mirroring is disabled.
func New(mirror Syncer, logger *zap.Logger) *Store {
	return &Store{mirror: mirror, logger: logger}
}

// Append assigns identity and insertion order to e, stores it, and notifies
// the mirror. The caller guarantees a valid entry.
func (s *Store) Append(e *domain.LogEntry) *domain.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	e.Seq = s.seq
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	s.entries = append(s.entries, e)

	if s.mirror != nil {
		if err := s.mirror.SaveEntry(*e); err != nil {
			s.logger.Error("entry mirror failed", zap.String("id", e.ID), zap.Error(err))
		}
	}
	return e
}

// SoftDelete marks e deleted. The entry stays in the sequence.
func (s *Store) SoftDelete(e *domain.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.softDeleteLocked(e)
}

func (s *Store) softDeleteLocked(e *domain.LogEntry) {
	e.Deleted = true

	if s.mirror != nil {
		if err := s.mirror.MarkDeleted(e.ID); err != nil {
			s.logger.Error("delete mirror failed", zap.String("id", e.ID), zap.Error(err))
		}
	}
}

// Undo resolves and soft-deletes the undo target. An explicit token selects
// the most recent non-deleted entry whose display time or RFC3339 event time
// equals it exactly; otherwise (or when no token matches) the most recent
// non-deleted entry is taken. Returns nil when there is nothing to undo.
func (s *Store) Undo(token string) *domain.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token != "" {
		for i := len(s.entries) - 1; i >= 0; i-- {
			e := s.entries[i]
			if e.Deleted {
				continue
			}
			if e.EventTimeDisplay == token ||
				(e.EventTime != nil && e.EventTime.Format(time.RFC3339) == token) {
				s.softDeleteLocked(e)
				return e
			}
		}
	}

	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if !e.Deleted {
			s.softDeleteLocked(e)
			return e
		}
	}
	return nil
}

// QueryRange returns non-deleted entries with a resolved event time in
// [start, end), in insertion order. Entries whose time never resolved are
// excluded permanently.
func (s *Store) QueryRange(start, end time.Time) []*domain.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.LogEntry
	for _, e := range s.entries {
		if e.Deleted || e.EventTime == nil {
			continue
		}
		t := *e.EventTime
		if !t.Before(start) && t.Before(end) {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the total number of entries, deleted included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
