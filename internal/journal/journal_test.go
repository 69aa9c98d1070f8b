package journal

import (
	"fmt"
	"testing"
	"time"

	"github.com/pbaille/jot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ts(day, hour int) *time.Time {
	t := time.Date(2024, 6, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func entry(day, hour int, display string) *domain.LogEntry {
	return &domain.LogEntry{
		Kind:             domain.KindInstant,
		CreatedAt:        time.Now(),
		EventTime:        ts(day, hour),
		EventTimeDisplay: display,
		RawText:          display,
		Modules:          []domain.Module{domain.ModuleOther},
	}
}

func TestAppendAssignsIdentityAndOrder(t *testing.T) {
	s := New(nil, zap.NewNop())

	a := s.Append(entry(1, 9, "a"))
	b := s.Append(entry(1, 10, "b"))

	assert.Equal(t, 1, a.Seq)
	assert.Equal(t, 2, b.Seq)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Len())
}

func TestUndoMostRecent(t *testing.T) {
	s := New(nil, zap.NewNop())
	s.Append(entry(1, 9, "first"))
	last := s.Append(entry(1, 10, "second"))

	got := s.Undo("")
	require.NotNil(t, got)
	assert.Equal(t, last.ID, got.ID)
	assert.True(t, got.Deleted)
	assert.Equal(t, 2, s.Len(), "soft delete keeps the entry in the sequence")
}

func TestUndoSkipsAlreadyDeleted(t *testing.T) {
	s := New(nil, zap.NewNop())
	first := s.Append(entry(1, 9, "first"))
	second := s.Append(entry(1, 10, "second"))
	s.SoftDelete(second)

	got := s.Undo("")
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
}

func TestUndoExplicitTokenMatchesDisplay(t *testing.T) {
	s := New(nil, zap.NewNop())
	target := s.Append(entry(1, 9, "2024-06-01 09:00"))
	s.Append(entry(1, 10, "2024-06-01 10:00"))

	got := s.Undo("2024-06-01 09:00")
	require.NotNil(t, got)
	assert.Equal(t, target.ID, got.ID)
}

func TestUndoExplicitTokenMatchesRFC3339(t *testing.T) {
	s := New(nil, zap.NewNop())
	target := s.Append(entry(1, 9, "whatever"))
	s.Append(entry(1, 10, "later"))

	got := s.Undo(target.EventTime.Format(time.RFC3339))
	require.NotNil(t, got)
	assert.Equal(t, target.ID, got.ID)
}

func TestUndoUnmatchedTokenFallsBackToMostRecent(t *testing.T) {
	s := New(nil, zap.NewNop())
	s.Append(entry(1, 9, "first"))
	last := s.Append(entry(1, 10, "second"))

	got := s.Undo("no-such-timestamp")
	require.NotNil(t, got)
	assert.Equal(t, last.ID, got.ID)
}

func TestUndoEmptyStore(t *testing.T) {
	s := New(nil, zap.NewNop())
	assert.Nil(t, s.Undo(""))
	assert.Zero(t, s.Len())
}

func TestUndoAllDeleted(t *testing.T) {
	s := New(nil, zap.NewNop())
	s.SoftDelete(s.Append(entry(1, 9, "a")))
	assert.Nil(t, s.Undo(""))
}

func TestQueryRangeFiltersAndPreservesOrder(t *testing.T) {
	s := New(nil, zap.NewNop())
	in1 := s.Append(entry(10, 9, "in1"))
	s.Append(entry(9, 23, "before"))
	in2 := s.Append(entry(10, 23, "in2"))
	s.Append(entry(11, 0, "at end, excluded"))

	unresolved := entry(10, 12, "大概中午")
	unresolved.EventTime = nil
	s.Append(unresolved)

	deleted := s.Append(entry(10, 13, "deleted"))
	s.SoftDelete(deleted)

	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	got := s.QueryRange(start, end)

	require.Len(t, got, 2)
	assert.Equal(t, in1.ID, got[0].ID, "insertion order preserved")
	assert.Equal(t, in2.ID, got[1].ID)
	for _, e := range got {
		assert.False(t, e.Deleted)
		assert.NotNil(t, e.EventTime)
	}
}

func TestQueryRangeStartInclusive(t *testing.T) {
	s := New(nil, zap.NewNop())
	onStart := s.Append(entry(10, 0, "on start"))

	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	got := s.QueryRange(start, start.Add(24*time.Hour))
	require.Len(t, got, 1)
	assert.Equal(t, onStart.ID, got[0].ID)
}

type failingSyncer struct{}

func (failingSyncer) SaveEntry(domain.LogEntry) error { return fmt.Errorf("disk gone") }
func (failingSyncer) MarkDeleted(string) error        { return fmt.Errorf("disk gone") }

func TestMirrorFailureIsNonFatal(t *testing.T) {
	s := New(failingSyncer{}, zap.NewNop())
	e := s.Append(entry(1, 9, "a"))
	require.NotNil(t, e)
	s.SoftDelete(e)
	assert.True(t, e.Deleted)
	assert.Equal(t, 1, s.Len())
}
