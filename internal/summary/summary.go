// Package summary resolves report ranges and renders the date-range report:
// a numbered listing of in-range entries plus per-module counts. Ranges are
// computed in the fixed reference timezone and are end-exclusive.
package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/jot/internal/domain"
	"github.com/pbaille/jot/internal/temporal"
)

// Range is a half-open [Start, End) query window with its display label.
type Range struct {
	Start time.Time
	End   time.Time
	Label string
}

func startOfDay(t time.Time) time.Time {
	local := t.In(temporal.RefZone)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, temporal.RefZone)
}

// Today covers the current reference-local calendar day.
func Today(now time.Time) Range {
	start := startOfDay(now)
	return Range{Start: start, End: start.AddDate(0, 0, 1), Label: "今天"}
}

// Week covers the current week, starting the most recent Monday 00:00.
func Week(now time.Time) Range {
	start := startOfDay(now)
	// Weekday is Sunday==0; shift so Monday==0.
	offset := (int(start.Weekday()) + 6) % 7
	start = start.AddDate(0, 0, -offset)
	return Range{Start: start, End: start.AddDate(0, 0, 7), Label: "本週"}
}

// Month covers the current calendar month.
func Month(now time.Time) Range {
	local := now.In(temporal.RefZone)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, temporal.RefZone)
	return Range{Start: start, End: start.AddDate(0, 1, 0), Label: "本月"}
}

// Day covers one explicit calendar day in the current reference year.
func Day(now time.Time, month time.Month, day int) Range {
	local := now.In(temporal.RefZone)
	start := time.Date(local.Year(), month, day, 0, 0, 0, 0, temporal.RefZone)
	return Range{
		Start: start,
		End:   start.AddDate(0, 0, 1),
		Label: fmt.Sprintf("%d/%d", int(month), day),
	}
}

// Render formats the report for entries already filtered to the range.
func Render(entries []*domain.LogEntry, label string) string {
	if len(entries) == 0 {
		return fmt.Sprintf("📭 %s沒有任何紀錄", label)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 %s的紀錄\n", label)

	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s｜%s｜%s｜%s\n",
			i+1, e.EventTimeDisplay, e.Summary, joinModules(e.Modules), joinTags(e.Tags))
	}

	counts := Counts(entries)

	sb.WriteString("📈 各模組次數：")
	first := true
	for _, m := range domain.Modules() {
		if counts[m] == 0 {
			continue
		}
		if !first {
			sb.WriteString("、")
		}
		fmt.Fprintf(&sb, "%s %d", m, counts[m])
		first = false
	}
	return sb.String()
}

// Counts computes the per-module count map for entries. An entry belonging
// to several modules increments each of them, so the counter sum can exceed
// the entry count.
func Counts(entries []*domain.LogEntry) map[domain.Module]int {
	counts := make(map[domain.Module]int)
	for _, e := range entries {
		for _, m := range e.Modules {
			counts[m]++
		}
	}
	return counts
}

func joinModules(ms []domain.Module) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = string(m)
	}
	return strings.Join(parts, "/")
}

func joinTags(tags []domain.Tag) string {
	if len(tags) == 0 {
		return "無"
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, "/")
}
