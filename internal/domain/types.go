package domain

import "time"

// Kind distinguishes entries logged at authoring time from backdated ones.
type Kind string

const (
	KindInstant Kind = "instant"
	KindBacklog Kind = "backlog"
)

// Module is a primary category label. The vocabulary is closed: labels
// outside Modules() are rejected wherever they come from.
type Module string

const (
	ModuleWork     Module = "work"
	ModuleHome     Module = "home"
	ModuleHealth   Module = "health"
	ModuleLearning Module = "learning"
	ModuleSocial   Module = "social"
	ModuleOther    Module = "other" // catch-all
)

// Tag is an auxiliary category label, also a closed vocabulary.
type Tag string

const (
	TagExhibition Tag = "exhibition"
	TagChore      Tag = "chore"
	TagExercise   Tag = "exercise"
	TagErrand     Tag = "errand"
	TagReading    Tag = "reading"
	TagMeeting    Tag = "meeting"
	TagMisc       Tag = "misc" // catch-all
)

// Modules returns the module vocabulary in canonical order.
func Modules() []Module {
	return []Module{ModuleWork, ModuleHome, ModuleHealth, ModuleLearning, ModuleSocial, ModuleOther}
}

// Tags returns the tag vocabulary in canonical order.
func Tags() []Tag {
	return []Tag{TagExhibition, TagChore, TagExercise, TagErrand, TagReading, TagMeeting, TagMisc}
}

// ParseModule validates a label against the module vocabulary.
func ParseModule(s string) (Module, bool) {
	for _, m := range Modules() {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// ParseTag validates a label against the tag vocabulary.
func ParseTag(s string) (Tag, bool) {
	for _, t := range Tags() {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// LogEntry represents one recorded activity.
//
// Entries are never removed from the store, only marked Deleted. EventTime is
// nil only when the activity time could not be resolved to an absolute
// instant; EventTimeDisplay then preserves the user's phrasing verbatim.
type LogEntry struct {
	ID               string     `json:"id"`
	Seq              int        `json:"seq"`
	Kind             Kind       `json:"kind"`
	CreatedAt        time.Time  `json:"created_at"`
	EventTime        *time.Time `json:"event_time,omitempty"`
	EventTimeDisplay string     `json:"event_time_display"`
	RawText          string     `json:"raw_text"`
	Summary          string     `json:"summary"`
	Modules          []Module   `json:"modules"`
	Tags             []Tag      `json:"tags,omitempty"`
	Deleted          bool       `json:"deleted"`
}

// Turn is one exchange in the plain-conversation window. Turns are kept in a
// short rolling window for reply continuity and are not part of the log.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
