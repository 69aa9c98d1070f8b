// Package temporal resolves natural-language date/time phrases to absolute
// instants. All relative dates are interpreted in a fixed UTC+8 reference
// zone; when the input carries no usable date evidence the original phrase is
// preserved verbatim instead of guessing.
package temporal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RefZone is the fixed reference timezone for all relative-date resolution.
// No daylight-saving adjustment.
var RefZone = time.FixedZone("UTC+8", 8*60*60)

// Resolution is the outcome of parsing a time phrase. Instant is nil when no
// absolute date could be justified from the input; Display is always set.
type Resolution struct {
	Display string
	Instant *time.Time
}

// Vague-time markers suppress resolution entirely: an approximate range must
// never be coerced into a false-precision instant.
var vagueMarkers = []string{"大概", "大約", "大约", "approximately", "about"}

// Relative-day phrases in priority order. "day before yesterday" must come
// before "yesterday", and 前天 before 天-suffixed lookups generally.
var relativeDays = []struct {
	phrase string
	offset int
}{
	{"day before yesterday", -2},
	{"前天", -2},
	{"yesterday", -1},
	{"昨天", -1},
	{"today", 0},
	{"今天", 0},
	{"tomorrow", 1},
	{"明天", 1},
}

var (
	// mm/dd or mm-dd, not glued to surrounding digits.
	monthDayRe = regexp.MustCompile(`(?:^|[^0-9])([0-9]{1,2})[/-]([0-9]{1,2})(?:[^0-9]|$)`)
	clockRe    = regexp.MustCompile(`([0-9]{1,2}):([0-9]{2})`)
	// N點 / N点, optional 半 or M分.
	hourWordRe = regexp.MustCompile(`([0-9]{1,2})\s*[點点]\s*(半)?\s*(?:([0-9]{1,2})\s*分)?`)
)

// Parse resolves text against now. It never errors: unresolvable input comes
// back with Instant nil and the literal phrase as Display.
func Parse(text string, now time.Time) Resolution {
	trimmed := strings.TrimSpace(text)

	for _, marker := range vagueMarkers {
		if idx := strings.Index(trimmed, marker); idx >= 0 {
			return Resolution{Display: strings.TrimSpace(trimmed[idx:])}
		}
	}

	base := now.In(RefZone)
	hasDate := false

	for _, rd := range relativeDays {
		if strings.Contains(trimmed, rd.phrase) {
			base = base.AddDate(0, 0, rd.offset)
			hasDate = true
			break
		}
	}

	year, month, day := base.Date()

	if m := monthDayRe.FindStringSubmatch(trimmed); m != nil {
		mm, _ := strconv.Atoi(m[1])
		dd, _ := strconv.Atoi(m[2])
		if mm >= 1 && mm <= 12 && dd >= 1 && dd <= 31 {
			// Explicit month/day overrides any relative-day result; the year
			// stays at the reference year.
			month, day = time.Month(mm), dd
			hasDate = true
		}
	}

	hour, minute := parseClock(trimmed)

	if !hasDate {
		return Resolution{Display: trimmed}
	}

	local := time.Date(year, month, day, hour, minute, 0, 0, RefZone)
	instant := local.UTC()

	// Display is formatted from the resolved fields, not re-derived from the
	// UTC instant, so it cannot drift across the zone conversion.
	display := fmt.Sprintf("%04d-%02d-%02d %02d:%02d", year, int(month), day, hour, minute)
	return Resolution{Display: display, Instant: &instant}
}

// parseClock extracts an hour/minute pair. Missing minute with a half-hour
// marker means :30; a missing time of day defaults to midnight.
func parseClock(text string) (hour, minute int) {
	if m := clockRe.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h <= 23 && min <= 59 {
			return h, min
		}
	}

	if m := hourWordRe.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h <= 23 {
			if m[3] != "" {
				if min, err := strconv.Atoi(m[3]); err == nil && min <= 59 {
					return h, min
				}
			}
			if m[2] != "" {
				return h, 30
			}
			return h, 0
		}
	}

	return 0, 0
}

// MonthDay reports an explicit mm/dd pattern in text, if any. Used by the
// summary path to resolve custom-day requests with the same rules as Parse.
func MonthDay(text string) (month time.Month, day int, ok bool) {
	m := monthDayRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	mm, _ := strconv.Atoi(m[1])
	dd, _ := strconv.Atoi(m[2])
	if mm < 1 || mm > 12 || dd < 1 || dd > 31 {
		return 0, 0, false
	}
	return time.Month(mm), dd, true
}
