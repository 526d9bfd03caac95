package dateparse

import (
	"fmt"
	"strings"
	"time"
)

var weekdays = []struct {
	name string
	day  time.Weekday
}{
	{"monday", time.Monday},
	{"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday},
	{"thursday", time.Thursday},
	{"friday", time.Friday},
	{"saturday", time.Saturday},
	{"sunday", time.Sunday},
}

// nextWeekday returns the next occurrence of day strictly after now's date.
// Asking for "Monday" on a Monday means next week's Monday.
func nextWeekday(now time.Time, day time.Weekday) time.Time {
	ahead := (int(day) - int(now.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return midnight(now.AddDate(0, 0, ahead))
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// ResolveDayPreference maps a date preference like "tomorrow", "Monday" or
// "next week" to the instant a slot search should begin. It returns ok=false
// for an empty or unrecognized preference, in which case the caller searches
// from now.
func ResolveDayPreference(pref string, now time.Time) (time.Time, bool) {
	p := strings.ToLower(pref)
	switch {
	case p == "":
		return time.Time{}, false
	case strings.Contains(p, "today"):
		return now, true
	case strings.Contains(p, "tomorrow"):
		return midnight(now.AddDate(0, 0, 1)), true
	}
	for _, wd := range weekdays {
		if strings.Contains(p, wd.name) {
			return nextWeekday(now, wd.day), true
		}
	}
	if strings.Contains(p, "next week") {
		return nextWeekday(now, time.Monday), true
	}
	return time.Time{}, false
}

// TimeWindow holds the hour bounds resolved from a time-of-day preference.
type TimeWindow struct {
	EarliestHour int
	LatestHour   int
	// AllowOutsideHours is set for evening preferences, which fall outside
	// normal work hours by definition.
	AllowOutsideHours bool
}

// ResolveTimePreference maps "morning", "afternoon", "evening" or
// "after work" to an hour window. ok=false for anything else.
func ResolveTimePreference(pref string) (TimeWindow, bool) {
	p := strings.ToLower(pref)
	switch {
	case strings.Contains(p, "morning"):
		return TimeWindow{EarliestHour: 7, LatestHour: 12}, true
	case strings.Contains(p, "afternoon"):
		return TimeWindow{EarliestHour: 12, LatestHour: 17}, true
	case strings.Contains(p, "evening"), strings.Contains(p, "after work"):
		return TimeWindow{EarliestHour: 17, LatestHour: 21, AllowOutsideHours: true}, true
	}
	return TimeWindow{}, false
}

// ParseDateValue parses a date argument that may be an ISO timestamp, a bare
// date, or one of the natural-language forms. Natural-language dates resolve
// to 09:00 of the target day. Timestamps without a zone are interpreted in
// now's location.
func ParseDateValue(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, now.Location()); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, true
	}

	p := strings.ToLower(s)
	switch {
	case strings.Contains(p, "today"):
		return atHour(now, 9), true
	case strings.Contains(p, "tomorrow"):
		return atHour(now.AddDate(0, 0, 1), 9), true
	case strings.Contains(p, "next week"):
		return atHour(nextWeekday(now, time.Monday), 9), true
	}
	for _, wd := range weekdays {
		if strings.Contains(p, wd.name) {
			return atHour(nextWeekday(now, wd.day), 9), true
		}
	}
	return time.Time{}, false
}

// ParseDayArg parses the date argument of schedule-reading tools:
// "today", "tomorrow" or YYYY-MM-DD.
func ParseDayArg(s string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return midnight(now), nil
	case "tomorrow":
		return midnight(now.AddDate(0, 0, 1)), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD, 'today' or 'tomorrow'", s)
	}
	return t, nil
}

// InferDeadline extracts a hard deadline from free-form text. It recognizes
// "end of month" phrasing; anything else yields ok=false.
func InferDeadline(text string, now time.Time) (time.Time, bool) {
	t := strings.ToLower(text)
	if strings.Contains(t, "end of the month") || strings.Contains(t, "end of month") {
		return EndOfMonth(now), true
	}
	return time.Time{}, false
}

// EndOfMonth returns 23:59 on the last day of the month containing now,
// using explicit month arithmetic: the first day of the next month minus one
// day. Correct across year rollover and leap February.
func EndOfMonth(now time.Time) time.Time {
	firstOfNext := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	last := firstOfNext.AddDate(0, 0, -1)
	return time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 0, 0, now.Location())
}
