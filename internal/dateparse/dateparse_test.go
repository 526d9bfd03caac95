package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wednesday is 2025-03-12, a Wednesday.
var wednesday = time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)

func TestResolveDayPreference(t *testing.T) {
	tests := []struct {
		name     string
		pref     string
		expected time.Time
		ok       bool
	}{
		{name: "empty", pref: "", ok: false},
		{name: "unrecognized", pref: "whenever", ok: false},
		{name: "today keeps current instant", pref: "today", expected: wednesday, ok: true},
		{name: "tomorrow", pref: "tomorrow", expected: time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "friday this week", pref: "Friday", expected: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "same weekday means next week", pref: "wednesday", expected: time.Date(2025, 3, 19, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "monday wraps the week", pref: "on Monday", expected: time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "next week is next monday", pref: "next week", expected: time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveDayPreference(tt.pref, wednesday)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestResolveTimePreference(t *testing.T) {
	win, ok := ResolveTimePreference("morning")
	require.True(t, ok)
	assert.Equal(t, TimeWindow{EarliestHour: 7, LatestHour: 12}, win)

	win, ok = ResolveTimePreference("in the afternoon")
	require.True(t, ok)
	assert.Equal(t, TimeWindow{EarliestHour: 12, LatestHour: 17}, win)

	win, ok = ResolveTimePreference("evening")
	require.True(t, ok)
	assert.Equal(t, TimeWindow{EarliestHour: 17, LatestHour: 21, AllowOutsideHours: true}, win)

	win, ok = ResolveTimePreference("after work")
	require.True(t, ok)
	assert.True(t, win.AllowOutsideHours)

	_, ok = ResolveTimePreference("2pm")
	assert.False(t, ok)
}

func TestParseDateValue(t *testing.T) {
	got, ok := ParseDateValue("2025-04-01T10:00:00Z", wednesday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC), got)

	// Naive timestamps pick up the reference location.
	got, ok = ParseDateValue("2025-04-01T10:00:00", wednesday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC), got)

	got, ok = ParseDateValue("2025-04-01", wednesday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), got)

	// Natural-language dates land at 09:00.
	got, ok = ParseDateValue("tomorrow", wednesday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC), got)

	got, ok = ParseDateValue("next Monday", wednesday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC), got)

	_, ok = ParseDateValue("someday", wednesday)
	assert.False(t, ok)

	_, ok = ParseDateValue("", wednesday)
	assert.False(t, ok)
}

func TestParseDayArg(t *testing.T) {
	got, err := ParseDayArg("today", wednesday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDayArg("tomorrow", wednesday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDayArg("2025-06-30", wednesday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDayArg("not-a-date", wednesday)
	assert.Error(t, err)
}

func TestEndOfMonth(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "mid-month",
			now:  time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC),
		},
		{
			name: "december rolls into january",
			now:  time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC),
			want: time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC),
		},
		{
			name: "leap february",
			now:  time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
			want: time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC),
		},
		{
			name: "non-leap february",
			now:  time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC),
			want: time.Date(2025, 2, 28, 23, 59, 0, 0, time.UTC),
		},
		{
			name: "thirty-day month",
			now:  time.Date(2025, 4, 30, 23, 0, 0, 0, time.UTC),
			want: time.Date(2025, 4, 30, 23, 59, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EndOfMonth(tt.now))
		})
	}
}

func TestInferDeadline(t *testing.T) {
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	deadline, ok := InferDeadline("I need this done by the end of the month", now)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC), deadline)

	deadline, ok = InferDeadline("End of month please", now)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC), deadline)

	_, ok = InferDeadline("whenever works", now)
	assert.False(t, ok)
}
