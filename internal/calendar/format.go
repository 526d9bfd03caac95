package calendar

import (
	"fmt"
	"strings"
)

// FormatScheduleSummary renders events as a readable bullet list. All-day
// events show "All day" instead of a clock time.
func FormatScheduleSummary(events []Event) string {
	if len(events) == 0 {
		return "No events scheduled."
	}

	lines := make([]string, 0, len(events))
	for _, ev := range events {
		timeStr := "All day"
		duration := ""
		if !ev.AllDay {
			timeStr = ev.Start.Format("03:04 PM")
			duration = " (" + formatDuration(ev) + ")"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s%s", timeStr, ev.Title, duration))
	}

	return strings.Join(lines, "\n")
}

// formatDuration renders an event length as "2h", "1h30m" or "45m".
func formatDuration(ev Event) string {
	mins := int(ev.End.Sub(ev.Start).Minutes())
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	hours := mins / 60
	remaining := mins % 60
	if remaining == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%dm", hours, remaining)
}

// FormatDayLabel renders a day heading like "Monday, March 10".
func FormatDayLabel(day DaySchedule) string {
	return day.Date.Format("Monday, January 02")
}
