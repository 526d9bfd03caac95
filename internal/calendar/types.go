package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// Event is a simplified calendar event.
type Event struct {
	ID          string
	CalendarID  string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Status      string
}

// EventInput carries the fields for creating or updating an event.
type EventInput struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// CalendarInfo describes a calendar accessible to the user.
type CalendarInfo struct {
	ID         string
	Summary    string
	TimeZone   string
	Primary    bool
	AccessRole string // "owner", "writer", "reader", "freeBusyReader"
}

// Writable reports whether events can be created on this calendar.
func (c CalendarInfo) Writable() bool {
	return c.AccessRole == "owner" || c.AccessRole == "writer"
}

// DaySchedule groups the events of a single day.
type DaySchedule struct {
	Date   time.Time
	Events []Event
}

// toEvent converts a Google Calendar event. All-day events carry a Date
// instead of a DateTime and are resolved at midnight in loc.
func toEvent(event *calendar.Event, calendarID string, loc *time.Location) Event {
	ev := Event{
		ID:          event.Id,
		CalendarID:  calendarID,
		Title:       event.Summary,
		Description: event.Description,
		Status:      event.Status,
	}

	if event.Start != nil {
		if event.Start.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, event.Start.DateTime); err == nil {
				ev.Start = t.In(loc)
			}
		} else if event.Start.Date != "" {
			if t, err := time.ParseInLocation("2006-01-02", event.Start.Date, loc); err == nil {
				ev.Start = t
				ev.AllDay = true
			}
		}
	}

	if event.End != nil {
		if event.End.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, event.End.DateTime); err == nil {
				ev.End = t.In(loc)
			}
		} else if event.End.Date != "" {
			if t, err := time.ParseInLocation("2006-01-02", event.End.Date, loc); err == nil {
				ev.End = t
			}
		}
	}

	return ev
}

// toCalendarInfo converts a Google Calendar list entry.
func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	return CalendarInfo{
		ID:         entry.Id,
		Summary:    entry.Summary,
		TimeZone:   entry.TimeZone,
		Primary:    entry.Primary,
		AccessRole: entry.AccessRole,
	}
}
