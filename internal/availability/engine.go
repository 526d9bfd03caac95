package availability

import (
	"errors"
	"time"

	"github.com/hcdonia/planner-app/internal/interval"
)

// ErrInvalidDuration is returned for requests with a non-positive duration.
var ErrInvalidDuration = errors.New("slot duration must be positive")

// Defaults applied when the corresponding SlotRequest field is zero.
const (
	DefaultDaysAhead = 14
	DefaultMaxSlots  = 3
)

// Config holds the scheduling constraints injected at construction. There are
// no compile-time work hours; everything comes from application configuration.
type Config struct {
	// Location is the timezone all day boundaries are computed in.
	Location *time.Location

	// WorkStartHour and WorkEndHour bound the base work window.
	WorkStartHour int
	WorkEndHour   int

	// Workdays restricts which weekdays get a base work window. The
	// restriction is lifted when a request allows outside hours.
	Workdays map[time.Weekday]bool

	// OutsideStartHour and OutsideEndHour are the extended window used when a
	// request allows scheduling outside normal work hours.
	OutsideStartHour int
	OutsideEndHour   int
}

// DefaultConfig returns the standard Mon-Fri 09:00-18:00 configuration with
// an 08:00-20:00 extended window.
func DefaultConfig(loc *time.Location) Config {
	return Config{
		Location:      loc,
		WorkStartHour: 9,
		WorkEndHour:   18,
		Workdays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
		OutsideStartHour: 8,
		OutsideEndHour:   20,
	}
}

// SlotRequest describes one availability query. It is constructed per query
// and carries no state between calls.
type SlotRequest struct {
	// DurationMinutes is the exact length of every returned slot.
	DurationMinutes int

	// StartAt is the search floor: no slot starts before this instant, and
	// the search range begins on its calendar day. Callers typically pass
	// now plus a small buffer so slots are never suggested in the past.
	StartAt time.Time

	// DaysAhead is the search horizon in days (default DefaultDaysAhead).
	DaysAhead int

	// AllowOutsideHours substitutes the extended window for the base work
	// window and lifts the weekday restriction.
	AllowOutsideHours bool

	// EarliestHour and LatestHour tighten (never widen) the day window.
	EarliestHour *int
	LatestHour   *int

	// Deadline, when set, caps the search range and truncates the window of
	// its own day.
	Deadline *time.Time

	// MaxSlots is the maximum number of slots to return (default DefaultMaxSlots).
	MaxSlots int
}

// Engine finds free slots subject to the configured constraints.
type Engine struct {
	cfg Config
}

// New returns an Engine using the given configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// FindSlots returns up to MaxSlots non-overlapping free intervals of exactly
// the requested duration, ordered by start time. The busy list should cover
// the whole search range across all relevant calendars; it is sorted on a
// copy and never mutated.
func (e *Engine) FindSlots(req SlotRequest, busy []interval.Interval) ([]interval.Interval, error) {
	if req.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute

	daysAhead := req.DaysAhead
	if daysAhead <= 0 {
		daysAhead = DefaultDaysAhead
	}
	maxSlots := req.MaxSlots
	if maxSlots <= 0 {
		maxSlots = DefaultMaxSlots
	}

	sorted := make([]interval.Interval, len(busy))
	copy(sorted, busy)
	interval.Sort(sorted)

	startAt := req.StartAt.In(e.cfg.Location)
	today := midnight(startAt)
	endDay := today.AddDate(0, 0, daysAhead)
	if req.Deadline != nil {
		deadlineDay := midnight(req.Deadline.In(e.cfg.Location))
		if deadlineDay.Before(endDay) {
			endDay = deadlineDay
		}
	}

	var slots []interval.Interval
	for offset := 0; offset <= daysAhead; offset++ {
		day := today.AddDate(0, 0, offset)
		if day.After(endDay) {
			break
		}

		window, ok := e.workWindow(day, req)
		if !ok {
			continue
		}
		if offset == 0 && window.Start.Before(startAt) {
			window.Start = startAt
		}
		if !window.IsValid() {
			continue
		}

		var dayBusy []interval.Interval
		for _, b := range sorted {
			if clipped, ok := b.ClipTo(window); ok {
				dayBusy = append(dayBusy, clipped)
			}
		}
		interval.Sort(dayBusy)

		cursor := window.Start
		for _, b := range dayBusy {
			if b.Start.Sub(cursor) >= duration {
				slots = append(slots, interval.New(cursor, cursor.Add(duration)))
				if len(slots) >= maxSlots {
					return slots, nil
				}
			}
			if b.End.After(cursor) {
				cursor = b.End
			}
		}
		if window.End.Sub(cursor) >= duration {
			slots = append(slots, interval.New(cursor, cursor.Add(duration)))
			if len(slots) >= maxSlots {
				return slots, nil
			}
		}
	}

	return slots, nil
}

// FindFirstSlot returns the earliest free slot, or ok=false when the search
// range holds none.
func (e *Engine) FindFirstSlot(req SlotRequest, busy []interval.Interval) (interval.Interval, bool, error) {
	req.MaxSlots = 1
	slots, err := e.FindSlots(req, busy)
	if err != nil {
		return interval.Interval{}, false, err
	}
	if len(slots) == 0 {
		return interval.Interval{}, false, nil
	}
	return slots[0], true, nil
}

// workWindow computes the permitted scheduling range for a day. The second
// return value is false when the day yields no window: a non-workday, or a
// window emptied by the hour clamps or the deadline.
func (e *Engine) workWindow(day time.Time, req SlotRequest) (interval.Interval, bool) {
	var startHour, endHour int
	if req.AllowOutsideHours {
		startHour = e.cfg.OutsideStartHour
		endHour = e.cfg.OutsideEndHour
	} else {
		if !e.cfg.Workdays[day.Weekday()] {
			return interval.Interval{}, false
		}
		startHour = e.cfg.WorkStartHour
		endHour = e.cfg.WorkEndHour
	}

	if req.EarliestHour != nil && *req.EarliestHour > startHour {
		startHour = *req.EarliestHour
	}
	if req.LatestHour != nil && *req.LatestHour < endHour {
		endHour = *req.LatestHour
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), startHour, 0, 0, 0, e.cfg.Location)
	end := time.Date(day.Year(), day.Month(), day.Day(), endHour, 0, 0, 0, e.cfg.Location)

	if req.Deadline != nil {
		deadline := req.Deadline.In(e.cfg.Location)
		if sameDay(day, deadline) && deadline.Before(end) {
			end = deadline
		}
	}

	window := interval.New(start, end)
	return window, window.IsValid()
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
