package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hcdonia/planner-app/internal/availability"
	"github.com/hcdonia/planner-app/internal/calendar"
	"github.com/hcdonia/planner-app/internal/dateparse"
	"github.com/hcdonia/planner-app/internal/instrumentation"
	"github.com/hcdonia/planner-app/internal/interval"
	"github.com/hcdonia/planner-app/internal/store"
)

const (
	defaultSlotDuration = 30
	defaultSlotCount    = 5

	// slotStartBuffer keeps suggested slots from starting in the past while
	// the user is still reading the reply.
	slotStartBuffer = 5 * time.Minute
)

// availabilityNote is sent back with found slots so the model treats them as
// authoritative instead of re-checking the calendar in prose.
const availabilityNote = "IMPORTANT: The 'available_slots' are guaranteed free times with no conflicts. " +
	"Do not double-check them against existing events. Simply present these slots to the user as options."

var calendarPermissions = []string{store.PermissionRead, store.PermissionReadWrite}

func registerCalendarTools(r *Registry) {
	r.register(Definition{
		Name: "check_availability",
		Description: "Check calendar availability and find free time slots for a task. " +
			"Use this when the user wants to schedule something and you need to find open times.",
		Schema: ObjectSchema(Properties{
			"duration_minutes": {Type: "integer", Description: "How long the task needs, in minutes. Defaults to 30."},
			"date_preference":  {Type: "string", Description: "When the user wants it, e.g. 'today', 'tomorrow', 'monday', 'next week'."},
			"time_preference":  {Type: "string", Description: "Preferred time of day: 'morning', 'afternoon', 'evening', or 'after work'."},
			"deadline":         {Type: "string", Description: "Hard deadline for the task, ISO date or natural language like 'end of month'."},
			"num_slots":        {Type: "integer", Description: "How many slot options to return. Defaults to 5."},
		}),
		Handler: handleCheckAvailability,
	})
	r.register(Definition{
		Name: "schedule_task",
		Description: "Create a calendar event for a task at a specific time. " +
			"Only call this after the user has confirmed which slot they want.",
		Schema: ObjectSchema(Properties{
			"title":            {Type: "string", Description: "Event title."},
			"start_time":       {Type: "string", Description: "Event start as an ISO timestamp, e.g. 2025-03-10T14:00:00."},
			"duration_minutes": {Type: "integer", Description: "Event length in minutes. Defaults to 30."},
			"description":      {Type: "string", Description: "Optional event description."},
			"calendar_name":    {Type: "string", Description: "Name of the calendar to schedule on. Defaults to the primary writable calendar."},
			"category":         {Type: "string", Description: "Task category for history tracking."},
		}, "title", "start_time"),
		Handler: handleScheduleTask,
	})
	r.register(Definition{
		Name:        "get_day_schedule",
		Description: "Get the schedule for a specific day.",
		Schema: ObjectSchema(Properties{
			"date": {Type: "string", Description: "'today', 'tomorrow', or a date like 2025-03-10. Defaults to today."},
		}),
		Handler: handleGetDaySchedule,
	})
	r.register(Definition{
		Name:        "get_week_overview",
		Description: "Get an overview of the week's schedule, one summary per day.",
		Schema: ObjectSchema(Properties{
			"start_date": {Type: "string", Description: "Week start as YYYY-MM-DD. Defaults to the current week's Monday."},
		}),
		Handler: handleGetWeekOverview,
	})
	r.register(Definition{
		Name:        "add_calendar",
		Description: "Register a Google calendar with the planner so its events are considered when scheduling.",
		Schema: ObjectSchema(Properties{
			"name":               {Type: "string", Description: "Friendly name for the calendar."},
			"google_calendar_id": {Type: "string", Description: "Google calendar ID, e.g. an email address or 'primary'."},
			"permission":         {Type: "string", Enum: calendarPermissions, Description: "Whether the planner may create events on this calendar."},
			"color":              {Type: "string", Description: "Optional display color."},
			"priority":           {Type: "integer", Description: "Ordering priority, lower is first. Defaults to 5."},
		}, "name", "google_calendar_id", "permission"),
		Handler: handleAddCalendar,
	})
	r.register(Definition{
		Name:        "list_google_calendars",
		Description: "List the Google calendars the connected account can access, for picking which to register.",
		Schema:      ObjectSchema(Properties{}),
		Handler:     handleListGoogleCalendars,
	})
	r.register(Definition{
		Name:        "remove_calendar",
		Description: "Remove a registered calendar from the planner. Does not touch the Google calendar itself.",
		Schema: ObjectSchema(Properties{
			"calendar_id": {Type: "integer", Description: "ID of the registered calendar to remove."},
		}, "calendar_id"),
		Handler: handleRemoveCalendar,
	})
}

type slotView struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Display  string `json:"display"`
	Duration int    `json:"duration_minutes"`
}

func handleCheckAvailability(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		DurationMinutes int    `json:"duration_minutes"`
		DatePreference  string `json:"date_preference"`
		TimePreference  string `json:"time_preference"`
		Deadline        string `json:"deadline"`
		NumSlots        int    `json:"num_slots"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.DurationMinutes < 0 {
		return nil, invalidArgs("duration_minutes must be positive")
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = defaultSlotDuration
	}
	if in.NumSlots <= 0 {
		in.NumSlots = defaultSlotCount
	}

	now := deps.Now().In(deps.Config.Location())
	req := availability.SlotRequest{
		DurationMinutes: in.DurationMinutes,
		StartAt:         now.Add(slotStartBuffer),
		DaysAhead:       availability.DefaultDaysAhead,
		MaxSlots:        in.NumSlots,
	}

	if start, ok := dateparse.ResolveDayPreference(in.DatePreference, now); ok && start.After(req.StartAt) {
		req.StartAt = start
	}
	if win, ok := dateparse.ResolveTimePreference(in.TimePreference); ok {
		earliest, latest := win.EarliestHour, win.LatestHour
		req.EarliestHour = &earliest
		req.LatestHour = &latest
		req.AllowOutsideHours = win.AllowOutsideHours
	}
	if in.Deadline != "" {
		if t, ok := dateparse.ParseDateValue(in.Deadline, now); ok {
			req.Deadline = &t
		} else if t, ok := dateparse.InferDeadline(in.Deadline, now); ok {
			req.Deadline = &t
		}
	}

	calendarIDs, err := registeredCalendarIDs(ctx, deps)
	if err != nil {
		return nil, err
	}

	rangeEnd := req.StartAt.AddDate(0, 0, req.DaysAhead)
	if req.Deadline != nil && req.Deadline.Before(rangeEnd) {
		rangeEnd = *req.Deadline
	}
	busy, err := deps.Calendar.FetchBusy(now, rangeEnd, calendarIDs)
	if err != nil {
		deps.Metrics.RecordAvailabilitySearch(ctx, instrumentation.StatusError, 0)
		return nil, fmt.Errorf("failed to fetch busy intervals: %w", err)
	}

	slots, err := deps.Engine.FindSlots(req, busy)
	if err != nil {
		deps.Metrics.RecordAvailabilitySearch(ctx, instrumentation.StatusError, 0)
		return nil, err
	}
	deps.Metrics.RecordAvailabilitySearch(ctx, instrumentation.StatusSuccess, len(slots))

	if len(slots) == 0 {
		return map[string]any{
			"success": false,
			"message": fmt.Sprintf("No available slots found in the next %d days", req.DaysAhead),
		}, nil
	}

	views := make([]slotView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, slotView{
			Start:    slot.Start.Format(time.RFC3339),
			End:      slot.End.Format(time.RFC3339),
			Display:  formatSlot(slot),
			Duration: in.DurationMinutes,
		})
	}

	existing, err := existingEventsByDay(deps, calendarIDs, slots)
	if err != nil {
		deps.Logger.Warn("failed to fetch existing events for context", "error", err)
		existing = map[string]string{}
	}

	return map[string]any{
		"success":                true,
		"available_slots":        views,
		"existing_events_by_day": existing,
		"message":                fmt.Sprintf("Found %d available slots. %s", len(views), availabilityNote),
	}, nil
}

// formatSlot renders a slot start like "Monday, March 10 at 02:00 PM".
func formatSlot(slot interval.Interval) string {
	return slot.Start.Format("Monday, January 02 at 03:04 PM")
}

// existingEventsByDay summarizes the already-booked events on every day a
// slot was suggested, keyed by day label.
func existingEventsByDay(deps *Deps, calendarIDs []string, slots []interval.Interval) (map[string]string, error) {
	out := make(map[string]string)
	seen := make(map[string]bool)
	for _, slot := range slots {
		label := slot.Start.Format("Monday, January 02")
		if seen[label] {
			continue
		}
		seen[label] = true

		events, err := deps.Calendar.GetDaySchedule(calendarIDs, slot.Start)
		if err != nil {
			return nil, err
		}
		out[label] = calendar.FormatScheduleSummary(events)
	}
	return out, nil
}

// registeredCalendarIDs returns the Google IDs of all registered calendars,
// falling back to the primary calendar when none are registered.
func registeredCalendarIDs(ctx context.Context, deps *Deps) ([]string, error) {
	cals, err := deps.Store.ListCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	if len(cals) == 0 {
		return []string{"primary"}, nil
	}
	ids := make([]string, 0, len(cals))
	for _, c := range cals {
		ids = append(ids, c.GoogleCalendarID)
	}
	return ids, nil
}

func handleScheduleTask(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		Title           string `json:"title"`
		StartTime       string `json:"start_time"`
		DurationMinutes int    `json:"duration_minutes"`
		Description     string `json:"description"`
		CalendarName    string `json:"calendar_name"`
		Category        string `json:"category"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, invalidArgs("title is required")
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = defaultSlotDuration
	}

	loc := deps.Config.Location()
	now := deps.Now().In(loc)
	start, ok := dateparse.ParseDateValue(in.StartTime, now)
	if !ok {
		return nil, invalidArgs("invalid start_time %q: expected an ISO timestamp", in.StartTime)
	}
	start = start.In(loc)
	end := start.Add(time.Duration(in.DurationMinutes) * time.Minute)

	calendarID, calendarName, err := writableCalendar(ctx, deps, in.CalendarName)
	if err != nil {
		return nil, err
	}

	event, err := deps.Calendar.CreateEvent(calendarID, calendar.EventInput{
		Title:       in.Title,
		Description: in.Description,
		Start:       start,
		End:         end,
		TimeZone:    deps.Config.Timezone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if _, err := deps.Store.AddTaskRecord(ctx, in.Title, in.Category, in.DurationMinutes, start, event.ID, calendarName); err != nil {
		deps.Logger.Warn("failed to record scheduled task", "error", err)
	}

	return map[string]any{
		"success":  true,
		"event_id": event.ID,
		"message":  fmt.Sprintf("Scheduled '%s' for %s", in.Title, start.Format("Monday, January 02 at 03:04 PM")),
	}, nil
}

// writableCalendar picks the calendar to schedule on. A named calendar must
// be registered and writable; with no name the highest-priority writable
// calendar wins, falling back to primary.
func writableCalendar(ctx context.Context, deps *Deps, name string) (googleID, calName string, err error) {
	if name != "" {
		cal, err := deps.Store.GetCalendarByName(ctx, name)
		if err != nil {
			return "", "", fmt.Errorf("failed to look up calendar: %w", err)
		}
		if cal == nil {
			return "", "", fmt.Errorf("calendar %q not found", name)
		}
		if !cal.Writable() {
			return "", "", fmt.Errorf("calendar %q is read-only", cal.Name)
		}
		return cal.GoogleCalendarID, cal.Name, nil
	}

	cals, err := deps.Store.ListCalendars(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to list calendars: %w", err)
	}
	for _, cal := range cals {
		if cal.Writable() {
			return cal.GoogleCalendarID, cal.Name, nil
		}
	}
	return "primary", "primary", nil
}

func handleGetDaySchedule(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		Date string `json:"date"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	now := deps.Now().In(deps.Config.Location())
	day, err := dateparse.ParseDayArg(in.Date, now)
	if err != nil {
		return nil, invalidArgs("%v", err)
	}

	calendarIDs, err := registeredCalendarIDs(ctx, deps)
	if err != nil {
		return nil, err
	}
	events, err := deps.Calendar.GetDaySchedule(calendarIDs, day)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch day schedule: %w", err)
	}

	return map[string]any{
		"success":  true,
		"date":     day.Format("2006-01-02"),
		"day":      day.Format("Monday, January 02"),
		"schedule": calendar.FormatScheduleSummary(events),
	}, nil
}

func handleGetWeekOverview(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		StartDate string `json:"start_date"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	loc := deps.Config.Location()
	ref := deps.Now().In(loc)
	if in.StartDate != "" {
		t, err := time.ParseInLocation("2006-01-02", in.StartDate, loc)
		if err != nil {
			return nil, invalidArgs("invalid start_date %q: expected YYYY-MM-DD", in.StartDate)
		}
		ref = t
	}

	calendarIDs, err := registeredCalendarIDs(ctx, deps)
	if err != nil {
		return nil, err
	}
	week, err := deps.Calendar.GetWeekOverview(calendarIDs, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch week overview: %w", err)
	}

	days := make(map[string]string, len(week))
	for _, day := range week {
		days[calendar.FormatDayLabel(day)] = calendar.FormatScheduleSummary(day.Events)
	}
	return map[string]any{
		"success":    true,
		"week_start": calendar.MondayOf(ref).Format("2006-01-02"),
		"days":       days,
	}, nil
}

func handleAddCalendar(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		Name             string `json:"name"`
		GoogleCalendarID string `json:"google_calendar_id"`
		Permission       string `json:"permission"`
		Color            string `json:"color"`
		Priority         int    `json:"priority"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Name == "" || in.GoogleCalendarID == "" {
		return nil, invalidArgs("name and google_calendar_id are required")
	}
	if !oneOf(in.Permission, calendarPermissions) {
		return nil, invalidArgs("invalid permission %q", in.Permission)
	}

	cal, err := deps.Store.AddCalendar(ctx, in.Name, in.GoogleCalendarID, in.Permission, in.Color, in.Priority)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success":  true,
		"calendar": cal,
		"message":  fmt.Sprintf("Added calendar '%s' with %s access", cal.Name, cal.Permission),
	}, nil
}

func handleListGoogleCalendars(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	infos, err := deps.Calendar.ListCalendars()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	type entry struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Primary  bool   `json:"primary,omitempty"`
		Writable bool   `json:"writable"`
	}
	out := make([]entry, 0, len(infos))
	for _, info := range infos {
		out = append(out, entry{
			ID:       info.ID,
			Name:     info.Summary,
			Primary:  info.Primary,
			Writable: info.Writable(),
		})
	}
	return map[string]any{"success": true, "calendars": out}, nil
}

func handleRemoveCalendar(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		CalendarID int64 `json:"calendar_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.CalendarID == 0 {
		return nil, invalidArgs("calendar_id is required")
	}

	removed, err := deps.Store.RemoveCalendar(ctx, in.CalendarID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, fmt.Errorf("calendar with ID %d not found", in.CalendarID)
	}
	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Removed calendar %d", in.CalendarID),
	}, nil
}
