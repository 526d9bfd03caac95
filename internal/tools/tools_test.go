package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcdonia/planner-app/internal/availability"
	"github.com/hcdonia/planner-app/internal/calendar"
	"github.com/hcdonia/planner-app/internal/config"
	"github.com/hcdonia/planner-app/internal/interval"
	"github.com/hcdonia/planner-app/internal/store"
)

// fakeCalendar implements calendar.Service with canned data.
type fakeCalendar struct {
	busy      []interval.Interval
	events    map[string][]calendar.Event
	calendars []calendar.CalendarInfo
	created   []calendar.EventInput
	createErr error
	busyErr   error
}

func (f *fakeCalendar) FetchBusy(timeMin, timeMax time.Time, calendarIDs []string) ([]interval.Interval, error) {
	if f.busyErr != nil {
		return nil, f.busyErr
	}
	return f.busy, nil
}

func (f *fakeCalendar) GetEvents(calendarID string, timeMin, timeMax time.Time) ([]calendar.Event, error) {
	return f.events[calendarID], nil
}

func (f *fakeCalendar) GetDaySchedule(calendarIDs []string, day time.Time) ([]calendar.Event, error) {
	var out []calendar.Event
	for _, id := range calendarIDs {
		for _, ev := range f.events[id] {
			if ev.Start.Year() == day.Year() && ev.Start.YearDay() == day.YearDay() {
				out = append(out, ev)
			}
		}
	}
	return out, nil
}

func (f *fakeCalendar) GetWeekOverview(calendarIDs []string, ref time.Time) ([]calendar.DaySchedule, error) {
	monday := calendar.MondayOf(ref)
	week := make([]calendar.DaySchedule, 0, 7)
	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i)
		events, _ := f.GetDaySchedule(calendarIDs, day)
		week = append(week, calendar.DaySchedule{Date: day, Events: events})
	}
	return week, nil
}

func (f *fakeCalendar) CreateEvent(calendarID string, input calendar.EventInput) (*calendar.Event, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, input)
	return &calendar.Event{
		ID:         fmt.Sprintf("evt-%d", len(f.created)),
		CalendarID: calendarID,
		Title:      input.Title,
		Start:      input.Start,
		End:        input.End,
	}, nil
}

func (f *fakeCalendar) UpdateEvent(calendarID, eventID string, input calendar.EventInput) (*calendar.Event, error) {
	return &calendar.Event{ID: eventID, CalendarID: calendarID, Title: input.Title}, nil
}

func (f *fakeCalendar) DeleteEvent(calendarID, eventID string) error { return nil }

func (f *fakeCalendar) ListCalendars() ([]calendar.CalendarInfo, error) {
	return f.calendars, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Timezone:      "UTC",
		WorkStartHour: 9,
		WorkEndHour:   18,
	}
}

func newTestRegistry(t *testing.T, fake *fakeCalendar, now time.Time) (*Registry, *store.DB) {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, filepath.Join(t.TempDir(), "planner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := testConfig()
	deps := &Deps{
		Store:    db,
		Calendar: fake,
		Engine:   availability.New(availability.DefaultConfig(cfg.Location())),
		Config:   cfg,
		Now:      func() time.Time { return now },
	}
	return NewRegistry(deps), db
}

func dispatch(t *testing.T, r *Registry, name, args string) map[string]any {
	t.Helper()
	raw := r.Dispatch(context.Background(), name, json.RawMessage(args))
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// testNow is a Tuesday at 10:00 UTC.
var testNow = time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)

func TestDispatchUnknownTool(t *testing.T) {
	r, _ := newTestRegistry(t, &fakeCalendar{}, testNow)

	out := dispatch(t, r, "frobnicate", `{}`)

	assert.Equal(t, false, out["success"])
	assert.Equal(t, ErrorKindUnknownTool, out["error_kind"])
	assert.Equal(t, "Unknown function: frobnicate", out["error"])
}

func TestDispatchInvalidJSONArguments(t *testing.T) {
	r, _ := newTestRegistry(t, &fakeCalendar{}, testNow)

	out := dispatch(t, r, "get_todos", `{not json`)

	assert.Equal(t, false, out["success"])
	assert.Equal(t, ErrorKindInvalidArguments, out["error_kind"])
}

func TestDispatchMissingRequiredArgument(t *testing.T) {
	r, _ := newTestRegistry(t, &fakeCalendar{}, testNow)

	out := dispatch(t, r, "add_todo", `{}`)

	assert.Equal(t, false, out["success"])
	assert.Equal(t, ErrorKindInvalidArguments, out["error_kind"])
	assert.Contains(t, out["error"], "title")
}

func TestDefsMatchRegistrationOrder(t *testing.T) {
	r, _ := newTestRegistry(t, &fakeCalendar{}, testNow)

	defs := r.Defs()
	require.Len(t, defs, 16)
	assert.Equal(t, "check_availability", defs[0].Function.Name)
	assert.Equal(t, "function", defs[0].Type)

	names := make(map[string]bool)
	for _, def := range defs {
		assert.False(t, names[def.Function.Name], "duplicate tool %s", def.Function.Name)
		names[def.Function.Name] = true
		assert.NotEmpty(t, def.Function.Description)
		assert.NotEmpty(t, def.Function.Parameters)
	}
	for _, name := range []string{
		"check_availability", "schedule_task", "get_day_schedule", "get_week_overview",
		"add_calendar", "list_google_calendars", "remove_calendar",
		"save_knowledge", "get_knowledge", "update_knowledge", "add_instruction", "add_scheduling_rule",
		"add_todo", "get_todos", "update_todo", "delete_todo",
	} {
		assert.True(t, names[name], "missing tool %s", name)
	}
}

func TestCheckAvailabilityFindsSlots(t *testing.T) {
	// One meeting tomorrow morning, rest of the calendar free.
	busyStart := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	fake := &fakeCalendar{
		busy: []interval.Interval{interval.New(busyStart, busyStart.Add(time.Hour))},
	}
	r, _ := newTestRegistry(t, fake, testNow)

	out := dispatch(t, r, "check_availability", `{"duration_minutes": 60, "date_preference": "tomorrow"}`)

	require.Equal(t, true, out["success"])
	slots := out["available_slots"].([]any)
	require.Len(t, slots, 5)

	first := slots[0].(map[string]any)
	assert.Equal(t, float64(60), first["duration_minutes"])
	start, err := time.Parse(time.RFC3339, first["start"].(string))
	require.NoError(t, err)
	assert.Equal(t, 12, start.Day())
	assert.False(t, interval.New(busyStart, busyStart.Add(time.Hour)).Contains(start))

	msg := out["message"].(string)
	assert.Contains(t, msg, "Found 5 available slots")
	assert.Contains(t, msg, "guaranteed free times with no conflicts")
}

func TestCheckAvailabilityNoSlots(t *testing.T) {
	// The whole horizon is one busy block.
	fake := &fakeCalendar{
		busy: []interval.Interval{interval.New(testNow.AddDate(0, 0, -1), testNow.AddDate(0, 0, 20))},
	}
	r, _ := newTestRegistry(t, fake, testNow)

	out := dispatch(t, r, "check_availability", `{"duration_minutes": 30}`)

	require.Equal(t, false, out["success"])
	assert.NotContains(t, out, "available_slots")
	assert.Equal(t, "No available slots found in the next 14 days", out["message"])
}

func TestCheckAvailabilityDefaults(t *testing.T) {
	r, _ := newTestRegistry(t, &fakeCalendar{}, testNow)

	out := dispatch(t, r, "check_availability", `{}`)

	require.Equal(t, true, out["success"])
	slots := out["available_slots"].([]any)
	require.Len(t, slots, 5)
	first := slots[0].(map[string]any)
	assert.Equal(t, float64(30), first["duration_minutes"])
}

func TestCheckAvailabilityCalendarFailure(t *testing.T) {
	fake := &fakeCalendar{busyErr: fmt.Errorf("googleapi: Error 403: quota exceeded")}
	r, _ := newTestRegistry(t, fake, testNow)

	out := dispatch(t, r, "check_availability", `{}`)

	assert.Equal(t, false, out["success"])
	assert.Equal(t, ErrorKindRateLimited, out["error_kind"])
}

func TestScheduleTaskCreatesEventAndHistory(t *testing.T) {
	fake := &fakeCalendar{}
	r, db := newTestRegistry(t, fake, testNow)

	out := dispatch(t, r, "schedule_task",
		`{"title": "Write report", "start_time": "2025-03-12T14:00:00", "duration_minutes": 45, "category": "deep_work"}`)

	require.Equal(t, true, out["success"])
	assert.Equal(t, "evt-1", out["event_id"])
	assert.Equal(t, "Scheduled 'Write report' for Wednesday, March 12 at 02:00 PM", out["message"])

	require.Len(t, fake.created, 1)
	assert.Equal(t, "Write report", fake.created[0].Title)
	assert.Equal(t, 45*time.Minute, fake.created[0].End.Sub(fake.created[0].Start))

	records, err := db.RecentTaskRecords(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Write report", records[0].Title)
	assert.Equal(t, "evt-1", records[0].GoogleEventID)
}

func TestScheduleTaskRejectsReadOnlyCalendar(t *testing.T) {
	r, db := newTestRegistry(t, &fakeCalendar{}, testNow)
	_, err := db.AddCalendar(context.Background(), "Team", "team@example.com", store.PermissionRead, "", 1)
	require.NoError(t, err)

	out := dispatch(t, r, "schedule_task",
		`{"title": "Sync", "start_time": "2025-03-12T14:00:00", "calendar_name": "Team"}`)

	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "read-only")
}

func TestScheduleTaskUsesWritableCalendarByPriority(t *testing.T) {
	fake := &fakeCalendar{}
	r, db := newTestRegistry(t, fake, testNow)
	ctx := context.Background()
	_, err := db.AddCalendar(ctx, "Team", "team@example.com", store.PermissionRead, "", 1)
	require.NoError(t, err)
	_, err = db.AddCalendar(ctx, "Personal", "me@example.com", store.PermissionReadWrite, "", 2)
	require.NoError(t, err)

	out := dispatch(t, r, "schedule_task", `{"title": "Errand", "start_time": "2025-03-12T09:00:00"}`)

	require.Equal(t, true, out["success"])
	records, err := db.RecentTaskRecords(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Personal", records[0].CalendarName)
}

func TestGetDaySchedule(t *testing.T) {
	start := time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC)
	fake := &fakeCalendar{
		events: map[string][]calendar.Event{
			"primary": {{ID: "e1", Title: "Standup", Start: start, End: start.Add(30 * time.Minute)}},
		},
	}
	r, _ := newTestRegistry(t, fake, testNow)

	out := dispatch(t, r, "get_day_schedule", `{"date": "today"}`)

	require.Equal(t, true, out["success"])
	assert.Equal(t, "2025-03-11", out["date"])
	assert.Equal(t, "- 02:00 PM: Standup (30m)", out["schedule"])
}

func TestGetDayScheduleEmpty(t *testing.T) {
	r, _ := newTestRegistry(t, &fakeCalendar{}, testNow)

	out := dispatch(t, r, "get_day_schedule", `{"date": "2025-03-15"}`)

	require.Equal(t, true, out["success"])
	assert.Equal(t, "No events scheduled.", out["schedule"])
}

func TestGetWeekOverview(t *testing.T) {
	start := time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC)
	fake := &fakeCalendar{
		events: map[string][]calendar.Event{
			"primary": {{ID: "e1", Title: "Review", Start: start, End: start.Add(time.Hour)}},
		},
	}
	r, _ := newTestRegistry(t, fake, testNow)

	out := dispatch(t, r, "get_week_overview", `{}`)

	require.Equal(t, true, out["success"])
	assert.Equal(t, "2025-03-10", out["week_start"])
	days := out["days"].(map[string]any)
	require.Len(t, days, 7)
	assert.Equal(t, "- 09:00 AM: Review (1h)", days["Thursday, March 13"])
	assert.Equal(t, "No events scheduled.", days["Monday, March 10"])
}

func TestCalendarRegistration(t *testing.T) {
	fake := &fakeCalendar{
		calendars: []calendar.CalendarInfo{
			{ID: "primary", Summary: "Me", Primary: true, AccessRole: "owner"},
			{ID: "team@example.com", Summary: "Team", AccessRole: "reader"},
		},
	}
	r, _ := newTestRegistry(t, fake, testNow)

	out := dispatch(t, r, "list_google_calendars", `{}`)
	require.Equal(t, true, out["success"])
	cals := out["calendars"].([]any)
	require.Len(t, cals, 2)
	first := cals[0].(map[string]any)
	assert.Equal(t, true, first["primary"])
	assert.Equal(t, true, first["writable"])

	out = dispatch(t, r, "add_calendar",
		`{"name": "Team", "google_calendar_id": "team@example.com", "permission": "read"}`)
	require.Equal(t, true, out["success"])
	assert.Equal(t, "Added calendar 'Team' with read access", out["message"])

	added := out["calendar"].(map[string]any)
	id := int64(added["id"].(float64))

	out = dispatch(t, r, "remove_calendar", fmt.Sprintf(`{"calendar_id": %d}`, id))
	require.Equal(t, true, out["success"])

	out = dispatch(t, r, "remove_calendar", fmt.Sprintf(`{"calendar_id": %d}`, id))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, ErrorKindNotFound, out["error_kind"])
}

func TestKnowledgeLifecycle(t *testing.T) {
	r, _ := newTestRegistry(t, &fakeCalendar{}, testNow)

	out := dispatch(t, r, "save_knowledge",
		`{"category": "people", "subject": "manager", "content": "Prefers morning 1:1s"}`)
	require.Equal(t, true, out["success"])
	assert.Equal(t, "Saved knowledge about 'manager'", out["message"])
	id := int64(out["id"].(float64))

	out = dispatch(t, r, "get_knowledge", `{"query": "manager"}`)
	require.Equal(t, true, out["success"])
	assert.Equal(t, float64(1), out["count"])

	out = dispatch(t, r, "update_knowledge",
		fmt.Sprintf(`{"knowledge_id": %d, "content": "Prefers afternoon 1:1s"}`, id))
	require.Equal(t, true, out["success"])

	out = dispatch(t, r, "get_knowledge", `{"query": "afternoon"}`)
	assert.Equal(t, float64(1), out["count"])
}

func TestSaveKnowledgeRejectsBadCategory(t *testing.T) {
	r, _ := newTestRegistry(t, &fakeCalendar{}, testNow)

	out := dispatch(t, r, "save_knowledge",
		`{"category": "gossip", "subject": "x", "content": "y"}`)

	assert.Equal(t, false, out["success"])
	assert.Equal(t, ErrorKindInvalidArguments, out["error_kind"])
}

func TestEnumArgumentsRejectedBeforeExecution(t *testing.T) {
	r, db := newTestRegistry(t, &fakeCalendar{}, testNow)

	tests := []struct {
		name string
		tool string
		args string
	}{
		{"add_todo priority", "add_todo", `{"title": "buy milk", "priority": "urgent"}`},
		{"update_todo priority", "update_todo", `{"todo_id": 1, "priority": "urgent"}`},
		{"add_calendar permission", "add_calendar",
			`{"name": "Work", "google_calendar_id": "primary", "permission": "admin"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := dispatch(t, r, tt.tool, tt.args)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, ErrorKindInvalidArguments, out["error_kind"])
		})
	}

	// Nothing was persisted by the rejected calls.
	todos, err := db.ListTodos(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, todos)
	cals, err := db.ListCalendars(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cals)
}

func TestAddInstruction(t *testing.T) {
	r, db := newTestRegistry(t, &fakeCalendar{}, testNow)

	out := dispatch(t, r, "add_instruction",
		`{"category": "scheduling", "instruction": "Never book over lunch"}`)

	require.Equal(t, true, out["success"])
	instructions, err := db.InstructionsByCategory(context.Background(), "scheduling")
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	assert.Equal(t, "ai_learned", instructions[0].Source)
}

func TestAddSchedulingRule(t *testing.T) {
	r, db := newTestRegistry(t, &fakeCalendar{}, testNow)

	out := dispatch(t, r, "add_scheduling_rule",
		`{"rule_type": "constraint", "name": "No early meetings", "config": {"before_hour": 10}}`)

	require.Equal(t, true, out["success"])
	rules, err := db.SchedulingRulesByType(context.Background(), "constraint")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.JSONEq(t, `{"before_hour": 10}`, string(rules[0].Config))
}

func TestTodoLifecycle(t *testing.T) {
	r, _ := newTestRegistry(t, &fakeCalendar{}, testNow)

	out := dispatch(t, r, "add_todo",
		`{"title": "File taxes", "priority": "high", "due_date": "2025-04-15"}`)
	require.Equal(t, true, out["success"])
	assert.Equal(t, "Added 'File taxes' to your to-do list, due Tuesday, April 15", out["message"])
	todo := out["todo"].(map[string]any)
	id := int64(todo["id"].(float64))

	out = dispatch(t, r, "get_todos", `{}`)
	assert.Equal(t, float64(1), out["count"])

	out = dispatch(t, r, "update_todo", fmt.Sprintf(`{"todo_id": %d, "completed": true}`, id))
	require.Equal(t, true, out["success"])
	assert.Equal(t, "Marked 'File taxes' as completed", out["message"])

	// Completed items drop out of the default listing.
	out = dispatch(t, r, "get_todos", `{}`)
	assert.Equal(t, float64(0), out["count"])
	out = dispatch(t, r, "get_todos", `{"include_completed": true}`)
	assert.Equal(t, float64(1), out["count"])

	out = dispatch(t, r, "delete_todo", fmt.Sprintf(`{"todo_id": %d}`, id))
	require.Equal(t, true, out["success"])

	out = dispatch(t, r, "update_todo", fmt.Sprintf(`{"todo_id": %d, "title": "x"}`, id))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Todo with ID "+fmt.Sprint(id)+" not found", out["error"])
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{fmt.Errorf("googleapi: rate limit exceeded"), ErrorKindRateLimited},
		{fmt.Errorf("quota exceeded for project"), ErrorKindRateLimited},
		{fmt.Errorf("invalid credentials"), ErrorKindAuth},
		{fmt.Errorf("request unauthorized"), ErrorKindAuth},
		{fmt.Errorf("calendar \"x\" not found"), ErrorKindNotFound},
		{fmt.Errorf("connection reset by peer"), ErrorKindCollaborator},
		{invalidArgs("bad input"), ErrorKindInvalidArguments},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, classifyError(tc.err), "error: %v", tc.err)
	}
}
