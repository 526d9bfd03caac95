package calendar

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/hcdonia/planner-app/internal/google"
	"github.com/hcdonia/planner-app/internal/instrumentation"
	"github.com/hcdonia/planner-app/internal/interval"
)

// Service is the calendar surface the planner depends on. Tests substitute
// a fake implementation.
type Service interface {
	FetchBusy(timeMin, timeMax time.Time, calendarIDs []string) ([]interval.Interval, error)
	GetEvents(calendarID string, timeMin, timeMax time.Time) ([]Event, error)
	GetDaySchedule(calendarIDs []string, day time.Time) ([]Event, error)
	GetWeekOverview(calendarIDs []string, ref time.Time) ([]DaySchedule, error)
	CreateEvent(calendarID string, input EventInput) (*Event, error)
	UpdateEvent(calendarID, eventID string, input EventInput) (*Event, error)
	DeleteEvent(calendarID, eventID string) error
	ListCalendars() ([]CalendarInfo, error)
}

// Client wraps the Google Calendar service.
type Client struct {
	svc     *calendar.Service
	loc     *time.Location
	metrics *instrumentation.Metrics
}

var _ Service = (*Client)(nil)

// NewClient creates a Calendar client authenticated via the token source.
// metrics may be nil.
func NewClient(ctx context.Context, ts oauth2.TokenSource, loc *time.Location, metrics *instrumentation.Metrics) (*Client, error) {
	client := oauth2.NewClient(ctx, ts)

	// Force HTTP/1.1 by disabling HTTP/2
	transport := client.Transport.(*oauth2.Transport)
	transport.Base = &http.Transport{
		ForceAttemptHTTP2: false,
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}

	return &Client{svc: svc, loc: loc, metrics: metrics}, nil
}

// NewClientFromConfig builds a client from stored token material.
func NewClientFromConfig(ctx context.Context, tokenPath, tokenBase64 string, loc *time.Location, metrics *instrumentation.Metrics) (*Client, error) {
	ts, err := google.TokenSource(ctx, tokenPath, tokenBase64)
	if err != nil {
		return nil, err
	}
	return NewClient(ctx, ts, loc, metrics)
}

// observe records one Google Calendar API call.
func (c *Client) observe(operation string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordGoogleAPIOperation(context.Background(), instrumentation.ServiceCalendar, operation, status, time.Since(start))
}

// FetchBusy queries free/busy for the given calendars and returns the busy
// intervals sorted by start time. Intervals from different calendars may
// overlap; callers that need disjoint ranges handle that themselves.
func (c *Client) FetchBusy(timeMin, timeMax time.Time, calendarIDs []string) ([]interval.Interval, error) {
	items := make([]*calendar.FreeBusyRequestItem, len(calendarIDs))
	for i, id := range calendarIDs {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}

	query := &calendar.FreeBusyRequest{
		TimeMin: timeMin.Format(time.RFC3339),
		TimeMax: timeMax.Format(time.RFC3339),
		Items:   items,
	}

	start := time.Now()
	result, err := c.svc.Freebusy.Query(query).Do()
	c.observe("freebusy", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	busy := busyIntervals(result, c.loc)
	return busy, nil
}

// busyIntervals flattens a freebusy response into a sorted interval list.
func busyIntervals(result *calendar.FreeBusyResponse, loc *time.Location) []interval.Interval {
	var busy []interval.Interval
	for _, cal := range result.Calendars {
		for _, b := range cal.Busy {
			start, err := time.Parse(time.RFC3339, b.Start)
			if err != nil {
				continue
			}
			end, err := time.Parse(time.RFC3339, b.End)
			if err != nil {
				continue
			}
			iv := interval.New(start.In(loc), end.In(loc))
			if iv.IsValid() {
				busy = append(busy, iv)
			}
		}
	}
	interval.Sort(busy)
	return busy
}

// GetEvents lists the events of one calendar within a time range, expanded
// to single instances and ordered by start time.
func (c *Client) GetEvents(calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	call := c.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	start := time.Now()
	events, err := call.Do()
	c.observe("list_events", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var out []Event
	for _, event := range events.Items {
		if event.Status == "cancelled" {
			continue
		}
		out = append(out, toEvent(event, calendarID, c.loc))
	}
	return out, nil
}

// GetDaySchedule returns the events of a single day across all given
// calendars, sorted by start time. day is interpreted at midnight in the
// client's location.
func (c *Client) GetDaySchedule(calendarIDs []string, day time.Time) ([]Event, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, c.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var all []Event
	for _, id := range calendarIDs {
		events, err := c.GetEvents(id, dayStart, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to get schedule for calendar %s: %w", id, err)
		}
		all = append(all, events...)
	}

	sortEvents(all)
	return all, nil
}

// GetWeekOverview returns one DaySchedule per day for the week containing
// ref, aligned to Monday.
func (c *Client) GetWeekOverview(calendarIDs []string, ref time.Time) ([]DaySchedule, error) {
	monday := MondayOf(ref.In(c.loc))

	week := make([]DaySchedule, 0, 7)
	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i)
		events, err := c.GetDaySchedule(calendarIDs, day)
		if err != nil {
			return nil, err
		}
		week = append(week, DaySchedule{Date: day, Events: events})
	}
	return week, nil
}

// CreateEvent creates an event on the given calendar.
func (c *Client) CreateEvent(calendarID string, input EventInput) (*Event, error) {
	tz := input.TimeZone
	if tz == "" {
		tz = c.loc.String()
	}

	event := &calendar.Event{
		Summary:     input.Title,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: tz,
		},
	}

	start := time.Now()
	created, err := c.svc.Events.Insert(calendarID, event).Do()
	c.observe("create_event", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	ev := toEvent(created, calendarID, c.loc)
	return &ev, nil
}

// UpdateEvent updates an existing event. Zero-valued input fields leave the
// stored values untouched.
func (c *Client) UpdateEvent(calendarID, eventID string, input EventInput) (*Event, error) {
	start := time.Now()
	existing, err := c.svc.Events.Get(calendarID, eventID).Do()
	c.observe("get_event", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing event: %w", err)
	}

	tz := input.TimeZone
	if tz == "" {
		tz = c.loc.String()
	}

	if input.Title != "" {
		existing.Summary = input.Title
	}
	if input.Description != "" {
		existing.Description = input.Description
	}
	if !input.Start.IsZero() {
		existing.Start = &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: tz,
		}
	}
	if !input.End.IsZero() {
		existing.End = &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: tz,
		}
	}

	start = time.Now()
	updated, err := c.svc.Events.Update(calendarID, eventID, existing).Do()
	c.observe("update_event", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	ev := toEvent(updated, calendarID, c.loc)
	return &ev, nil
}

// DeleteEvent deletes an event.
func (c *Client) DeleteEvent(calendarID, eventID string) error {
	start := time.Now()
	err := c.svc.Events.Delete(calendarID, eventID).Do()
	c.observe("delete_event", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// ListCalendars lists all calendars accessible to the user, following
// pagination.
func (c *Client) ListCalendars() ([]CalendarInfo, error) {
	var calendars []CalendarInfo

	pageToken := ""
	for {
		call := c.svc.CalendarList.List()
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		start := time.Now()
		list, err := call.Do()
		c.observe("list_calendars", start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to list calendars: %w", err)
		}

		for _, entry := range list.Items {
			calendars = append(calendars, toCalendarInfo(entry))
		}

		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}

	return calendars, nil
}

// MondayOf returns midnight of the Monday of t's week, in t's location.
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

// sortEvents orders events by start time, all-day events first within a
// shared start.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].AllDay && !events[j].AllDay
		}
		return events[i].Start.Before(events[j].Start)
	})
}
