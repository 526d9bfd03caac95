package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TaskRecord captures a scheduled task for pattern learning.
type TaskRecord struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	DurationMinutes int       `json:"duration_minutes"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	Completed       bool      `json:"completed"`
	GoogleEventID   string    `json:"google_event_id"`
	CalendarName    string    `json:"calendar_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// AddTaskRecord records a scheduled task.
func (db *DB) AddTaskRecord(ctx context.Context, title, category string, durationMinutes int, scheduledAt time.Time, googleEventID, calendarName string) (*TaskRecord, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO task_history (title, category, duration_minutes, scheduled_at, google_event_id, calendar_name)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, nullString(category), durationMinutes, scheduledAt, nullString(googleEventID), nullString(calendarName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	var t TaskRecord
	var category2, eventID, calName sql.NullString
	err = db.QueryRowContext(ctx,
		`SELECT id, title, category, duration_minutes, scheduled_at, completed, google_event_id, calendar_name, created_at
		 FROM task_history WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.Title, &category2, &t.DurationMinutes, &t.ScheduledAt, &t.Completed, &eventID, &calName, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Category = category2.String
	t.GoogleEventID = eventID.String
	t.CalendarName = calName.String
	return &t, nil
}

// RecentTaskRecords returns the most recently scheduled tasks.
func (db *DB) RecentTaskRecords(ctx context.Context, limit int) ([]TaskRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, title, category, duration_minutes, scheduled_at, completed, google_event_id, calendar_name, created_at
		 FROM task_history ORDER BY scheduled_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskRecord
	for rows.Next() {
		var t TaskRecord
		var category, eventID, calName sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &category, &t.DurationMinutes, &t.ScheduledAt, &t.Completed, &eventID, &calName, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Category = category.String
		t.GoogleEventID = eventID.String
		t.CalendarName = calName.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkTaskCompleted flags a task record as done.
func (db *DB) MarkTaskCompleted(ctx context.Context, id int64) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE task_history SET completed = 1 WHERE id = ?`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark task completed: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
