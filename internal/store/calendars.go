package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Calendar permissions.
const (
	PermissionRead      = "read"
	PermissionReadWrite = "read_write"
)

// Calendar is a Google calendar registered with the planner.
type Calendar struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	GoogleCalendarID string    `json:"google_calendar_id"`
	Permission       string    `json:"permission"`
	Color            string    `json:"color"`
	Priority         int       `json:"priority"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Writable reports whether the planner may create events on this calendar.
func (c Calendar) Writable() bool {
	return c.Permission == PermissionReadWrite
}

// AddCalendar registers a calendar. Priority defaults to 5 when zero.
func (db *DB) AddCalendar(ctx context.Context, name, googleCalendarID, permission, color string, priority int) (*Calendar, error) {
	if permission != PermissionRead && permission != PermissionReadWrite {
		return nil, fmt.Errorf("invalid calendar permission %q", permission)
	}
	if priority == 0 {
		priority = 5
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO calendars (name, google_calendar_id, permission, color, priority) VALUES (?, ?, ?, ?, ?)`,
		name, googleCalendarID, permission, color, priority,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert calendar: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.getCalendar(ctx, id)
}

func (db *DB) getCalendar(ctx context.Context, id int64) (*Calendar, error) {
	var c Calendar
	var color sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, google_calendar_id, permission, color, priority, created_at, updated_at
		 FROM calendars WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Name, &c.GoogleCalendarID, &c.Permission, &color, &c.Priority, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Color = color.String
	return &c, nil
}

// ListCalendars returns all active calendars ordered by priority.
func (db *DB) ListCalendars(ctx context.Context) ([]Calendar, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, google_calendar_id, permission, color, priority, created_at, updated_at
		 FROM calendars WHERE active = 1 ORDER BY priority, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Calendar
	for rows.Next() {
		var c Calendar
		var color sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.GoogleCalendarID, &c.Permission, &color, &c.Priority, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Color = color.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCalendarByName finds an active calendar by name (substring match).
// Returns nil, nil when no calendar matches.
func (db *DB) GetCalendarByName(ctx context.Context, name string) (*Calendar, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM calendars WHERE active = 1 AND name LIKE ? ORDER BY priority LIMIT 1`,
		"%"+name+"%",
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return db.getCalendar(ctx, id)
}

// RemoveCalendar soft-deletes a calendar.
func (db *DB) RemoveCalendar(ctx context.Context, id int64) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE calendars SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND active = 1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove calendar: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
