package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Todo priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Todo is a quick task that can be scheduled onto the calendar later.
type Todo struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Priority         string     `json:"priority"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
	Completed        bool       `json:"completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ScheduledEventID string     `json:"scheduled_event_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TodoUpdate carries the fields of a partial todo update. Nil fields are
// left untouched.
type TodoUpdate struct {
	Title            *string
	Description      *string
	Priority         *string
	StartDate        *time.Time
	DueDate          *time.Time
	EstimatedMinutes *int
	Completed        *bool
	ScheduledEventID *string
}

// AddTodo creates a todo item. Priority defaults to medium.
func (db *DB) AddTodo(ctx context.Context, title, description, priority string, startDate, dueDate *time.Time, estimatedMinutes *int) (*Todo, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	if priority != PriorityHigh && priority != PriorityMedium && priority != PriorityLow {
		return nil, fmt.Errorf("invalid todo priority %q", priority)
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO todo_items (title, description, priority, start_date, due_date, estimated_minutes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, nullString(description), priority, nullTime(startDate), nullTime(dueDate), nullInt(estimatedMinutes),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetTodo(ctx, id)
}

// GetTodo returns a todo by id, or nil, nil if not found.
func (db *DB) GetTodo(ctx context.Context, id int64) (*Todo, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, title, description, priority, start_date, due_date, estimated_minutes,
		        completed, completed_at, scheduled_event_id, created_at, updated_at
		 FROM todo_items WHERE id = ?`,
		id,
	)
	todo, err := scanTodo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return todo, nil
}

// ListTodos returns todos, optionally filtered by completion state. Items
// are ordered open first, then by priority and due date; undated items
// sort last within a priority.
func (db *DB) ListTodos(ctx context.Context, completed *bool) ([]Todo, error) {
	query := `SELECT id, title, description, priority, start_date, due_date, estimated_minutes,
	                 completed, completed_at, scheduled_event_id, created_at, updated_at
	          FROM todo_items`
	var args []any
	if completed != nil {
		query += ` WHERE completed = ?`
		args = append(args, boolToInt(*completed))
	}
	query += ` ORDER BY completed,
	             CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
	             due_date IS NULL, due_date, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *todo)
	}
	return out, rows.Err()
}

// UpdateTodo applies a partial update. Marking an item completed stamps
// completed_at; clearing completion clears it.
func (db *DB) UpdateTodo(ctx context.Context, id int64, update TodoUpdate) (*Todo, error) {
	existing, err := db.GetTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	set := ""
	var args []any
	add := func(clause string, value any) {
		if set != "" {
			set += ", "
		}
		set += clause
		args = append(args, value)
	}

	if update.Title != nil {
		add("title = ?", *update.Title)
	}
	if update.Description != nil {
		add("description = ?", nullString(*update.Description))
	}
	if update.Priority != nil {
		if *update.Priority != PriorityHigh && *update.Priority != PriorityMedium && *update.Priority != PriorityLow {
			return nil, fmt.Errorf("invalid todo priority %q", *update.Priority)
		}
		add("priority = ?", *update.Priority)
	}
	if update.StartDate != nil {
		add("start_date = ?", *update.StartDate)
	}
	if update.DueDate != nil {
		add("due_date = ?", *update.DueDate)
	}
	if update.EstimatedMinutes != nil {
		add("estimated_minutes = ?", *update.EstimatedMinutes)
	}
	if update.ScheduledEventID != nil {
		add("scheduled_event_id = ?", nullString(*update.ScheduledEventID))
	}
	if update.Completed != nil {
		add("completed = ?", boolToInt(*update.Completed))
		if *update.Completed && !existing.Completed {
			add("completed_at = ?", time.Now().UTC())
		} else if !*update.Completed {
			add("completed_at = ?", nil)
		}
	}

	if set == "" {
		return existing, nil
	}

	set += ", updated_at = CURRENT_TIMESTAMP"
	args = append(args, id)

	if _, err := db.ExecContext(ctx, "UPDATE todo_items SET "+set+" WHERE id = ?", args...); err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	return db.GetTodo(ctx, id)
}

// DeleteTodo removes a todo item.
func (db *DB) DeleteTodo(ctx context.Context, id int64) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM todo_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete todo: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*Todo, error) {
	var t Todo
	var description, eventID sql.NullString
	var startDate, dueDate, completedAt sql.NullTime
	var estimated sql.NullInt64

	err := row.Scan(&t.ID, &t.Title, &description, &t.Priority, &startDate, &dueDate, &estimated,
		&t.Completed, &completedAt, &eventID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.ScheduledEventID = eventID.String
	if startDate.Valid {
		t.StartDate = &startDate.Time
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if estimated.Valid {
		v := int(estimated.Int64)
		t.EstimatedMinutes = &v
	}
	return &t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
