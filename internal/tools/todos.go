package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hcdonia/planner-app/internal/dateparse"
	"github.com/hcdonia/planner-app/internal/store"
)

var todoPriorities = []string{store.PriorityHigh, store.PriorityMedium, store.PriorityLow}

func registerTodoTools(r *Registry) {
	r.register(Definition{
		Name: "add_todo",
		Description: "Add an item to the user's to-do list. Use for tasks that do not need " +
			"a specific calendar slot yet.",
		Schema: ObjectSchema(Properties{
			"title":             {Type: "string", Description: "What needs doing."},
			"description":       {Type: "string", Description: "Optional details."},
			"priority":          {Type: "string", Enum: todoPriorities, Description: "Defaults to medium."},
			"start_date":        {Type: "string", Description: "When work can start. ISO date or natural language like 'tomorrow'."},
			"due_date":          {Type: "string", Description: "When it must be done. ISO date or natural language."},
			"estimated_minutes": {Type: "integer", Description: "Rough time estimate in minutes."},
		}, "title"),
		Handler: handleAddTodo,
	})
	r.register(Definition{
		Name:        "get_todos",
		Description: "List the user's to-do items, most urgent first.",
		Schema: ObjectSchema(Properties{
			"include_completed": {Type: "boolean", Description: "Also return completed items. Defaults to false."},
		}),
		Handler: handleGetTodos,
	})
	r.register(Definition{
		Name:        "update_todo",
		Description: "Update a to-do item: change fields or mark it completed.",
		Schema: ObjectSchema(Properties{
			"todo_id":           {Type: "integer", Description: "ID of the item to update."},
			"title":             {Type: "string", Description: "New title."},
			"description":       {Type: "string", Description: "New description."},
			"priority":          {Type: "string", Enum: todoPriorities},
			"due_date":          {Type: "string", Description: "New due date."},
			"estimated_minutes": {Type: "integer", Description: "New estimate in minutes."},
			"completed":         {Type: "boolean", Description: "Mark done or not done."},
		}, "todo_id"),
		Handler: handleUpdateTodo,
	})
	r.register(Definition{
		Name:        "delete_todo",
		Description: "Delete a to-do item permanently.",
		Schema: ObjectSchema(Properties{
			"todo_id": {Type: "integer", Description: "ID of the item to delete."},
		}, "todo_id"),
		Handler: handleDeleteTodo,
	})
}

func handleAddTodo(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		Title            string `json:"title"`
		Description      string `json:"description"`
		Priority         string `json:"priority"`
		StartDate        string `json:"start_date"`
		DueDate          string `json:"due_date"`
		EstimatedMinutes int    `json:"estimated_minutes"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, invalidArgs("title is required")
	}
	if in.Priority != "" && !oneOf(in.Priority, todoPriorities) {
		return nil, invalidArgs("invalid priority %q", in.Priority)
	}

	now := deps.Now().In(deps.Config.Location())
	startDate, err := optionalDate(in.StartDate, "start_date", now)
	if err != nil {
		return nil, err
	}
	dueDate, err := optionalDate(in.DueDate, "due_date", now)
	if err != nil {
		return nil, err
	}
	var estimate *int
	if in.EstimatedMinutes > 0 {
		estimate = &in.EstimatedMinutes
	}

	todo, err := deps.Store.AddTodo(ctx, in.Title, in.Description, in.Priority, startDate, dueDate, estimate)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"todo":    todo,
		"message": addTodoMessage(todo),
	}, nil
}

// addTodoMessage describes the new item, mentioning dates only when set.
func addTodoMessage(todo *store.Todo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Added '%s' to your to-do list", todo.Title)
	if todo.StartDate != nil {
		fmt.Fprintf(&b, ", starting %s", todo.StartDate.Format("Monday, January 02"))
	}
	if todo.DueDate != nil {
		fmt.Fprintf(&b, ", due %s", todo.DueDate.Format("Monday, January 02"))
	}
	return b.String()
}

// optionalDate parses an optional date argument; empty means unset,
// unparseable is an argument error.
func optionalDate(s, field string, now time.Time) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, ok := dateparse.ParseDateValue(s, now)
	if !ok {
		return nil, invalidArgs("invalid %s %q", field, s)
	}
	return &t, nil
}

func handleGetTodos(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		IncludeCompleted bool `json:"include_completed"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	var filter *bool
	if !in.IncludeCompleted {
		pending := false
		filter = &pending
	}
	todos, err := deps.Store.ListTodos(ctx, filter)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"count":   len(todos),
		"todos":   todos,
	}, nil
}

func handleUpdateTodo(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		TodoID           int64   `json:"todo_id"`
		Title            *string `json:"title"`
		Description      *string `json:"description"`
		Priority         *string `json:"priority"`
		DueDate          *string `json:"due_date"`
		EstimatedMinutes *int    `json:"estimated_minutes"`
		Completed        *bool   `json:"completed"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.TodoID == 0 {
		return nil, invalidArgs("todo_id is required")
	}
	if in.Priority != nil && !oneOf(*in.Priority, todoPriorities) {
		return nil, invalidArgs("invalid priority %q", *in.Priority)
	}

	update := store.TodoUpdate{
		Title:            in.Title,
		Description:      in.Description,
		Priority:         in.Priority,
		EstimatedMinutes: in.EstimatedMinutes,
		Completed:        in.Completed,
	}
	if in.DueDate != nil {
		now := deps.Now().In(deps.Config.Location())
		due, err := optionalDate(*in.DueDate, "due_date", now)
		if err != nil {
			return nil, err
		}
		update.DueDate = due
	}

	todo, err := deps.Store.UpdateTodo(ctx, in.TodoID, update)
	if err != nil {
		return nil, err
	}
	if todo == nil {
		return nil, fmt.Errorf("Todo with ID %d not found", in.TodoID)
	}

	msg := fmt.Sprintf("Updated '%s'", todo.Title)
	if todo.Completed {
		msg = fmt.Sprintf("Marked '%s' as completed", todo.Title)
	}
	return map[string]any{
		"success": true,
		"todo":    todo,
		"message": msg,
	}, nil
}

func handleDeleteTodo(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		TodoID int64 `json:"todo_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.TodoID == 0 {
		return nil, invalidArgs("todo_id is required")
	}

	deleted, err := deps.Store.DeleteTodo(ctx, in.TodoID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, fmt.Errorf("Todo with ID %d not found", in.TodoID)
	}
	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Deleted todo %d", in.TodoID),
	}, nil
}
