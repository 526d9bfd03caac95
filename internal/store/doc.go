// Package store provides SQLite-backed persistence for the planner:
// conversations and messages, knowledge entries, assistant instructions,
// scheduling rules, calendar configuration, task history and todos.
//
// The schema is owned by the application and applied on Open.
package store
