// Package logging provides structured logging utilities for the planner.
//
// It centralizes attribute naming and logger setup so every component logs
// through slog with consistent keys: the orchestrator tags events with the
// conversation, the tool dispatcher tags the tool name, and collaborator
// clients tag the external service.
package logging
