// Package calendar wraps the Google Calendar API for the planner.
//
// It exposes free/busy lookups as interval lists for the availability
// engine, day and week schedule queries for the assistant, and event
// creation for scheduled tasks. The Service interface allows tests to
// substitute a fake without touching the Google API.
package calendar
