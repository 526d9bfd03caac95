// Package config loads the planner's runtime configuration from the
// environment and provides defaults for local development.
package config
