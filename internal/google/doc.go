// Package google handles OAuth2 token management for the Google Calendar API.
//
// Tokens can be supplied two ways: a base64-encoded token JSON blob in the
// environment (suited for containerized deployments) or a token file on disk.
package google
