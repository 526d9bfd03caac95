// Package interval provides the half-open time interval model used by the
// availability engine: busy periods fetched from calendars, work windows,
// and the free slots the engine produces are all Intervals.
package interval
