// Package availability implements the constrained interval-scheduling engine
// that finds free calendar slots.
//
// The engine walks a date range day by day, computes the permitted work
// window for each day (base work hours, optional extended hours, per-request
// hour clamps, hard deadline), clips the global busy list to that window and
// sweeps left to right emitting gaps large enough for the requested duration.
//
// Busy intervals are deliberately not pre-merged: the sweep advances its
// cursor with max(cursor, busyEnd), which handles interleaved and overlapping
// busy sets and yields the same slot boundaries an explicit merge would.
//
// The engine is stateless and never mutates caller-supplied data, so a single
// instance is safe for concurrent use.
package availability
