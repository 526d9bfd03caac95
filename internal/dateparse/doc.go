// Package dateparse resolves the small, fixed vocabulary of natural-language
// date and time preferences that drive the availability engine and the to-do
// tools: weekday names, "today"/"tomorrow"/"next week", and the
// morning/afternoon/evening time-of-day windows. Anything outside this
// vocabulary is the model's responsibility to express as an ISO timestamp.
package dateparse
