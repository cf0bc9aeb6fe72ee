// Package logging builds the slog loggers used across galley.
//
// It provides a console handler that renders compact key=value lines with a
// leading component prefix, a JSON handler for machine consumption, helpers
// for standardized attribute keys, and age-based log file retention. Level
// and format come from the [logging] config section.
package logging
