// Package logging wraps log/slog with the handlers and attribute
// conventions used across the engine: a console handler emitting
// key=value lines, a JSON handler for machine consumption, and helpers
// that derive standard fields (run id, series, episode, stage) from
// context.
package logging
