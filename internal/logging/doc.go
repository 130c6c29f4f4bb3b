// Package logging wires log/slog with the handlers and field conventions
// used across the daemon: a JSON handler for machine consumption and a
// compact console handler for interactive use, plus typed attribute
// helpers and context-derived fields.
package logging
