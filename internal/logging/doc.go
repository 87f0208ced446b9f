// Package logging provides slog-based structured logging for tarmac with a
// console handler for interactive use and a JSON handler for log shipping.
// Field-name constants keep event attributes consistent across components.
package logging
