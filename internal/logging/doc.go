// Package logging assembles structured slog loggers and formatting helpers used
// across the ytqueue daemon and CLI.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so engine code automatically tags log lines
// with job IDs, video IDs, and correlation IDs. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
