// Package services defines shared utilities consumed by the download engine,
// the admission gate and the daemon.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, video IDs, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures as
//     admission rejections, download faults, or post-processing faults.
//
// Use these helpers when adding new queue operations so error reporting and
// log fields stay uniform between the daemon, IPC, and CLI.
package services
