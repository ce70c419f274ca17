// Package queue holds download jobs and the rules for moving them through
// their lifecycle.
//
// Store is the in-memory source of truth: an ordered, mutex-guarded slice
// that hands out copies so callers never share internal pointers. Every status
// change goes through Transition, which enforces the waiting -> running ->
// done|error machine plus the manual error -> waiting reset.
//
// Journal mirrors jobs into SQLite so the queue survives daemon restarts. It
// is write-behind storage rather than an authority; on load, jobs that were
// mid-download are surfaced as errors so the user can decide to reset them.
// The schema version lives in PRAGMA user_version; an incompatible journal
// is rejected with ErrSchemaMismatch and must be deleted by hand.
package queue
