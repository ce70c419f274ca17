// Package daemon coordinates the long-running ytqueue process.
//
// It wires configuration, the in-memory queue store, the SQLite journal, the
// admission checker, and the workflow engine into a single lifecycle with
// flock-based locking to prevent multiple instances. An event relay consumes
// the engine's observer stream: it logs every event, mirrors status changes
// into the journal, and forwards failures and queue-empty summaries to the
// notifier.
//
// Keep orchestration logic here: admission rules, download execution, and
// post-processing live in their own packages while the daemon focuses on
// startup, shutdown, and the client-facing operations served over IPC.
package daemon
