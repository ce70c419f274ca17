// Package preflight provides readiness checks for the binaries, directories,
// and notification endpoint that ytqueue depends on.
//
// The CLI "ytqueue preflight" command runs RunAll and renders each Result as
// a table row; "ytqueue status" reuses the individual checks when the daemon
// is offline. Optional features are skipped when not configured.
package preflight
