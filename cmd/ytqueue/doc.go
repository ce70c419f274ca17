// Package main hosts the ytqueue CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into IPC calls against
// the daemon: submitting and checking URLs, listing and resetting jobs,
// compacting finished work, and tailing the daemon log. Configuration
// resolution and socket discovery live in commandContext so subcommands only
// deal with presentation.
//
// New behavior belongs in the internal packages first; commands here should
// stay thin wrappers around the daemon's IPC surface.
package main
