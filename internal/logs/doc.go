// Package logs tails the daemon log file for "ytqueue logs".
//
// A negative offset returns the last Limit lines; a non-negative offset
// returns everything written since. Follow mode polls until new lines arrive
// or Wait elapses, so the CLI can stream by calling Tail repeatedly with the
// returned offset.
package logs
