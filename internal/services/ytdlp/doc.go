// Package ytdlp mediates access to the yt-dlp CLI used to fetch videos.
//
// It builds the per-job argument list (format selector, download archive,
// home and temp paths, output template, configured extra arguments), streams
// every output line to a progress callback, and classifies non-zero exits as
// download faults carrying the exit code and the last line yt-dlp printed.
//
// Prefer this package over ad-hoc exec.Command usage when invoking yt-dlp so
// argument construction and fault reporting remain consistent.
package ytdlp
