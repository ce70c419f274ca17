// Package postprocess tidies the files yt-dlp leaves behind for a video.
//
// It derives a display title from the downloaded file name, normalizes that
// title, fixes up the description sidecar, and renames the related files
// (description suffix, thumbnail marker, subtitle language separator). Each
// file is handled independently: a failure on one is recorded as a fault and
// the rest are still processed.
package postprocess
