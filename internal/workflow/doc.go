// Package workflow runs the download queue.
//
// Engine owns a single worker goroutine that sleeps until signalled, then
// drains waiting jobs in submission order: mark running, download through
// yt-dlp, post-process, and record done or error. A random pause separates
// consecutive downloads. Stop is cooperative: the worker notices cancellation
// between jobs and during pauses, but an in-flight download always runs to
// completion.
//
// Presentation layers observe progress through the Observer interface.
// EventStream adapts it to a buffered channel that a separate goroutine can
// consume without ever blocking the worker on progress chatter.
package workflow
