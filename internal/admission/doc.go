// Package admission decides whether a submitted URL may join the queue.
//
// Checks run in a fixed order and the first failure wins: URL prefix, target
// directory, format label, queued duplicates, files already on disk, and
// finally the download archive. The checker never mutates anything; the
// filesystem is reached only through the FileProbe and ArchiveProbe
// interfaces so callers and tests can substitute their own.
package admission
