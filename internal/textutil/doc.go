// Package textutil provides the text helpers shared by the engine and CLI:
// stripping terminal escape sequences from downloader output and rendering
// status names for display.
package textutil
