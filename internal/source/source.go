// Package source interprets the YouTube URLs accepted by the queue.
//
// Identity is deliberately simple: the video id is the trailing eleven
// characters of the URL, which holds for watch URLs once the query string
// after the first '&' has been removed.
package source

import (
	"strings"
	"unicode/utf8"
)

// VideoIDLength is the length of a YouTube video id.
const VideoIDLength = 11

// HasPrefix reports whether url starts with the accepted prefix.
func HasPrefix(url, prefix string) bool {
	return prefix != "" && strings.HasPrefix(url, prefix)
}

// CleanURL trims whitespace and drops everything from the first '&'.
func CleanURL(url string) string {
	url = strings.TrimSpace(url)
	if idx := strings.IndexByte(url, '&'); idx >= 0 {
		url = url[:idx]
	}
	return url
}

// VideoID returns the last eleven characters of url, or the whole url when it
// is shorter.
func VideoID(url string) string {
	if utf8.RuneCountInString(url) <= VideoIDLength {
		return url
	}
	runes := []rune(url)
	return string(runes[len(runes)-VideoIDLength:])
}

// ArchiveEntry returns the download archive line recorded for id.
func ArchiveEntry(id string) string {
	return "youtube " + id
}
