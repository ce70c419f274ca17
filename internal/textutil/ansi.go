package textutil

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes SGR color sequences from s.
func StripANSI(s string) string {
	if s == "" {
		return s
	}
	return ansiPattern.ReplaceAllString(s, "")
}

var titleCaser = cases.Title(language.English)

// DisplayStatus renders a lowercase status identifier as a title-cased label.
func DisplayStatus(status string) string {
	return titleCaser.String(status)
}
