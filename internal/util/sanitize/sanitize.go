// Package sanitize turns novel and chapter titles into safe file names.
//
// Titles come from the API in Russian, English or Japanese and may carry
// characters that are path separators, reserved on Windows, or invisible
// Unicode punctuation.
package sanitize

import (
	"regexp"
	"strings"
)

// reservedChars matches characters that cannot appear in file names on at
// least one supported platform.
var reservedChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// multiSpace collapses whitespace runs left behind by removals.
var multiSpace = regexp.MustCompile(`[ \t]+`)

// FileName converts an arbitrary title into a usable file name. An empty or
// fully-stripped title becomes fallback.
func FileName(title, fallback string) string {
	s := removeInvisibleChars(title)
	s = reservedChars.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	// Windows rejects trailing dots and spaces.
	s = strings.Trim(s, " .")
	if s == "" {
		return fallback
	}
	return s
}

// removeInvisibleChars removes zero-width and other invisible Unicode
// characters.
func removeInvisibleChars(s string) string {
	invisibleChars := []string{
		"​", // Zero-width space
		"‌", // Zero-width non-joiner
		"‍", // Zero-width joiner
		"\uFEFF", // Zero-width no-break space (BOM)
		"­", // Soft hyphen
		"⁠", // Word joiner
		"᠎", // Mongolian vowel separator
	}
	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}
