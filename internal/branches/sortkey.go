package branches

import (
	"strconv"
	"strings"
)

// numberSegment is one dot/dash/underscore-separated piece of a chapter
// number. Numeric segments compare numerically ("10" after "9"); anything
// unparseable falls back to string comparison.
type numberSegment struct {
	num     int
	text    string
	numeric bool
}

// parseNumberKey splits a chapter number like "12.5" or "3-1" into
// comparable segments.
func parseNumberKey(number string) []numberSegment {
	if number == "" {
		number = "0"
	}
	parts := strings.FieldsFunc(number, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
	if len(parts) == 0 {
		parts = []string{number}
	}

	key := make([]numberSegment, len(parts))
	for i, part := range parts {
		if n, err := strconv.Atoi(part); err == nil {
			key[i] = numberSegment{num: n, numeric: true}
		} else {
			key[i] = numberSegment{text: part}
		}
	}
	return key
}

// compareNumberKeys orders two parsed number keys segment by segment.
// Numeric segments sort before textual ones; a key that is a prefix of
// another sorts first ("3" before "3.5").
func compareNumberKeys(a, b []numberSegment) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareSegments(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func compareSegments(a, b numberSegment) int {
	switch {
	case a.numeric && b.numeric:
		return a.num - b.num
	case a.numeric:
		return -1
	case b.numeric:
		return 1
	default:
		return strings.Compare(a.text, b.text)
	}
}
