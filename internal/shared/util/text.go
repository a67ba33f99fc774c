package util

import "unicode/utf8"

// TruncateRunes returns the longest prefix of s holding at most limit code points.
// A non-positive limit returns s unchanged.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
