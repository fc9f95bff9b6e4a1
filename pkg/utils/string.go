package utils

import "unicode/utf8"

// Truncate shortens s to at most maxLen bytes followed by "...", cutting on a
// rune boundary so multi-byte text stays valid UTF-8.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
