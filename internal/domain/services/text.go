package services

import "unicode/utf8"

// ellipsis marks text that was cut short.
const ellipsis = "…"

// truncateRunes returns at most n characters of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// truncateWithMarker caps s to n characters and appends "…" only when it cut something.
func truncateWithMarker(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return truncateRunes(s, n) + ellipsis
}
