// Package utils provides shared helpers for logging and text output.
package utils

// Truncate returns s cut to maxLen runes with "..." appended when it was longer.
// A maxLen of 0 or less returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
