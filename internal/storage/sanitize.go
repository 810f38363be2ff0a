package storage

import (
	"regexp"
	"strings"
)

var (
	nullEscape    = regexp.MustCompile(`\\u0000`)
	controlEscape = regexp.MustCompile(`\\u00[01][0-9a-fA-F]`)
)

// sanitizeJSONForPostgres drops \u0000 escapes, which JSONB rejects, and
// replaces the remaining control character escapes with a space.
func sanitizeJSONForPostgres(jsonBytes []byte) []byte {
	result := nullEscape.ReplaceAll(jsonBytes, []byte{})
	return controlEscape.ReplaceAllFunc(result, func(m []byte) []byte {
		// tab and newline are common in rendered layouts and are valid
		switch strings.ToLower(string(m)) {
		case `\u0009`, `\u000a`, `\u000d`:
			return m
		}
		return []byte(" ")
	})
}

// stripNulls removes NUL bytes, which TEXT columns reject
func stripNulls(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
