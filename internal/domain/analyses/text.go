package analyses

import (
	"strings"
	"unicode/utf8"
)

// Column widths of the narrowest backend (mysql), counted in characters.
const (
	MaxFilenameLen   = 512
	MaxStateLen      = 64
	MaxPolicyTypeLen = 128
	MaxIDLen         = 64
)

// CleanText drops NUL bytes and replaces invalid UTF-8. Postgres rejects both
// in TEXT and JSONB columns.
func CleanText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// TooLong reports whether s holds more than limit characters.
func TooLong(s string, limit int) bool {
	return utf8.RuneCountInString(s) > limit
}

// Truncate cuts s to at most limit characters.
func Truncate(s string, limit int) string {
	if !TooLong(s, limit) {
		return s
	}
	return string([]rune(s)[:limit])
}

func cleanList(items []string) []string {
	if items == nil {
		return []string{}
	}
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = CleanText(s)
	}
	return out
}

func (v *Value) clean() { *v = Value(CleanText(string(*v))) }
