package document

import (
	"strings"
	"unicode/utf8"
)

// Field length limits applied to free-text document and master data fields.
const (
	MaxNameLen        = 256
	MaxEmailLen       = 256
	MaxTaxIDLen       = 64
	MaxAddressLen     = 512
	MaxNotesLen       = 1024
	MaxItemCodeLen    = 64
	MaxDescriptionLen = 512
)

// Clip trims surrounding whitespace and cuts s to at most max runes.
func Clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}

// FirstNonEmpty returns the first value that is not blank after trimming.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
