package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultNumberTemplate renders the sequence as six zero-padded digits.
const DefaultNumberTemplate = "{SEQ6}"

// FormatNumber renders a document code from a template, the issue date, the
// document series and the allocated sequence number.
//
// Supported tokens: {YYYY} {YY} {MM} {DD} {SERIES} {SEQ} {SEQn}.
func FormatNumber(template string, issuedAt time.Time, series string, seq int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid document sequence: %d", seq)
	}

	var b strings.Builder
	rest := template
	for rest != "" {
		open := strings.IndexAny(rest, "{}")
		if open < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:open])
		if rest[open] == '}' {
			return "", fmt.Errorf("unbalanced brace in number template %q", template)
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("unbalanced brace in number template %q", template)
		}
		token := rest[open+1 : open+end]
		value, err := resolveToken(token, issuedAt, series, seq)
		if err != nil {
			return "", err
		}
		b.WriteString(value)
		rest = rest[open+end+1:]
	}
	return b.String(), nil
}

func resolveToken(token string, issuedAt time.Time, series string, seq int64) (string, error) {
	switch token {
	case "YYYY":
		return issuedAt.Format("2006"), nil
	case "YY":
		return issuedAt.Format("06"), nil
	case "MM":
		return issuedAt.Format("01"), nil
	case "DD":
		return issuedAt.Format("02"), nil
	case "SERIES":
		return strings.TrimSpace(series), nil
	case "SEQ":
		return strconv.FormatInt(seq, 10), nil
	}
	if digits, ok := strings.CutPrefix(token, "SEQ"); ok {
		width, err := strconv.Atoi(digits)
		if err == nil && width > 0 && width <= 18 {
			return fmt.Sprintf("%0*d", width, seq), nil
		}
	}
	return "", fmt.Errorf("unknown token {%s} in number template", token)
}

// ValidateTemplate checks a template renders with a sample sequence.
func ValidateTemplate(template string) error {
	_, err := FormatNumber(template, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), "X", 1)
	return err
}
