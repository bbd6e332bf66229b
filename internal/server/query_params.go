package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/AdrianPopi/acont/internal/document"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalInt(field, value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < 0 {
		return 0, newValidationError(field, "invalid_"+field, field+" must be a positive integer")
	}
	return parsed, nil
}

// parseOptionalDate reads a YYYY-MM-DD query value.
func parseOptionalDate(field, value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := document.ParseDate(field, trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
