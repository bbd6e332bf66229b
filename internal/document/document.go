// Package document holds the vocabulary shared by invoices and credit notes.
package document

import (
	"strings"
	"time"
)

type DocType string

const (
	DocTypeInvoice    DocType = "invoice"
	DocTypeCreditNote DocType = "credit_note"
)

func (t DocType) Valid() bool {
	return t == DocTypeInvoice || t == DocTypeCreditNote
}

type Status string

const (
	StatusDraft  Status = "draft"
	StatusIssued Status = "issued"
	StatusPaid   Status = "paid"
	StatusVoid   Status = "void"
)

var transitions = map[Status][]Status{
	StatusDraft:  {StatusIssued},
	StatusIssued: {StatusPaid, StatusVoid},
}

// CanTransition reports whether a document may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a status change.
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// Numbered reports whether a document in this status carries a number.
func (s Status) Numbered() bool {
	return s == StatusIssued || s == StatusPaid || s == StatusVoid
}

// Numbering is the immutable identity a document receives on issuance.
type Numbering struct {
	Series string
	Year   int
	Number int64
	Code   string
}

// DisplayNumber is shown in listings and PDFs. Drafts have no number yet.
func DisplayNumber(status Status, code string) string {
	if status == StatusDraft || strings.TrimSpace(code) == "" {
		return "DRAFT"
	}
	return code
}

// Date truncates t to its UTC calendar date.
func Date(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(field, value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, NewValidationError(field, "invalid_"+field, "invalid date, expected YYYY-MM-DD")
	}
	return parsed, nil
}
