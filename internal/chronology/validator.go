// Package chronology enforces date ordering rules for issued documents.
package chronology

import (
	"fmt"
	"time"

	"github.com/AdrianPopi/acont/internal/clock"
	"github.com/AdrianPopi/acont/internal/document"
)

type InvoiceDates struct {
	IssueDate time.Time
	DueDate   *time.Time
}

type Validator struct {
	clock clock.Clock
}

func New(c clock.Clock) *Validator {
	return &Validator{clock: c}
}

// ValidateInvoice checks an invoice against today and against the latest
// issued invoice of the same merchant. Dates are compared as calendar days.
func (v *Validator) ValidateInvoice(dates InvoiceDates, lastIssued *time.Time) error {
	issue := document.Date(dates.IssueDate)
	if err := v.notInFuture(issue); err != nil {
		return err
	}
	if lastIssued != nil {
		last := document.Date(*lastIssued)
		if issue.Before(last) {
			return &document.ChronologyViolation{
				Rule:    document.RuleBeforeLastIssued,
				Date:    last,
				Message: fmt.Sprintf("Issue date cannot be before last issued invoice date (%s)", last.Format(document.DateLayout)),
			}
		}
	}
	if dates.DueDate != nil {
		due := document.Date(*dates.DueDate)
		if due.Before(issue) {
			return &document.ChronologyViolation{
				Rule:    document.RuleDueBeforeIssue,
				Date:    issue,
				Message: "Due date cannot be before issue date",
			}
		}
	}
	return nil
}

// ValidateCreditNote checks a credit note against today, its source invoice
// and the latest issued credit note of the same merchant.
func (v *Validator) ValidateCreditNote(issueDate, sourceIssueDate time.Time, lastIssued *time.Time) error {
	issue := document.Date(issueDate)
	if err := v.notInFuture(issue); err != nil {
		return err
	}
	source := document.Date(sourceIssueDate)
	if issue.Before(source) {
		return &document.ChronologyViolation{
			Rule:    document.RuleBeforeSourceIssue,
			Date:    source,
			Message: fmt.Sprintf("Credit note date cannot be before invoice issue date (%s)", source.Format(document.DateLayout)),
		}
	}
	if lastIssued != nil {
		last := document.Date(*lastIssued)
		if issue.Before(last) {
			return &document.ChronologyViolation{
				Rule:    document.RuleBeforeLastIssued,
				Date:    last,
				Message: fmt.Sprintf("Issue date cannot be before last issued credit note date (%s)", last.Format(document.DateLayout)),
			}
		}
	}
	return nil
}

func (v *Validator) notInFuture(issue time.Time) error {
	today := clock.Today(v.clock)
	if issue.After(today) {
		return &document.ChronologyViolation{
			Rule:    document.RuleFutureDate,
			Date:    today,
			Message: "Issue date cannot be in the future",
		}
	}
	return nil
}
