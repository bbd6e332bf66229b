package format

import (
	"errors"
	"fmt"
	"strings"
)

// Reference kinds occupy the leading digit of a generated reference so an
// invoice and a credit note with the same number never share one.
const (
	ReferenceKindInvoice    = 1
	ReferenceKindCreditNote = 2
)

const (
	maxReferenceBase   = 10_000_000_000
	maxReferenceNumber = 10_000_000
)

var ErrReferenceOverflow = errors.New("structured reference does not fit ten digits")

// DocumentReference builds the structured communication of an issued
// document from its kind, issue year and allocated number laid out as
// k yy nnnnnnn. Numbers are unique per (merchant, year, kind), so the
// reference is unique per merchant while a year stays under ten million
// documents of a kind.
func DocumentReference(kind, year int, number int64) (string, error) {
	if kind < 1 || kind > 9 || number <= 0 || number >= maxReferenceNumber {
		return "", fmt.Errorf("%w: kind %d number %d", ErrReferenceOverflow, kind, number)
	}
	base := uint64(kind)*1_000_000_000 + uint64(year%100)*maxReferenceNumber + uint64(number)
	return StructuredReference(base)
}

// StructuredReference builds a Belgian structured payment communication
// (+++ddd/dddd/dddcc+++) from a ten-digit base. The last two digits are the
// mod-97 check of the base, with 0 mapped to 97.
func StructuredReference(base uint64) (string, error) {
	if base >= maxReferenceBase {
		return "", fmt.Errorf("%w: %d", ErrReferenceOverflow, base)
	}
	check := base % 97
	if check == 0 {
		check = 97
	}
	digits := fmt.Sprintf("%010d%02d", base, check)
	return fmt.Sprintf("+++%s/%s/%s+++", digits[0:3], digits[3:7], digits[7:12]), nil
}

// ValidStructuredReference verifies format and check digits.
func ValidStructuredReference(ref string) bool {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "+++") || !strings.HasSuffix(ref, "+++") || len(ref) != 20 {
		return false
	}
	body := strings.ReplaceAll(ref[3:len(ref)-3], "/", "")
	if len(body) != 12 {
		return false
	}
	var base, check uint64
	for i, r := range body {
		if r < '0' || r > '9' {
			return false
		}
		if i < 10 {
			base = base*10 + uint64(r-'0')
		} else {
			check = check*10 + uint64(r-'0')
		}
	}
	want := base % 97
	if want == 0 {
		want = 97
	}
	return check == want
}
