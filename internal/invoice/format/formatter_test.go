package format

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestFormatNumberDefaultTemplate(t *testing.T) {
	issued := time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC)
	cases := map[int64]string{
		1:       "000001",
		42:      "000042",
		999999:  "999999",
		1000000: "1000000",
	}
	for seq, want := range cases {
		got, err := FormatNumber(DefaultNumberTemplate, issued, "INV", seq)
		if err != nil {
			t.Fatalf("format %d: %v", seq, err)
		}
		if got != want {
			t.Fatalf("format %d: expected %s, got %s", seq, want, got)
		}
	}
}

func TestFormatNumberTokens(t *testing.T) {
	issued := time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC)
	got, err := FormatNumber("{SERIES}-{YYYY}{MM}{DD}-{SEQ4}/{YY}-{SEQ}", issued, "CN", 12)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if want := "CN-20250409-0012/25-12"; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestFormatNumberRejectsInvalidInput(t *testing.T) {
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := FormatNumber("", issued, "INV", 1); err == nil {
		t.Fatalf("expected error for empty template")
	}
	if _, err := FormatNumber("{SEQ6}", issued, "INV", 0); err == nil {
		t.Fatalf("expected error for zero sequence")
	}
	if _, err := FormatNumber("{SEQ6}-{UNKNOWN}", issued, "INV", 1); err == nil {
		t.Fatalf("expected error for unresolved token")
	}
	if err := ValidateTemplate("{SEQX}"); err == nil {
		t.Fatalf("expected invalid template")
	}
}

func TestStructuredReference(t *testing.T) {
	// 0000000001 mod 97 = 1
	if got, err := StructuredReference(1); err != nil || got != "+++000/0000/00101+++" {
		t.Fatalf("unexpected reference %s (%v)", got, err)
	}
	// 97 mod 97 = 0, mapped to 97
	if got, err := StructuredReference(97); err != nil || got != "+++000/0000/09797+++" {
		t.Fatalf("unexpected reference %s (%v)", got, err)
	}
	for _, base := range []uint64{1, 97, 123456789, 9_999_999_999} {
		ref, err := StructuredReference(base)
		if err != nil {
			t.Fatalf("reference for %d: %v", base, err)
		}
		if !ValidStructuredReference(ref) {
			t.Fatalf("generated reference %s failed validation", ref)
		}
	}
	if _, err := StructuredReference(1879000000000000001); !errors.Is(err, ErrReferenceOverflow) {
		t.Fatalf("expected bases beyond ten digits to be rejected, got %v", err)
	}
	if ValidStructuredReference("+++000/0000/00102+++") {
		t.Fatalf("expected wrong check digits to be rejected")
	}
	if ValidStructuredReference("000/0000/00101") {
		t.Fatalf("expected missing delimiters to be rejected")
	}
}

func TestDocumentReference(t *testing.T) {
	got, err := DocumentReference(ReferenceKindInvoice, 2025, 42)
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	// base 1250000042, 1250000042 mod 97 = 36
	if got != "+++125/0000/04236+++" {
		t.Fatalf("unexpected reference %s", got)
	}

	seen := map[string]string{}
	for _, kind := range []int{ReferenceKindInvoice, ReferenceKindCreditNote} {
		for _, year := range []int{2024, 2025} {
			for _, number := range []int64{1, 2, 999_999, 9_999_999} {
				ref, err := DocumentReference(kind, year, number)
				if err != nil {
					t.Fatalf("reference %d/%d/%d: %v", kind, year, number, err)
				}
				if !ValidStructuredReference(ref) {
					t.Fatalf("invalid reference %s", ref)
				}
				id := fmt.Sprintf("%d/%d/%d", kind, year, number)
				if other, ok := seen[ref]; ok {
					t.Fatalf("documents %s and %s share reference %s", other, id, ref)
				}
				seen[ref] = id
			}
		}
	}

	for _, number := range []int64{0, 10_000_000} {
		if _, err := DocumentReference(ReferenceKindInvoice, 2025, number); !errors.Is(err, ErrReferenceOverflow) {
			t.Fatalf("number %d: expected overflow, got %v", number, err)
		}
	}
}
