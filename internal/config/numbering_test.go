package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNumberingDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	holder, err := NewNumberingHolder(Config{NumberingConfigPath: filepath.Join(dir, "missing.yml")}, zap.NewNop())
	if err != nil {
		t.Fatalf("load numbering: %v", err)
	}
	got := holder.Get()
	if got.Invoice.Series != "INV" || got.CreditNote.Series != "CN" {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	if got.Invoice.Template != "{SEQ6}" {
		t.Fatalf("unexpected default template %q", got.Invoice.Template)
	}
}

func TestNumberingLoadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "numbering.yml")
	content := []byte(`numbering:
  invoice:
    series: F
    template: "{SERIES}{YYYY}-{SEQ5}"
  creditNote:
    series: NC
    template: "{SEQ6}"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	holder, err := NewNumberingHolder(Config{NumberingConfigPath: path}, zap.NewNop())
	if err != nil {
		t.Fatalf("load numbering: %v", err)
	}
	got := holder.Get()
	if got.For("invoice").Series != "F" || got.For("invoice").Template != "{SERIES}{YYYY}-{SEQ5}" {
		t.Fatalf("unexpected invoice series: %+v", got.Invoice)
	}
	if got.For("credit_note").Series != "NC" {
		t.Fatalf("unexpected credit note series: %+v", got.CreditNote)
	}
}

func TestNumberingRejectsInvalidTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "numbering.yml")
	content := []byte(`numbering:
  invoice:
    series: INV
    template: "{NOPE}"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := NewNumberingHolder(Config{NumberingConfigPath: path}, zap.NewNop()); err == nil {
		t.Fatalf("expected invalid template to be rejected")
	}
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *NumberingHolder
	if got := holder.Get(); got.Invoice.Template != "{SEQ6}" {
		t.Fatalf("expected default template, got %q", got.Invoice.Template)
	}
}
