package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

func TestDescribeStatement(t *testing.T) {
	cases := []struct {
		sql       string
		operation string
		table     string
		locking   bool
	}{
		{`SELECT * FROM "document_sequences" WHERE merchant_id = $1 FOR UPDATE`, "SELECT", "document_sequences", true},
		{"UPDATE `invoices` SET `status`=? WHERE id = ?", "UPDATE", "invoices", false},
		{`INSERT INTO "public"."credit_notes" ("id") VALUES ($1)`, "INSERT", "credit_notes", false},
		{"SET LOCAL lock_timeout = '5000ms'", "SET", "unknown", false},
		{"", "UNKNOWN", "unknown", false},
	}
	for _, tc := range cases {
		got := describeStatement(tc.sql)
		if got.operation != tc.operation || got.table != tc.table || got.locking != tc.locking {
			t.Fatalf("describeStatement(%q): got %+v", tc.sql, got)
		}
	}
}

func TestGormLoggerFlagsLockWaits(t *testing.T) {
	logs := observe(t)
	l := NewGormLogger(GormLoggerConfig{Level: "warn", SlowThreshold: 10 * time.Millisecond})

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return `SELECT * FROM "document_sequences" FOR UPDATE`, 1
	}, nil)
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `SELECT * FROM "invoices"`, 3
	}, nil)

	if got := logs.FilterMessage("gorm.lock_wait").Len(); got != 1 {
		t.Fatalf("expected one lock wait entry, got %d", got)
	}
	if logs.FilterMessage("gorm.query").Len() != 0 {
		t.Fatalf("fast queries should not be logged at warn level")
	}
}

func TestGormLoggerIgnoresMissingRows(t *testing.T) {
	logs := observe(t)
	l := NewGormLogger(GormLoggerConfig{Level: "error"})

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `SELECT * FROM "clients"`, 0
	}, gormlogger.ErrRecordNotFound)
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `INSERT INTO "invoices"`, 0
	}, errors.New("duplicate key"))

	failed := logs.FilterMessage("gorm.query_failed").All()
	if len(failed) != 1 {
		t.Fatalf("expected one failed query entry, got %d", len(failed))
	}
	if failed[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %s", failed[0].Level)
	}
}
