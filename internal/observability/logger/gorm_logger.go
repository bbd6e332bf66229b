package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures the query logger.
type GormLoggerConfig struct {
	// Level is one of silent, error, warn or info.
	Level         string
	SlowThreshold time.Duration
}

// GormLogger writes gorm events through the request-scoped zap logger.
// Bound parameters are never logged because client snapshots carry personal
// data.
type GormLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	threshold := cfg.SlowThreshold
	if threshold <= 0 {
		threshold = 200 * time.Millisecond
	}
	return &GormLogger{
		level:         parseGormLevel(cfg.Level),
		slowThreshold: threshold,
	}
}

func parseGormLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		FromContext(ctx).Info(msg, zap.String("component", "gorm"), zap.Int("args", len(data)))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		FromContext(ctx).Warn(msg, zap.String("component", "gorm"), zap.Int("args", len(data)))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		FromContext(ctx).Error(msg, zap.String("component", "gorm"), zap.Int("args", len(data)))
	}
}

// Trace logs failed statements, slow statements and, at info level, all of
// them. Missing rows are expected lookups and are not errors here.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	slow := elapsed > l.slowThreshold

	if !failed && !slow && l.level < gormlogger.Info {
		return
	}
	if failed && l.level < gormlogger.Error {
		return
	}

	sql, rows := fc()
	stmt := describeStatement(sql)
	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("operation", stmt.operation),
		zap.String("table", stmt.table),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}

	log := FromContext(ctx)
	switch {
	case failed:
		log.Error("gorm.query_failed", append(fields, zap.String("sql", sql), zap.Error(err))...)
	case slow && stmt.locking && l.level >= gormlogger.Warn:
		log.Warn("gorm.lock_wait", fields...)
	case slow && l.level >= gormlogger.Warn:
		log.Warn("gorm.slow_query", append(fields, zap.String("sql", sql))...)
	default:
		log.Debug("gorm.query", append(fields, zap.String("sql", sql))...)
	}
}

// ParamsFilter drops bound values from rendered SQL.
func (l *GormLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	return sql, nil
}

type statement struct {
	operation string
	table     string
	locking   bool
}

func describeStatement(sql string) statement {
	tokens := strings.Fields(strings.ToUpper(sql))
	stmt := statement{operation: "UNKNOWN", table: "unknown"}
	for i, token := range tokens {
		token = strings.Trim(token, "();")
		switch token {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			if stmt.operation == "UNKNOWN" {
				stmt.operation = token
			}
			if token == "UPDATE" && i+1 < len(tokens) && stmt.table == "unknown" && (i == 0 || tokens[i-1] != "FOR") {
				stmt.table = tableName(tokens[i+1])
			}
		case "SET":
			if i == 0 {
				stmt.operation = token
			}
		case "FROM", "INTO":
			if i+1 < len(tokens) && stmt.table == "unknown" {
				stmt.table = tableName(tokens[i+1])
			}
		case "FOR":
			if i+1 < len(tokens) && strings.Trim(tokens[i+1], ";") == "UPDATE" {
				stmt.locking = true
			}
		}
	}
	return stmt
}

func tableName(token string) string {
	token = strings.Trim(token, "\"`();")
	if idx := strings.LastIndex(token, "."); idx >= 0 {
		token = token[idx+1:]
	}
	token = strings.Trim(token, "\"`")
	if token == "" {
		return "unknown"
	}
	return strings.ToLower(token)
}

var _ gormlogger.Interface = (*GormLogger)(nil)
