package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	obscontext "github.com/AdrianPopi/acont/internal/observability/context"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestGinMiddlewarePropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))

	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = obscontext.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if seen != "req-123" {
		t.Fatalf("expected request id in context, got %q", seen)
	}
	if got := w.Header().Get("X-Request-Id"); got != "req-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestGinMiddlewareGeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestGinMiddlewareWarnsOnChronologyRejection(t *testing.T) {
	logs := observe(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{
		ErrorClassifier: func(error) (string, string) { return "chronology_violation", "before_last_issued" },
	}))
	r.POST("/api/invoices/:id/issue", func(c *gin.Context) {
		c.Set("doc_type", "invoice")
		_ = c.Error(errors.New("Issue date cannot be before last issued invoice date (2025-03-10)"))
		c.Status(http.StatusBadRequest)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/invoices/42/issue", nil))

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one access log, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %s", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["doc_type"] != "invoice" || fields["document_id"] != "42" || fields["error_code"] != "before_last_issued" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestAccessLevel(t *testing.T) {
	cases := []struct {
		route     string
		status    int
		errorType string
		want      zapcore.Level
	}{
		{"/health", http.StatusOK, "", zapcore.DebugLevel},
		{"/api/invoices", http.StatusCreated, "", zapcore.InfoLevel},
		{"/api/invoices", http.StatusBadRequest, "validation_error", zapcore.InfoLevel},
		{"/api/invoices/:id/pay", http.StatusConflict, "invalid_transition", zapcore.WarnLevel},
		{"/api/invoices", http.StatusServiceUnavailable, "concurrency_timeout", zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		if got := accessLevel(tc.route, tc.status, tc.errorType); got != tc.want {
			t.Fatalf("accessLevel(%s, %d, %s): expected %s, got %s", tc.route, tc.status, tc.errorType, tc.want, got)
		}
	}
}
