package logger

import (
	"net/http"
	"strings"
	"time"

	obscontext "github.com/AdrianPopi/acont/internal/observability/context"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const HeaderRequestID = "X-Request-Id"

type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps a handler error to the (type, code) pair returned
	// to the client.
	ErrorClassifier func(err error) (string, string)
}

// expectedRejections are client errors that describe normal bookkeeping
// mistakes. They are logged at warn so they stay visible without paging.
var expectedRejections = map[string]struct{}{
	"chronology_violation": {},
	"invalid_transition":   {},
	"not_draft":            {},
	"issue_in_progress":    {},
	"rate_limited":         {},
}

// GinMiddleware writes one access log line per request with the request,
// merchant and document identifiers.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestIDFor(c)
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		route := strings.TrimSpace(c.FullPath())
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if docType := c.GetString("doc_type"); docType != "" {
			fields = append(fields, zap.String("doc_type", docType))
		}
		if id := strings.TrimSpace(c.Param("id")); id != "" {
			fields = append(fields, zap.String("document_id", id))
		}

		var errorType string
		if lastErr := c.Errors.Last(); lastErr != nil {
			errorType = "internal_error"
			var errorCode string
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields, zap.String("error_type", errorType))
			if errorCode != "" {
				fields = append(fields, zap.String("error_code", errorCode))
			}
			if status >= http.StatusInternalServerError || cfg.Debug {
				fields = append(fields, zap.String("error", lastErr.Err.Error()))
			}
		}

		log := FromContext(c.Request.Context())
		if ce := log.Check(accessLevel(route, status, errorType), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func requestIDFor(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
	if requestID == "" || len(requestID) > 128 {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(HeaderRequestID, requestID)
	return requestID
}

func accessLevel(route string, status int, errorType string) zapcore.Level {
	switch {
	case route == "/health" || route == "/metrics":
		return zapcore.DebugLevel
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		if _, ok := expectedRejections[errorType]; ok {
			return zapcore.WarnLevel
		}
		return zapcore.InfoLevel
	default:
		return zapcore.InfoLevel
	}
}
