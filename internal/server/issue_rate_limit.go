package server

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/AdrianPopi/acont/internal/observability/logger"
	obsmetrics "github.com/AdrianPopi/acont/internal/observability/metrics"
	"github.com/AdrianPopi/acont/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitReasonMerchantRate = "merchant-rate"
	rateLimitReasonDocumentLock = "document-lock"
)

// IssuanceRateLimit throttles requests that may allocate a document number.
func (s *Server) IssuanceRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.issueLimiter.Enabled() {
			c.Next()
			return
		}

		merchantID := merchantIDFromGin(c)
		if merchantID == "" {
			AbortWithError(c, ErrMerchantRequired)
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		res, err := s.issueLimiter.AllowIssue(ctx, merchantID)
		if err != nil {
			logger.FromContext(ctx).Warn("issuance rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		setRateLimitHeaders(c, res)
		if !res.Allowed {
			denyIssuance(c, endpoint, merchantID, rateLimitReasonMerchantRate, res, s.obsMetrics)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, merchantID, s.obsMetrics)
		c.Next()
	}
}

// DocumentIssueGuard rejects a second issue request for the same draft while
// the first one is still running.
func (s *Server) DocumentIssueGuard(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.issueLimiter.Enabled() {
			c.Next()
			return
		}

		merchantID := merchantIDFromGin(c)
		documentID := kind + ":" + strings.TrimSpace(c.Param("id"))
		ctx := c.Request.Context()

		token, ok, err := s.issueLimiter.LockDocument(ctx, merchantID, documentID)
		if err != nil {
			logger.FromContext(ctx).Warn("issuance document lock failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !ok {
			logger.ForDocument(logger.FromContext(ctx), kind, c.Param("id")).Warn("document issuance already in progress")
			recordRateLimitDenied(ctx, normalizeRateLimitEndpoint(c), merchantID, rateLimitReasonDocumentLock, s.obsMetrics)
			c.Header("Retry-After", "1")
			AbortWithError(c, ErrIssueInProgress)
			return
		}
		defer func() {
			if err := s.issueLimiter.ReleaseDocument(ctx, merchantID, documentID, token); err != nil {
				logger.FromContext(ctx).Warn("issuance document unlock failed", zap.Error(err))
			}
		}()

		c.Next()
	}
}

func denyIssuance(c *gin.Context, endpoint, merchantID, reason string, res *ratelimit.Result, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("issuance rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, merchantID, reason, metrics)

	retry := 1
	if res != nil && res.RetryAfter > 0 {
		retry = int(math.Ceil(res.RetryAfter.Seconds()))
	}
	c.Header("Retry-After", strconv.Itoa(retry))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func setRateLimitHeaders(c *gin.Context, res *ratelimit.Result) {
	if res == nil || res.Limit <= 0 {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.ResetTime.IsZero() {
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetTime.Unix(), 10))
	}
}

func recordRateLimitAllowed(ctx context.Context, endpoint, merchantID string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, merchantID, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, merchantID, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, merchantID, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
