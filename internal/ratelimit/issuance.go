package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdrianPopi/acont/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyIssueMerchant = "issue:merchant:%s"
	keyIssueDocument = "issue:lock:%s:%s"
)

type bucket interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*Result, error)
}

type locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

// IssuanceLimiter throttles document issuance per merchant and keeps two
// requests from issuing the same draft at once. A nil limiter allows
// everything.
type IssuanceLimiter struct {
	bucket  bucket
	locker  locker
	rate    float64
	burst   int
	lockTTL time.Duration
}

func NewIssuanceLimiter(cfg config.Config, log *zap.Logger) (*IssuanceLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.IssueRate <= 0 || limitCfg.IssueBurst <= 0 {
		return nil, errors.New("issue rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	log.Named("ratelimit").Info("issuance rate limit enabled",
		zap.String("redis_addr", addr),
		zap.Float64("rate", limitCfg.IssueRate),
		zap.Int("burst", limitCfg.IssueBurst),
	)
	return newIssuanceLimiter(NewTokenBucket(client), NewLocker(client), limitCfg), nil
}

func newIssuanceLimiter(b bucket, l locker, cfg config.RateLimitConfig) *IssuanceLimiter {
	ttl := cfg.IssueLockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &IssuanceLimiter{
		bucket:  b,
		locker:  l,
		rate:    cfg.IssueRate,
		burst:   cfg.IssueBurst,
		lockTTL: ttl,
	}
}

func (l *IssuanceLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowIssue takes one token from the merchant's issuance bucket.
func (l *IssuanceLimiter) AllowIssue(ctx context.Context, merchantID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyIssueMerchant, strings.TrimSpace(merchantID)), l.rate, l.burst)
}

// LockDocument guards the issuance of one document. ok is false when
// another request holds the guard.
func (l *IssuanceLimiter) LockDocument(ctx context.Context, merchantID, documentID string) (string, bool, error) {
	if !l.Enabled() || l.locker == nil {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, documentKey(merchantID, documentID), l.lockTTL)
}

func (l *IssuanceLimiter) ReleaseDocument(ctx context.Context, merchantID, documentID, token string) error {
	if !l.Enabled() || l.locker == nil {
		return nil
	}
	return l.locker.Release(ctx, documentKey(merchantID, documentID), token)
}

func documentKey(merchantID, documentID string) string {
	return fmt.Sprintf(keyIssueDocument, strings.TrimSpace(merchantID), strings.TrimSpace(documentID))
}
