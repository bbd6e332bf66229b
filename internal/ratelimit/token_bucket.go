package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var (
	ErrBucketNotConfigured = errors.New("issuance bucket has no redis client")
	ErrInvalidBucket       = errors.New("issuance bucket needs a key, a positive rate and a positive burst")
)

// refillAndTake runs atomically in redis. It refills the bucket from the
// server clock, takes one token when available and returns
// {allowed, remaining, now_ms}.
var refillAndTake = redis.NewScript(`
local rate, burst, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3])
local clock = redis.call("TIME")
local now = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = burst
if state[1] then
  local elapsed = math.max(0, now - tonumber(state[2]))
  tokens = math.min(burst, tonumber(state[1]) + elapsed * rate / 1000)
end

local taken = 0
if tokens >= 1 then
  tokens = tokens - 1
  taken = 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {taken, tostring(tokens), now}
`)

// TokenBucket is a per-key token bucket shared by every API instance.
type TokenBucket struct {
	client redis.Scripter
}

// Result describes one bucket decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client redis.Scripter) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client}
}

// Allow takes one token from key, refilling at rate tokens per second up to
// burst.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*Result, error) {
	if t == nil || t.client == nil {
		return &Result{}, ErrBucketNotConfigured
	}
	if key == "" || rate <= 0 || burst <= 0 {
		return &Result{}, ErrInvalidBucket
	}

	reply, err := refillAndTake.Run(ctx, t.client, []string{key}, rate, burst, bucketTTL(rate, burst).Milliseconds()).Slice()
	if err != nil {
		return &Result{}, err
	}
	if len(reply) != 3 {
		return &Result{}, errors.New("unexpected token bucket reply")
	}
	return newResult(toInt(reply[0]) == 1, toFloat(reply[1]), toInt(reply[2]), rate, burst), nil
}

func newResult(allowed bool, remaining float64, nowMillis int64, rate float64, burst int) *Result {
	res := &Result{
		Allowed:   allowed,
		Limit:     burst,
		Remaining: int(remaining),
	}
	if !allowed && remaining < 1 {
		res.RetryAfter = time.Duration((1 - remaining) / rate * float64(time.Second))
	}
	res.ResetTime = time.UnixMilli(nowMillis).Add(res.RetryAfter)
	return res
}

// bucketTTL lets an idle bucket expire after two full refills.
func bucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	return time.Duration(math.Max(1, math.Ceil(2*float64(burst)/rate))) * time.Second
}

// toInt and toFloat read script replies, which arrive as int64 or string.
func toInt(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return int64(toFloat(v))
	}
}

func toFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
