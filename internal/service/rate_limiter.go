package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/cliprelay/relay-server-go/internal/redis"
)

// allowScript keeps one sorted-set member per admitted request, scored by its
// arrival in milliseconds. Returns {admitted, remaining, resetAtMillis}.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = now + window
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    end
    return {0, 0, resetAt}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('PEXPIRE', key, window + 1000)
return {1, limit - count - 1, now + window}
`)

const (
	pairingAttemptsPerWindow = 10
	pairingWindow            = 10 * time.Minute
)

// LimitDecision is the outcome of one rate limit check.
type LimitDecision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is a sliding-window limiter shared by every instance through
// Redis. It fails closed: when Redis is unavailable requests are denied.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow admits one request under key if fewer than limit were admitted in
// the trailing window.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) LimitDecision {
	now := time.Now()
	denied := LimitDecision{ResetAt: now.Add(window)}

	result, err := allowScript.Run(
		ctx,
		rl.client,
		[]string{"ratelimit:" + key},
		now.UnixMilli(),
		window.Milliseconds(),
		limit,
	).Int64Slice()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rate limit check failed, denying request")
		return denied
	}
	if len(result) != 3 {
		log.Warn().Str("key", key).Msg("unexpected rate limit result, denying request")
		return denied
	}

	return LimitDecision{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetAt:   time.UnixMilli(result[2]),
	}
}

// CheckPairingLimit throttles secret guesses per collaborator account.
func (rl *RateLimiter) CheckPairingLimit(ctx context.Context, accountID string) LimitDecision {
	return rl.Allow(ctx, redisclient.RateLimitKey("pairing", accountID), pairingAttemptsPerWindow, pairingWindow)
}
