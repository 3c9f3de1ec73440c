package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig bounds message sends per participant.
// Key pattern: ratelimit:{participant_id}:messages with a window TTL.
type RateLimitConfig struct {
	MessageLimit  int
	MessageWindow time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MessageLimit:  60,
		MessageWindow: 60 * time.Second,
	}
}

type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
	}
}

// AllowMessage consumes one send from the participant's window.
func (r *RateLimiter) AllowMessage(ctx context.Context, participantID string) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:messages", participantID)
	return r.checkLimit(ctx, key, r.config.MessageLimit, r.config.MessageWindow)
}

// checkLimit runs the increment-and-check atomically in Redis.
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	script := goredis.NewScript(`
		local key = KEYS[1]
		local limit = tonumber(ARGV[1])
		local window = tonumber(ARGV[2])

		local current = redis.call('GET', key)
		if current == false then
			current = 0
		else
			current = tonumber(current)
		end

		local ttl = redis.call('TTL', key)
		if ttl < 0 then
			ttl = window
		end

		if current < limit then
			redis.call('INCR', key)
			if ttl == window then
				redis.call('EXPIRE', key, window)
			end
			return {1, limit - current - 1, ttl}
		else
			return {0, 0, ttl}
		end
	`)

	result, err := script.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}

	allowed := resultSlice[0].(int64) == 1
	remaining := int(resultSlice[1].(int64))
	resetIn := time.Duration(resultSlice[2].(int64)) * time.Second

	return &RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetIn:   resetIn,
		Limit:     limit,
	}, nil
}

// Reset clears a participant's send quota (admin operation).
func (r *RateLimiter) Reset(ctx context.Context, participantID string) error {
	key := fmt.Sprintf("ratelimit:%s:messages", participantID)
	return r.client.Del(ctx, key).Err()
}
