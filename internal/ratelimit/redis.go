package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis limits requests with an atomic counter-and-TTL window shared across
// instances.
type Redis struct {
	client *goredis.Client
	limit  int
	window time.Duration
}

func NewRedis(client *goredis.Client, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: limit, window: window}
}

// NewClient connects and pings so a bad address fails at boot, not on the
// first request.
func NewClient(addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// admitScript atomically increments the window counter and reports the TTL.
var admitScript = goredis.NewScript(`
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

func (r *Redis) Admit(ctx context.Context, key string) (Decision, error) {
	result, err := admitScript.Run(ctx, r.client, []string{"ratelimit:payouts:" + key},
		r.limit, int(r.window.Seconds())).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit result format")
	}
	allowed := resultSlice[0].(int64) == 1
	remaining := int(resultSlice[1].(int64))
	resetIn := time.Duration(resultSlice[2].(int64)) * time.Second

	d := Decision{Allowed: allowed, Remaining: remaining}
	if !allowed {
		d.RetryAfter = resetIn
	}
	return d, nil
}
