package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// envelope is the JSON document stored under each key. Redis handles the
// actual expiry; the absolute deadline travels with the value so a sliding
// refresh never extends past it.
type envelope[V any] struct {
	Value     V     `json:"value"`
	Negative  bool  `json:"negative,omitempty"`
	ExpiresAt int64 `json:"expires_at,omitempty"` // unix millis, 0 = none
	SlidingMS int64 `json:"sliding_ms,omitempty"`
}

// getAndTouch reads a key and, for sliding entries, pushes its TTL out to
// min(now+sliding, expires_at) in the same step, so a concurrent Set is
// never shortened by a refresh computed from the value it replaced.
// ARGV[1] is the caller's clock in unix millis.
var getAndTouch = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return false
end
local env = cjson.decode(data)
local sliding = tonumber(env['sliding_ms'] or 0)
if sliding > 0 then
  local now = tonumber(ARGV[1])
  local expires = now + sliding
  local absolute = tonumber(env['expires_at'] or 0)
  if absolute > 0 and absolute < expires then
    expires = absolute
  end
  if expires <= now then
    redis.call('DEL', KEYS[1])
    return false
  end
  redis.call('PEXPIRE', KEYS[1], expires - now)
end
return data
`)

// Redis is a Cache shared by every process pointing at the same server.
type Redis[V any] struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedis wraps client. now may be nil, in which case time.Now is used.
func NewRedis[V any](client redis.Cmdable, now func() time.Time) *Redis[V] {
	if now == nil {
		now = time.Now
	}
	return &Redis[V]{client: client, now: now}
}

func (r *Redis[V]) Set(ctx context.Context, key string, value V, opts Options) error {
	return r.store(ctx, key, envelope[V]{Value: value}, opts)
}

func (r *Redis[V]) SetNegative(ctx context.Context, key string, ttl time.Duration) error {
	return r.store(ctx, key, envelope[V]{Negative: true}, Options{AbsoluteTTL: ttl})
}

func (r *Redis[V]) store(ctx context.Context, key string, env envelope[V], opts Options) error {
	now := r.now()
	absolute := absoluteDeadline(now, opts.AbsoluteTTL)
	if !absolute.IsZero() {
		env.ExpiresAt = absolute.UnixMilli()
	}
	env.SlidingMS = opts.SlidingTTL.Milliseconds()

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("cache: marshal %q: %w", key, err)
	}

	var ttl time.Duration
	if d := deadline(now, absolute, opts.SlidingTTL); !d.IsZero() {
		ttl = d.Sub(now)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}
	return nil
}

func (r *Redis[V]) TryGet(ctx context.Context, key string) (Entry[V], bool, error) {
	data, err := getAndTouch.Run(ctx, r.client, []string{key}, r.now().UnixMilli()).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry[V]{}, false, nil
		}
		return Entry[V]{}, false, fmt.Errorf("cache: get %q: %w", key, err)
	}

	var env envelope[V]
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return Entry[V]{}, false, fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return Entry[V]{Value: env.Value, Negative: env.Negative}, true, nil
}

func (r *Redis[V]) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: remove %q: %w", key, err)
	}
	return nil
}
