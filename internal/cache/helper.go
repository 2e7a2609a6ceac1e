package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"stackit/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// GetJSON reads key and unmarshals it into dest.
// Returns (true, nil) on a hit and (false, nil) on a miss or when disconnected.
func (c *Client) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Available() {
		return false, nil
	}
	s, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and stores it under key with ttl.
func (c *Client) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.Available() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// Aside serves key from Redis, falling back to fetch on a miss. fetch must
// populate dest. Concurrent misses for the same key share one fetch.
// Cache failures are logged and never fail the read.
func (c *Client) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := c.GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.DebugContext(ctx, "cache read failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return nil
	}

	if c == nil {
		return fetch()
	}

	ran := false
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		ran = true
		if err := fetch(); err != nil {
			return nil, err
		}
		b, err := json.Marshal(dest)
		if err != nil {
			return nil, err
		}
		if err := c.SetJSON(ctx, key, json.RawMessage(b), ttl); err != nil {
			middleware.Logger.DebugContext(ctx, "cache write failed",
				slog.String("key", key), slog.String("error", err.Error()))
		}
		return b, nil
	})
	if err != nil {
		return err
	}
	if ran {
		return nil
	}
	return json.Unmarshal(v.([]byte), dest)
}

// Invalidate removes keys. Failures are logged.
func (c *Client) Invalidate(ctx context.Context, keys ...string) {
	if !c.Available() || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// InvalidateQuestion drops the cached question detail.
func (c *Client) InvalidateQuestion(ctx context.Context, questionID uint) {
	c.Invalidate(ctx, QuestionKey(questionID))
}
