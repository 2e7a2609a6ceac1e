// Package cache wraps the Redis client used for caching, token storage and pub/sub.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"stackit/internal/middleware"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable is returned by operations that need Redis when it is not connected.
var ErrUnavailable = errors.New("cache: redis unavailable")

// Client is the process-wide Redis handle. It is created once by Init, passed
// to every component that needs it and released with Close. A Client without
// a connection is valid: reads miss, writes are dropped.
type Client struct {
	rdb     *redis.Client
	group   singleflight.Group
	breaker *breakerHook
}

type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Init connects to Redis at addr (host:port or redis:// URL). When Redis is
// unreachable it logs a warning and returns a disconnected Client.
func Init(addr string) *Client {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			middleware.Logger.Warn("invalid REDIS_URL, continuing without cache",
				slog.String("addr", addr), slog.String("error", err.Error()))
			return &Client{}
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis connection failed, continuing without cache",
			slog.String("error", err.Error()))
		_ = rdb.Close()
		return &Client{}
	}

	middleware.Logger.Info("Redis connected successfully")
	return New(rdb)
}

// New wraps an already connected redis client and installs the metrics and breaker hooks.
func New(rdb *redis.Client) *Client {
	c := &Client{rdb: rdb}
	if rdb != nil {
		c.breaker = newBreakerHook("redis")
		rdb.AddHook(metricsHook{})
		rdb.AddHook(c.breaker)
	}
	return c
}

// Available reports whether a Redis connection is configured.
func (c *Client) Available() bool {
	return c != nil && c.rdb != nil
}

// Redis returns the underlying client, or nil when disconnected.
func (c *Client) Redis() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// Cmdable returns the client as redis.Cmdable, or a nil interface when disconnected.
func (c *Client) Cmdable() redis.Cmdable {
	if !c.Available() {
		return nil
	}
	return c.rdb
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Available() {
		return ErrUnavailable
	}
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if !c.Available() {
		return nil
	}
	return c.rdb.Close()
}
