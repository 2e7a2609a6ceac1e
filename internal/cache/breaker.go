package cache

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"stackit/internal/middleware"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// breakerHook trips after repeated Redis failures so requests stop waiting
// on a dead server; callers see gobreaker.ErrOpenState and treat it as a miss.
type breakerHook struct {
	cb *gobreaker.CircuitBreaker
}

var _ redis.Hook = (*breakerHook)(nil)

func newBreakerHook(name string) *breakerHook {
	return &breakerHook{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, redis.Nil)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				middleware.Logger.Warn("circuit breaker state changed",
					slog.String("component", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
				middleware.RedisBreakerState.Set(float64(to))
			},
		}),
	}
}

func (h *breakerHook) State() gobreaker.State {
	return h.cb.State()
}

func (h *breakerHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := h.cb.Execute(func() (interface{}, error) {
			return next(ctx, network, addr)
		})
		if err != nil {
			return nil, err
		}
		return conn.(net.Conn), nil
	}
}

func (h *breakerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		_, err := h.cb.Execute(func() (interface{}, error) {
			return nil, next(ctx, cmd)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			cmd.SetErr(err)
		}
		return err
	}
}

func (h *breakerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		_, err := h.cb.Execute(func() (interface{}, error) {
			return nil, next(ctx, cmds)
		})
		return err
	}
}
