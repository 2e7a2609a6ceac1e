// Package notifications delivers live notifications over Redis pub/sub and websockets.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"stackit/internal/cache"
	"stackit/internal/middleware"
	"stackit/internal/models"
)

const (
	userChannelPrefix  = "notifications:user:"
	userChannelPattern = userChannelPrefix + "*"
)

// Event is the envelope pushed to websocket clients.
type Event struct {
	Type    string               `json:"type"`
	Payload *models.Notification `json:"payload"`
}

// Notifier publishes notifications into per-user Redis channels.
type Notifier struct {
	cache *cache.Client
}

// NewNotifier creates a Notifier on the shared cache client.
func NewNotifier(cacheClient *cache.Client) *Notifier {
	return &Notifier{cache: cacheClient}
}

// PublishUser sends a raw payload to a user's channel. It is a no-op without Redis.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || !n.cache.Available() {
		return nil
	}
	return n.cache.Redis().Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishNotification pushes a persisted notification to its recipient.
func (n *Notifier) PublishNotification(ctx context.Context, notification *models.Notification) error {
	b, err := json.Marshal(Event{Type: "notification", Payload: notification})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return n.PublishUser(ctx, notification.RecipientID, string(b))
}

// StartPatternSubscriber subscribes to every user channel and calls onMessage
// for each message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n == nil || !n.cache.Available() {
		return nil
	}
	sub := n.cache.Redis().PSubscribe(ctx, userChannelPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", userChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user id from a channel built by UserChannel.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
