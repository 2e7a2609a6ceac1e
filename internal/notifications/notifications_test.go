package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"stackit/internal/cache"
	"stackit/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newTestCache(t *testing.T) *cache.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:1", UserChannel(1))
	assert.Equal(t, "notifications:user:100", UserChannel(100))

	id, ok := ParseUserChannel("notifications:user:42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"notifications:user:", "notifications:user:x", "chat:conv:1", "notifications:user:0"} {
		_, ok := ParseUserChannel(bad)
		assert.False(t, ok, bad)
	}
}

func TestNotifier_WithoutRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "payload"))
	assert.NoError(t, n.PublishNotification(context.Background(), &models.Notification{RecipientID: 1}))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))

	assert.NoError(t, NewNotifier(&cache.Client{}).PublishUser(context.Background(), 1, "x"))
}

func TestHub_RegisterLimitsAndUnregister(t *testing.T) {
	hub := NewHub()

	var clients []*Client
	for i := 0; i < maxConnsPerUser; i++ {
		c, err := hub.Register(7, nil)
		require.NoError(t, err)
		clients = append(clients, c)
	}
	_, err := hub.Register(7, nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)
	assert.True(t, hub.IsOnline(7))
	assert.Equal(t, maxConnsPerUser, hub.ConnectionCount())

	for _, c := range clients {
		hub.Unregister(c)
	}
	hub.Unregister(clients[0])
	assert.False(t, hub.IsOnline(7))
	assert.Zero(t, hub.ConnectionCount())

	_, ok := <-clients[0].Send
	assert.False(t, ok, "unregister closes the send queue")
}

func TestHub_BroadcastTargetsOnlyRecipient(t *testing.T) {
	hub := NewHub()
	alice, err := hub.Register(1, nil)
	require.NoError(t, err)
	bob, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.Broadcast(1, "hello")

	assert.Equal(t, "hello", string(<-alice.Send))
	assert.Empty(t, bob.Send)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(3, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer+5; i++ {
		c.TrySend([]byte("x"))
	}
	assert.Len(t, c.Send, sendBuffer)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(4, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))

	_, ok := <-c.Send
	assert.False(t, ok)
	assert.Zero(t, hub.ConnectionCount())

	hub.Unregister(c)
	_, err = hub.Register(4, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_StartWiringDeliversPublishedNotifications(t *testing.T) {
	cc := newTestCache(t)
	notifier := NewNotifier(cc)
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, notifier))

	client, err := hub.Register(9, nil)
	require.NoError(t, err)

	qid := uint(3)
	n := &models.Notification{ID: 11, RecipientID: 9, SenderID: 2, Type: models.NotificationAnswer, Message: "m", QuestionID: &qid}

	// The subscription is confirmed before StartWiring returns, so the first publish is delivered.
	require.NoError(t, notifier.PublishNotification(ctx, n))

	var got []byte
	assert.Eventually(t, func() bool {
		select {
		case got = <-client.Send:
			return true
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)

	var event Event
	require.NoError(t, json.Unmarshal(got, &event))
	assert.Equal(t, "notification", event.Type)
	require.NotNil(t, event.Payload)
	assert.Equal(t, uint(11), event.Payload.ID)
	assert.Equal(t, uint(9), event.Payload.RecipientID)
}
