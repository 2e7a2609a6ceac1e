package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StoreRefreshToken records the single valid refresh token for userID.
func (c *Client) StoreRefreshToken(ctx context.Context, userID uint, token string, ttl time.Duration) error {
	if !c.Available() {
		return ErrUnavailable
	}
	return c.rdb.Set(ctx, RefreshTokenKey(userID), token, ttl).Err()
}

// RefreshTokenMatches reports whether token is the stored refresh token for userID.
func (c *Client) RefreshTokenMatches(ctx context.Context, userID uint, token string) (bool, error) {
	if !c.Available() {
		return false, ErrUnavailable
	}
	stored, err := c.rdb.Get(ctx, RefreshTokenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored == token, nil
}

// DeleteRefreshToken revokes the stored refresh token for userID.
func (c *Client) DeleteRefreshToken(ctx context.Context, userID uint) error {
	if !c.Available() {
		return nil
	}
	return c.rdb.Del(ctx, RefreshTokenKey(userID)).Err()
}

// BlacklistToken marks an access token id as revoked until ttl elapses.
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if !c.Available() || jti == "" {
		return nil
	}
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, BlacklistKey(jti), "1", ttl).Err()
}

// IsBlacklisted reports whether jti was revoked.
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if !c.Available() || jti == "" {
		return false, nil
	}
	n, err := c.rdb.Exists(ctx, BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IssueWSTicket stores a single-use websocket ticket for userID.
func (c *Client) IssueWSTicket(ctx context.Context, userID uint) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}
	ticket := uuid.NewString()
	if err := c.rdb.Set(ctx, WSTicketKey(ticket), strconv.FormatUint(uint64(userID), 10), WSTicketTTL).Err(); err != nil {
		return "", err
	}
	return ticket, nil
}

// ConsumeWSTicket redeems a ticket, returning its user. A ticket works once.
func (c *Client) ConsumeWSTicket(ctx context.Context, ticket string) (uint, bool, error) {
	if !c.Available() || ticket == "" {
		return 0, false, nil
	}
	raw, err := c.rdb.GetDel(ctx, WSTicketKey(ticket)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false, nil
	}
	return uint(id), true, nil
}
