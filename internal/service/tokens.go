package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	tokenIssuer   = "stackit-api"
	tokenAudience = "stackit-client"

	typAccess  = "access"
	typRefresh = "refresh"
)

var (
	errWrongTokenType = errors.New("wrong token type")
	errBadSubject     = errors.New("invalid subject claim")
)

// TokenClaims is the verified content of an access or refresh token.
type TokenClaims struct {
	UserID    uint
	Name      string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clockwork.Clock
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration, clock clockwork.Clock) *TokenIssuer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clock,
	}
}

func (t *TokenIssuer) RefreshTTL() time.Duration {
	return t.refreshTTL
}

// IssueAccess creates an access token carrying the user's name and role.
func (t *TokenIssuer) IssueAccess(userID uint, name, role string) (string, *TokenClaims, error) {
	claims := t.baseClaims(userID, typAccess, t.accessTTL)
	claims["name"] = name
	claims["role"] = role
	token, err := t.sign(claims)
	if err != nil {
		return "", nil, err
	}
	return token, &TokenClaims{
		UserID:    userID,
		Name:      name,
		Role:      role,
		JTI:       claims["jti"].(string),
		ExpiresAt: time.Unix(claims["exp"].(int64), 0),
	}, nil
}

// IssueRefresh creates a refresh token for userID.
func (t *TokenIssuer) IssueRefresh(userID uint) (string, error) {
	return t.sign(t.baseClaims(userID, typRefresh, t.refreshTTL))
}

func (t *TokenIssuer) ParseAccess(token string) (*TokenClaims, error) {
	return t.parse(token, typAccess)
}

func (t *TokenIssuer) ParseRefresh(token string) (*TokenClaims, error) {
	return t.parse(token, typRefresh)
}

func (t *TokenIssuer) baseClaims(userID uint, typ string, ttl time.Duration) jwt.MapClaims {
	now := t.clock.Now()
	return jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
		"typ": typ,
	}
}

func (t *TokenIssuer) sign(claims jwt.MapClaims) (string, error) {
	if len(t.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *TokenIssuer) parse(raw, typ string) (*TokenClaims, error) {
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errBadSubject
	}
	if got, _ := claims["typ"].(string); got != typ {
		return nil, errWrongTokenType
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, err
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, errBadSubject
	}

	out := &TokenClaims{UserID: uint(userID)}
	out.Name, _ = claims["name"].(string)
	out.Role, _ = claims["role"].(string)
	out.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
