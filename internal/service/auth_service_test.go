package service

import (
	"context"
	"testing"
	"time"

	"stackit/internal/cache"
	"stackit/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func newAuthService(t *testing.T, c *cache.Client) (*AuthService, *stack, *clockwork.FakeClock) {
	t.Helper()
	s := newStack(t, c)
	clock := clockwork.NewFakeClockAt(time.Now())
	svc := NewAuthService(s.users, c, NewTokenIssuer(testSecret, 24*time.Hour, 7*24*time.Hour, clock))
	svc.cost = bcrypt.MinCost
	return svc, s, clock
}

func TestTokenIssuer_AccessTokenExpires(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Now())
	issuer := NewTokenIssuer(testSecret, time.Hour, 24*time.Hour, clock)

	token, issued, err := issuer.IssueAccess(5, "dana", models.RoleUser)
	require.NoError(t, err)

	claims, err := issuer.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, uint(5), claims.UserID)
	assert.Equal(t, "dana", claims.Name)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.NotEmpty(t, claims.JTI)

	clock.Advance(time.Hour + time.Minute)
	_, err = issuer.ParseAccess(token)
	assert.Error(t, err)
}

func TestTokenIssuer_RejectsWrongTypeAndSecret(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer(testSecret, time.Hour, time.Hour, nil)
	refresh, err := issuer.IssueRefresh(5)
	require.NoError(t, err)

	_, err = issuer.ParseAccess(refresh)
	assert.ErrorIs(t, err, errWrongTokenType)

	other := NewTokenIssuer("another-secret-that-is-long-enough", time.Hour, time.Hour, nil)
	_, err = other.ParseRefresh(refresh)
	assert.Error(t, err)

	_, err = issuer.ParseRefresh("not.a.token")
	assert.Error(t, err)
}

func TestAuthService_SignupAndLogin(t *testing.T) {
	c, mr := setupCache(t)
	svc, _, _ := newAuthService(t, c)
	ctx := context.Background()

	session, err := svc.Signup(ctx, SignupInput{Name: "Erin", Email: "  Erin@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "erin@example.com", session.User.Email)
	assert.NotEqual(t, "secret1", session.User.Password)
	assert.NotEmpty(t, session.AccessToken)
	assert.True(t, mr.Exists(cache.RefreshTokenKey(session.User.ID)))

	_, err = svc.Signup(ctx, SignupInput{Name: "Erin", Email: "erin@example.com", Password: "secret1"})
	assertCode(t, err, models.CodeConflict)

	_, err = svc.Signup(ctx, SignupInput{Name: "Short", Email: "short@example.com", Password: "123"})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Login(ctx, LoginInput{Email: "erin@example.com", Password: "wrong!!"})
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assertCode(t, err, models.CodeUnauthorized)

	login, err := svc.Login(ctx, LoginInput{Email: "ERIN@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)
}

func TestAuthService_BannedUserCannotLogin(t *testing.T) {
	c, _ := setupCache(t)
	svc, s, _ := newAuthService(t, c)
	ctx := context.Background()

	session, err := svc.Signup(ctx, SignupInput{Name: "Finn", Email: "finn@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, s.users.SetBanned(ctx, session.User.ID, true))

	_, err = svc.Login(ctx, LoginInput{Email: "finn@example.com", Password: "secret1"})
	assertCode(t, err, models.CodeForbidden)

	_, err = svc.Refresh(ctx, session.RefreshToken)
	assertCode(t, err, models.CodeForbidden)
}

func TestAuthService_RefreshRequiresStoredToken(t *testing.T) {
	c, _ := setupCache(t)
	svc, _, _ := newAuthService(t, c)
	ctx := context.Background()

	first, err := svc.Signup(ctx, SignupInput{Name: "Gail", Email: "gail@example.com", Password: "secret1"})
	require.NoError(t, err)

	access, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	claims, err := svc.Authenticate(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, claims.UserID)

	// a second login replaces the stored refresh token
	second, err := svc.Login(ctx, LoginInput{Email: "gail@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, first.RefreshToken)
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.Refresh(ctx, second.AccessToken)
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.Refresh(ctx, "")
	assertCode(t, err, models.CodeUnauthorized)
}

func TestAuthService_RefreshWithoutRedis(t *testing.T) {
	svc, _, _ := newAuthService(t, &cache.Client{})
	ctx := context.Background()

	session, err := svc.Signup(ctx, SignupInput{Name: "Hank", Email: "hank@example.com", Password: "secret1"})
	require.NoError(t, err, "signup still succeeds without a session store")

	_, err = svc.Refresh(ctx, session.RefreshToken)
	assertCode(t, err, models.CodeUnauthorized)
}

func TestAuthService_LogoutRevokesTokens(t *testing.T) {
	c, mr := setupCache(t)
	svc, _, _ := newAuthService(t, c)
	ctx := context.Background()

	session, err := svc.Signup(ctx, SignupInput{Name: "Ivy", Email: "ivy@example.com", Password: "secret1"})
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims.UserID, claims.JTI, claims.ExpiresAt))
	assert.False(t, mr.Exists(cache.RefreshTokenKey(claims.UserID)))
	assert.True(t, mr.Exists(cache.BlacklistKey(claims.JTI)))

	_, err = svc.Authenticate(ctx, session.AccessToken)
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.Refresh(ctx, session.RefreshToken)
	assertCode(t, err, models.CodeUnauthorized)
}
