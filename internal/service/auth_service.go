package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"stackit/internal/cache"
	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/repository"
	"stackit/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AuthService handles signup, login and the refresh-token session.
type AuthService struct {
	users  repository.UserRepository
	cache  *cache.Client
	tokens *TokenIssuer
	cost   int
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// Session is returned to clients after signup and login.
type Session struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

func NewAuthService(users repository.UserRepository, cacheClient *cache.Client, tokens *TokenIssuer) *AuthService {
	return &AuthService{users: users, cache: cacheClient, tokens: tokens, cost: bcrypt.DefaultCost}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := models.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Name, email, and password are required")
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if user.IsBanned {
		return nil, models.NewForbiddenError("Your account is banned")
	}
	return s.startSession(ctx, user)
}

// Refresh exchanges a refresh token for a new access token. The token must be
// the one stored for its user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", models.NewUnauthorizedError("Refresh token required")
	}
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", models.NewUnauthorizedError("Invalid or expired refresh token")
	}

	ok, err := s.cache.RefreshTokenMatches(ctx, claims.UserID, refreshToken)
	if errors.Is(err, cache.ErrUnavailable) {
		return "", models.NewUnauthorizedError("Session store unavailable")
	}
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if !ok {
		return "", models.NewUnauthorizedError("Invalid or expired refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return "", models.NewUnauthorizedError("Invalid or expired refresh token")
		}
		return "", err
	}
	if user.IsBanned {
		return "", models.NewForbiddenError("Your account is banned")
	}

	access, _, err := s.tokens.IssueAccess(user.ID, user.Name, user.Role)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return access, nil
}

// Logout revokes the user's refresh token and blacklists the presented
// access token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, userID uint, jti string, accessExpiry time.Time) error {
	if err := s.cache.DeleteRefreshToken(ctx, userID); err != nil {
		return models.NewInternalError(err)
	}
	if err := s.cache.BlacklistToken(ctx, jti, accessExpiry.Sub(s.tokens.clock.Now())); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Authenticate verifies an access token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*TokenClaims, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	revoked, err := s.cache.IsBlacklisted(ctx, claims.JTI)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "blacklist lookup failed", slog.String("error", err.Error()))
	}
	if revoked {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}
	return claims, nil
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*Session, error) {
	access, _, err := s.tokens.IssueAccess(user.ID, user.Name, user.Role)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.cache.StoreRefreshToken(ctx, user.ID, refresh, s.tokens.RefreshTTL()); err != nil {
		middleware.Logger.WarnContext(ctx, "refresh token not stored, refresh will be refused",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
	}
	return &Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}
