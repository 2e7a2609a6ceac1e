package service

import (
	"context"
	"log/slog"

	"stackit/internal/cache"
	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/repository"
)

// AdminService moderates users and content. Callers must already be admins.
type AdminService struct {
	users     repository.UserRepository
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	cache     *cache.Client
}

func NewAdminService(
	users repository.UserRepository,
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	cacheClient *cache.Client,
) *AdminService {
	return &AdminService{users: users, questions: questions, answers: answers, cache: cacheClient}
}

// ListUsers returns a page of users and the total user count.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ToggleBan flips the ban flag of a non-admin user. A newly banned user
// loses their refresh token.
func (s *AdminService) ToggleBan(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return nil, models.NewForbiddenError("Admins cannot be banned")
	}

	banned := !user.IsBanned
	if err := s.users.SetBanned(ctx, user.ID, banned); err != nil {
		return nil, err
	}
	user.IsBanned = banned

	if banned {
		s.revokeSession(ctx, user.ID)
	}
	return user, nil
}

// DeleteUser removes a non-admin user with their content and votes.
func (s *AdminService) DeleteUser(ctx context.Context, userID uint) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return models.NewForbiddenError("Admins cannot be deleted")
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}
	s.revokeSession(ctx, user.ID)
	return nil
}

// ListQuestions returns questions with their answers for moderation.
func (s *AdminService) ListQuestions(ctx context.Context, limit, offset int) ([]models.Question, error) {
	return s.questions.List(ctx, repository.QuestionFilter{
		WithAnswers: true,
		Limit:       limit,
		Offset:      offset,
	})
}

// DeleteQuestion removes a question together with its answers and notifications.
func (s *AdminService) DeleteQuestion(ctx context.Context, questionID uint) error {
	return s.questions.DeleteCascade(ctx, questionID)
}

// DeleteAnswer removes an answer and detaches it from its question.
func (s *AdminService) DeleteAnswer(ctx context.Context, answerID uint) error {
	return s.answers.DeleteDetach(ctx, answerID)
}

func (s *AdminService) revokeSession(ctx context.Context, userID uint) {
	if err := s.cache.DeleteRefreshToken(ctx, userID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to revoke refresh token",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
	}
}
