package service

import (
	"context"

	"stackit/internal/models"
	"stackit/internal/repository"
	"stackit/internal/validation"
)

// AnswerNotifier is told about every new answer.
type AnswerNotifier interface {
	NotifyOnAnswer(ctx context.Context, question *models.Question, answerAuthorID uint, answer *models.Answer) *models.Notification
}

type AnswerService struct {
	answers   repository.AnswerRepository
	questions repository.QuestionRepository
	users     repository.UserRepository
	notifier  AnswerNotifier
}

type CreateAnswerInput struct {
	AuthorID   uint
	QuestionID uint
	Content    string
}

type UpdateAnswerInput struct {
	ActorID  uint
	AnswerID uint
	Content  string
}

func NewAnswerService(
	answers repository.AnswerRepository,
	questions repository.QuestionRepository,
	users repository.UserRepository,
	notifier AnswerNotifier,
) *AnswerService {
	return &AnswerService{answers: answers, questions: questions, users: users, notifier: notifier}
}

// Create posts an answer and notifies the question's author. Notification
// failures never fail the answer.
func (s *AnswerService) Create(ctx context.Context, in CreateAnswerInput) (*models.Answer, error) {
	author, err := requireActiveUser(ctx, s.users, in.AuthorID)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateBody("content", in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	q, err := s.questions.GetByID(ctx, in.QuestionID)
	if err != nil {
		return nil, err
	}

	a := &models.Answer{
		QuestionID: q.ID,
		AuthorID:   author.ID,
		Content:    in.Content,
	}
	if err := s.answers.Create(ctx, a); err != nil {
		return nil, err
	}
	a.Author = publicAuthor(author)

	if s.notifier != nil {
		s.notifier.NotifyOnAnswer(ctx, q, author.ID, a)
	}
	return a, nil
}

func (s *AnswerService) Update(ctx context.Context, in UpdateAnswerInput) (*models.Answer, error) {
	if _, err := requireActiveUser(ctx, s.users, in.ActorID); err != nil {
		return nil, err
	}
	a, err := s.answers.GetByID(ctx, in.AnswerID)
	if err != nil {
		return nil, err
	}
	if a.AuthorID != in.ActorID {
		return nil, models.NewForbiddenError("You can only edit your own answers")
	}
	if err := validation.ValidateBody("content", in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.answers.Update(ctx, a.ID, in.Content); err != nil {
		return nil, err
	}
	a.Content = in.Content
	return a, nil
}

// ListByQuestion returns the answers of an existing question, oldest first.
func (s *AnswerService) ListByQuestion(ctx context.Context, questionID uint) ([]models.Answer, error) {
	if _, err := s.questions.GetByID(ctx, questionID); err != nil {
		return nil, err
	}
	return s.answers.ListByQuestion(ctx, questionID)
}
