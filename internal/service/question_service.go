package service

import (
	"context"
	"strings"

	"stackit/internal/models"
	"stackit/internal/repository"
	"stackit/internal/validation"
)

type QuestionService struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	users     repository.UserRepository
}

type CreateQuestionInput struct {
	AuthorID    uint
	Title       string
	Description string
	Tags        []string
}

// UpdateQuestionInput carries a partial edit; nil fields are left unchanged.
type UpdateQuestionInput struct {
	ActorID     uint
	QuestionID  uint
	Title       *string
	Description *string
	Tags        []string
}

type ListQuestionsInput struct {
	Tag    string
	Limit  int
	Offset int
}

func NewQuestionService(
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	users repository.UserRepository,
) *QuestionService {
	return &QuestionService{questions: questions, answers: answers, users: users}
}

func (s *QuestionService) Create(ctx context.Context, in CreateQuestionInput) (*models.Question, error) {
	author, err := requireActiveUser(ctx, s.users, in.AuthorID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	tags := models.NormalizeTags(in.Tags)
	if err := validation.ValidateTitle(title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateBody("description", in.Description); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateTags(tags); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	q := &models.Question{
		Title:       title,
		Description: in.Description,
		Tags:        tags,
		AuthorID:    author.ID,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}
	q.Author = publicAuthor(author)
	return q, nil
}

func (s *QuestionService) Update(ctx context.Context, in UpdateQuestionInput) (*models.Question, error) {
	if _, err := requireActiveUser(ctx, s.users, in.ActorID); err != nil {
		return nil, err
	}
	q, err := s.questions.GetByID(ctx, in.QuestionID)
	if err != nil {
		return nil, err
	}
	if q.AuthorID != in.ActorID {
		return nil, models.NewForbiddenError("You can only edit your own questions")
	}

	fields := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := validation.ValidateTitle(title); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["title"] = title
		q.Title = title
	}
	if in.Description != nil {
		if err := validation.ValidateBody("description", *in.Description); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["description"] = *in.Description
		q.Description = *in.Description
	}
	if in.Tags != nil {
		tags := models.NormalizeTags(in.Tags)
		if err := validation.ValidateTags(tags); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["tags"] = tags
		q.Tags = tags
	}
	if len(fields) == 0 {
		return nil, models.NewValidationError("Nothing to update")
	}

	if err := s.questions.Update(ctx, q.ID, fields); err != nil {
		return nil, err
	}
	return q, nil
}

// Get returns a question with its author and answers.
func (s *QuestionService) Get(ctx context.Context, id uint) (*models.Question, error) {
	return s.questions.GetWithAnswers(ctx, id)
}

func (s *QuestionService) List(ctx context.Context, in ListQuestionsInput) ([]models.Question, error) {
	return s.questions.List(ctx, repository.QuestionFilter{
		Tag:    strings.ToLower(strings.TrimSpace(in.Tag)),
		Limit:  in.Limit,
		Offset: in.Offset,
	})
}

// AcceptAnswer marks answerID as the accepted answer of the question, or
// clears the mark when it is already the accepted one.
func (s *QuestionService) AcceptAnswer(ctx context.Context, actorID, questionID, answerID uint) (*models.Question, error) {
	if _, err := requireActiveUser(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if q.AuthorID != actorID {
		return nil, models.NewForbiddenError("Only the question author can accept an answer")
	}
	a, err := s.answers.GetByID(ctx, answerID)
	if err != nil {
		return nil, err
	}
	if a.QuestionID != q.ID {
		return nil, models.NewValidationError("Answer does not belong to this question")
	}

	var accepted *uint
	if q.AcceptedAnswerID == nil || *q.AcceptedAnswerID != a.ID {
		id := a.ID
		accepted = &id
	}
	if err := s.questions.SetAcceptedAnswer(ctx, q.ID, accepted); err != nil {
		return nil, err
	}
	q.AcceptedAnswerID = accepted
	return q, nil
}
