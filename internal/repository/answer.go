package repository

import (
	"context"

	"stackit/internal/cache"
	"stackit/internal/models"

	"gorm.io/gorm"
)

// AnswerRepository defines persistence operations for answers.
type AnswerRepository interface {
	Create(ctx context.Context, answer *models.Answer) error
	GetByID(ctx context.Context, id uint) (*models.Answer, error)
	ListByQuestion(ctx context.Context, questionID uint) ([]models.Answer, error)
	ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]models.Answer, error)
	Update(ctx context.Context, id uint, content string) error
	DeleteDetach(ctx context.Context, id uint) error
}

type answerRepository struct {
	db    *gorm.DB
	cache *cache.Client
}

// NewAnswerRepository returns a new AnswerRepository implementation.
func NewAnswerRepository(db *gorm.DB, cacheClient *cache.Client) AnswerRepository {
	return &answerRepository{db: db, cache: cacheClient}
}

func (r *answerRepository) Create(ctx context.Context, answer *models.Answer) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(answer).Error; err != nil {
		return models.NewPersistenceError("create answer", err)
	}
	r.cache.InvalidateQuestion(ctx, answer.QuestionID)
	return nil
}

func (r *answerRepository) GetByID(ctx context.Context, id uint) (*models.Answer, error) {
	var a models.Answer
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, lookupError(err, "Answer", id)
	}
	return &a, nil
}

func (r *answerRepository) ListByQuestion(ctx context.Context, questionID uint) ([]models.Answer, error) {
	var answers []models.Answer
	if err := r.db.WithContext(ctx).
		Preload("Author", authorColumns).
		Where("question_id = ?", questionID).
		Order("created_at ASC, id ASC").
		Find(&answers).Error; err != nil {
		return nil, models.NewPersistenceError("list answers", err)
	}
	return answers, nil
}

func (r *answerRepository) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]models.Answer, error) {
	limit, offset = clampPage(limit, offset)
	var answers []models.Answer
	if err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&answers).Error; err != nil {
		return nil, models.NewPersistenceError("list answers", err)
	}
	return answers, nil
}

func (r *answerRepository) Update(ctx context.Context, id uint, content string) error {
	var a models.Answer
	if err := r.db.WithContext(ctx).Select("id", "question_id").First(&a, id).Error; err != nil {
		return lookupError(err, "Answer", id)
	}
	if err := r.db.WithContext(ctx).Model(&models.Answer{}).Where("id = ?", id).Update("content", content).Error; err != nil {
		return models.NewPersistenceError("update answer", err)
	}
	r.cache.InvalidateQuestion(ctx, a.QuestionID)
	return nil
}

// DeleteDetach removes the answer with its votes and notifications and clears its acceptance.
func (r *answerRepository) DeleteDetach(ctx context.Context, id uint) error {
	var c *cascade
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Answer
		if err := forUpdate(tx).First(&a, id).Error; err != nil {
			return lookupError(err, "Answer", id)
		}
		c = newCascade(tx)
		return c.deleteAnswers([]models.Answer{a})
	})
	if err != nil {
		return asAppError("delete answer", err)
	}
	for _, qid := range c.touched.IDs() {
		r.cache.InvalidateQuestion(ctx, qid)
	}
	return nil
}
