package repository

import (
	"context"

	"stackit/internal/cache"
	"stackit/internal/models"

	"gorm.io/gorm"
)

// QuestionFilter narrows question listings.
type QuestionFilter struct {
	Tag         string
	AuthorID    uint
	WithAnswers bool
	Limit       int
	Offset      int
}

// QuestionRepository defines persistence operations for questions.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetWithAnswers(ctx context.Context, id uint) (*models.Question, error)
	List(ctx context.Context, filter QuestionFilter) ([]models.Question, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	SetAcceptedAnswer(ctx context.Context, id uint, answerID *uint) error
	DeleteCascade(ctx context.Context, id uint) error
}

type questionRepository struct {
	db    *gorm.DB
	cache *cache.Client
}

// NewQuestionRepository returns a new QuestionRepository implementation.
func NewQuestionRepository(db *gorm.DB, cacheClient *cache.Client) QuestionRepository {
	return &questionRepository{db: db, cache: cacheClient}
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Answers").Create(question).Error; err != nil {
		return models.NewPersistenceError("create question", err)
	}
	return nil
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	if err := r.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, lookupError(err, "Question", id)
	}
	return &q, nil
}

// GetWithAnswers returns the question with its author and answers, served from cache when warm.
func (r *questionRepository) GetWithAnswers(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	err := r.cache.Aside(ctx, cache.QuestionKey(id), &q, cache.QuestionTTL, func() error {
		if err := r.db.WithContext(ctx).
			Preload("Author", authorColumns).
			Preload("Answers", func(db *gorm.DB) *gorm.DB {
				return db.Order("created_at ASC, id ASC")
			}).
			Preload("Answers.Author", authorColumns).
			First(&q, id).Error; err != nil {
			return lookupError(err, "Question", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionRepository) List(ctx context.Context, filter QuestionFilter) ([]models.Question, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)
	query := r.db.WithContext(ctx).Preload("Author", authorColumns)
	if filter.Tag != "" {
		query = withTag(query, filter.Tag)
	}
	if filter.AuthorID != 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if filter.WithAnswers {
		query = query.Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).Preload("Answers.Author", authorColumns)
	}

	var questions []models.Question
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&questions).Error; err != nil {
		return nil, models.NewPersistenceError("list questions", err)
	}
	return questions, nil
}

// withTag filters on the JSON tags column. PostgreSQL uses jsonb containment;
// other dialects match the quoted element in the serialized array.
func withTag(db *gorm.DB, tag string) *gorm.DB {
	v, _ := models.Tags{tag}.Value()
	encoded := v.(string)
	if db.Dialector.Name() == "postgres" {
		return db.Where("tags @> ?", encoded)
	}
	return db.Where("tags LIKE ?", "%"+encoded[1:len(encoded)-1]+"%")
}

func (r *questionRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewPersistenceError("update question", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Question", id)
	}
	r.cache.InvalidateQuestion(ctx, id)
	return nil
}

func (r *questionRepository) SetAcceptedAnswer(ctx context.Context, id uint, answerID *uint) error {
	res := r.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).Update("accepted_answer_id", answerID)
	if res.Error != nil {
		return models.NewPersistenceError("update question", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Question", id)
	}
	r.cache.InvalidateQuestion(ctx, id)
	return nil
}

// DeleteCascade removes the question with its answers, votes and notifications.
func (r *questionRepository) DeleteCascade(ctx context.Context, id uint) error {
	var c *cascade
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Question
		if err := forUpdate(tx).First(&q, id).Error; err != nil {
			return lookupError(err, "Question", id)
		}
		c = newCascade(tx)
		return c.deleteQuestion(&q)
	})
	if err != nil {
		return asAppError("delete question", err)
	}
	for _, qid := range c.touched.IDs() {
		r.cache.InvalidateQuestion(ctx, qid)
	}
	return nil
}
