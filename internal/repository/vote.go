package repository

import (
	"context"
	"errors"

	"stackit/internal/cache"
	"stackit/internal/models"

	"gorm.io/gorm"
)

// VoteMutation changes the locked voter and target in place. Returning an
// error rolls back both.
type VoteMutation func(voter *models.User, target models.Votable) error

// VoteStore persists a vote as one atomic unit: the voter's history sets and
// the target's tally are written in the same transaction or not at all.
type VoteStore interface {
	Apply(ctx context.Context, voterID uint, kind models.TargetKind, targetID uint, mutate VoteMutation) (models.Votable, error)
}

type voteStore struct {
	db    *gorm.DB
	cache *cache.Client
}

// NewVoteStore returns the transactional VoteStore.
func NewVoteStore(db *gorm.DB, cacheClient *cache.Client) VoteStore {
	return &voteStore{db: db, cache: cacheClient}
}

// Apply locks the voter row, then the target row, runs mutate and writes both back.
func (s *voteStore) Apply(ctx context.Context, voterID uint, kind models.TargetKind, targetID uint, mutate VoteMutation) (models.Votable, error) {
	if !kind.Valid() {
		return nil, models.NewValidationError("Invalid vote target")
	}

	var target models.Votable
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var voter models.User
		if err := forUpdate(tx).First(&voter, voterID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewForbiddenError("Voter account not found")
			}
			return models.NewPersistenceError("load voter", err)
		}

		t, err := loadTarget(forUpdate(tx), kind, targetID)
		if err != nil {
			return err
		}

		if err := mutate(&voter, t); err != nil {
			return err
		}

		if err := saveHistory(tx, &voter, kind); err != nil {
			return models.NewPersistenceError("record vote", err)
		}
		if err := saveTally(tx, kind, targetID, t.Tally()); err != nil {
			return models.NewPersistenceError("record vote", err)
		}
		target = t
		return nil
	})
	if err != nil {
		return nil, asAppError("record vote", err)
	}

	s.cache.InvalidateQuestion(ctx, questionOf(target))
	return target, nil
}

func loadTarget(tx *gorm.DB, kind models.TargetKind, id uint) (models.Votable, error) {
	switch kind {
	case models.TargetQuestion:
		var q models.Question
		if err := tx.First(&q, id).Error; err != nil {
			return nil, lookupError(err, "Question", id)
		}
		return &q, nil
	case models.TargetAnswer:
		var a models.Answer
		if err := tx.First(&a, id).Error; err != nil {
			return nil, lookupError(err, "Answer", id)
		}
		return &a, nil
	}
	return nil, models.NewValidationError("Invalid vote target")
}

func targetModel(kind models.TargetKind) interface{} {
	if kind == models.TargetQuestion {
		return &models.Question{}
	}
	return &models.Answer{}
}

// questionOf returns the question whose cached detail embeds target.
func questionOf(target models.Votable) uint {
	switch t := target.(type) {
	case *models.Question:
		return t.ID
	case *models.Answer:
		return t.QuestionID
	}
	return 0
}

func saveHistory(tx *gorm.DB, voter *models.User, kind models.TargetKind) error {
	up, down := models.HistoryColumns(kind)
	return tx.Model(&models.User{}).Where("id = ?", voter.ID).UpdateColumns(map[string]interface{}{
		up:   *voter.History(kind, models.DirectionUp),
		down: *voter.History(kind, models.DirectionDown),
	}).Error
}

func saveTally(tx *gorm.DB, kind models.TargetKind, targetID uint, tally *models.Votes) error {
	return tx.Model(targetModel(kind)).Where("id = ?", targetID).UpdateColumns(map[string]interface{}{
		"votes_upvotes":   tally.Upvotes,
		"votes_downvotes": tally.Downvotes,
	}).Error
}
