package repository

import (
	"errors"

	"stackit/internal/models"

	"gorm.io/gorm"
)

var directions = []models.Direction{models.DirectionUp, models.DirectionDown}

// cascade removes content inside one transaction while keeping every vote
// recorded on both sides: a deleted target leaves no id in any voter history
// and a deleted voter leaves no id in any tally.
type cascade struct {
	tx *gorm.DB
	// touched collects questions whose cached detail is stale.
	touched models.IDSet
}

func newCascade(tx *gorm.DB) *cascade {
	return &cascade{tx: tx, touched: models.NewIDSet()}
}

// purgeVoter withdraws every vote cast by voter.
func (c *cascade) purgeVoter(voter *models.User) error {
	for _, kind := range []models.TargetKind{models.TargetQuestion, models.TargetAnswer} {
		for _, d := range directions {
			for _, targetID := range voter.History(kind, d).IDs() {
				target, err := loadTarget(forUpdate(c.tx), kind, targetID)
				if models.HasCode(err, models.CodeNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if !target.Tally().Side(d).Remove(voter.ID) {
					continue
				}
				if err := saveTally(c.tx, kind, targetID, target.Tally()); err != nil {
					return err
				}
				c.touched.Add(questionOf(target))
			}
		}
	}
	return nil
}

// purgeTargetVotes drops targetID from the history of everyone who voted on it.
func (c *cascade) purgeTargetVotes(kind models.TargetKind, targetID uint, tally models.Votes) error {
	for _, d := range directions {
		for _, voterID := range tally.Side(d).IDs() {
			var voter models.User
			if err := forUpdate(c.tx).First(&voter, voterID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}
			if !voter.History(kind, d).Remove(targetID) {
				continue
			}
			if err := saveHistory(c.tx, &voter, kind); err != nil {
				return err
			}
		}
	}
	return nil
}

// deleteAnswers removes answers with their votes and notifications and
// clears any acceptance pointing at them.
func (c *cascade) deleteAnswers(answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(answers))
	for _, a := range answers {
		if err := c.purgeTargetVotes(models.TargetAnswer, a.ID, a.Votes); err != nil {
			return err
		}
		ids = append(ids, a.ID)
		c.touched.Add(a.QuestionID)
	}
	if err := c.tx.Model(&models.Question{}).
		Where("accepted_answer_id IN ?", ids).
		UpdateColumn("accepted_answer_id", nil).Error; err != nil {
		return err
	}
	if err := c.tx.Where("answer_id IN ?", ids).Delete(&models.Notification{}).Error; err != nil {
		return err
	}
	return c.tx.Where("id IN ?", ids).Delete(&models.Answer{}).Error
}

// deleteQuestion removes a question together with its answers.
func (c *cascade) deleteQuestion(q *models.Question) error {
	var answers []models.Answer
	if err := c.tx.Where("question_id = ?", q.ID).Find(&answers).Error; err != nil {
		return err
	}
	if err := c.deleteAnswers(answers); err != nil {
		return err
	}
	if err := c.purgeTargetVotes(models.TargetQuestion, q.ID, q.Votes); err != nil {
		return err
	}
	if err := c.tx.Where("question_id = ?", q.ID).Delete(&models.Notification{}).Error; err != nil {
		return err
	}
	c.touched.Add(q.ID)
	return c.tx.Delete(&models.Question{}, q.ID).Error
}

// deleteUser removes a user, their content, their votes and their notifications.
func (c *cascade) deleteUser(user *models.User) error {
	if err := c.purgeVoter(user); err != nil {
		return err
	}

	var questions []models.Question
	if err := c.tx.Where("author_id = ?", user.ID).Find(&questions).Error; err != nil {
		return err
	}
	for i := range questions {
		if err := c.deleteQuestion(&questions[i]); err != nil {
			return err
		}
	}

	var answers []models.Answer
	if err := c.tx.Where("author_id = ?", user.ID).Find(&answers).Error; err != nil {
		return err
	}
	if err := c.deleteAnswers(answers); err != nil {
		return err
	}

	if err := c.tx.Where("recipient_id = ? OR sender_id = ?", user.ID, user.ID).
		Delete(&models.Notification{}).Error; err != nil {
		return err
	}
	return c.tx.Delete(&models.User{}, user.ID).Error
}
