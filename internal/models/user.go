// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a StackIt account along with its vote history.
type User struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"not null" json:"name"`
	Email              string    `gorm:"uniqueIndex;not null" json:"email"`
	Password           string    `gorm:"not null" json:"-"`
	Role               string    `gorm:"not null;default:user" json:"role"`
	IsBanned           bool      `gorm:"not null;default:false" json:"is_banned"`
	UpvotedQuestions   IDSet     `json:"upvoted_questions"`
	DownvotedQuestions IDSet     `json:"downvoted_questions"`
	UpvotedAnswers     IDSet     `json:"upvoted_answers"`
	DownvotedAnswers   IDSet     `json:"downvoted_answers"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeSave keeps emails in their canonical form.
func (u *User) BeforeSave(_ *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// History returns the user's history set for kind and direction.
func (u *User) History(kind TargetKind, d Direction) *IDSet {
	switch {
	case kind == TargetQuestion && d == DirectionUp:
		return &u.UpvotedQuestions
	case kind == TargetQuestion:
		return &u.DownvotedQuestions
	case d == DirectionUp:
		return &u.UpvotedAnswers
	default:
		return &u.DownvotedAnswers
	}
}

// HistoryColumns names the columns backing the up and down history sets of kind.
func HistoryColumns(kind TargetKind) (up, down string) {
	if kind == TargetQuestion {
		return "upvoted_questions", "downvoted_questions"
	}
	return "upvoted_answers", "downvoted_answers"
}
