package models

import "time"

// Answer is a reply to a question. Votes is mutated only by the vote service.
type Answer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"not null;index" json:"question_id"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Author     *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Votes      Votes     `gorm:"embedded;embeddedPrefix:votes_" json:"votes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (a *Answer) Tally() *Votes { return &a.Votes }
func (a *Answer) OwnerID() uint { return a.AuthorID }
