package models

import (
	"fmt"
	"time"
)

const (
	NotificationAnswer   = "answer"
	NotificationUpvote   = "upvote"
	NotificationDownvote = "downvote"
)

// Notification tells a user that something happened to their content.
// RecipientID never equals SenderID.
type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RecipientID uint      `gorm:"not null;index:idx_notifications_recipient_read" json:"recipient_id"`
	SenderID    uint      `gorm:"not null" json:"sender_id"`
	Sender      *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Type        string    `gorm:"size:16;not null" json:"type"`
	Message     string    `gorm:"not null" json:"message"`
	QuestionID  *uint     `gorm:"index" json:"question_id,omitempty"`
	Question    *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	AnswerID    *uint     `gorm:"index" json:"answer_id,omitempty"`
	IsRead      bool      `gorm:"not null;default:false;index:idx_notifications_recipient_read" json:"is_read"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// AnswerMessage composes the message shown for a new answer.
func AnswerMessage(senderName, questionTitle string) string {
	return fmt.Sprintf("%s answered your question: %s", senderName, questionTitle)
}

// VoteMessage composes the message shown for a vote on the recipient's content.
func VoteMessage(senderName string, kind TargetKind, d Direction) string {
	verb := "upvoted"
	if d == DirectionDown {
		verb = "downvoted"
	}
	return fmt.Sprintf("%s %s your %s", senderName, verb, kind)
}
