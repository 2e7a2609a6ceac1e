package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Question is a user-asked question. Votes is mutated only by the vote service.
type Question struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Title            string    `gorm:"size:150;not null" json:"title"`
	Description      string    `gorm:"type:text;not null" json:"description"`
	Tags             Tags      `json:"tags"`
	AuthorID         uint      `gorm:"not null;index" json:"author_id"`
	Author           *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Votes            Votes     `gorm:"embedded;embeddedPrefix:votes_" json:"votes"`
	Answers          []Answer  `gorm:"foreignKey:QuestionID" json:"answers,omitempty"`
	AcceptedAnswerID *uint     `gorm:"index" json:"accepted_answer_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (q *Question) Tally() *Votes { return &q.Votes }
func (q *Question) OwnerID() uint { return q.AuthorID }

// Tags is an ordered list of distinct question tags.
type Tags []string

// NormalizeTags trims, lowercases and deduplicates tags, keeping first-seen order.
func NormalizeTags(raw []string) Tags {
	seen := make(map[string]struct{}, len(raw))
	out := make(Tags, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Tags) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("tags: unsupported scan type %T", value)
	}
	if len(data) == 0 {
		*t = Tags{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*t = out
	return nil
}

func (Tags) GormDataType() string {
	return "json"
}

func (Tags) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}
