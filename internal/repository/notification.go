package repository

import (
	"context"

	"stackit/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID uint, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID uint) (int64, error)
	MarkRead(ctx context.Context, recipientID, id uint) error
	MarkAllRead(ctx context.Context, recipientID uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Omit("Sender", "Question").Create(n).Error; err != nil {
		return models.NewPersistenceError("create notification", err)
	}
	return nil
}

// ListByRecipient returns the newest notifications first.
func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID uint, limit int) ([]models.Notification, error) {
	limit, _ = clampPage(limit, 0)
	var out []models.Notification
	if err := r.db.WithContext(ctx).
		Preload("Sender", authorColumns).
		Preload("Question", func(db *gorm.DB) *gorm.DB { return db.Select("id", "title") }).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, models.NewPersistenceError("list notifications", err)
	}
	return out, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error; err != nil {
		return 0, models.NewPersistenceError("count notifications", err)
	}
	return n, nil
}

// MarkRead flags one notification as read. It is NotFound unless the
// notification exists and belongs to recipientID; marking twice is a no-op.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("is_read", true)
	if res.Error != nil {
		return models.NewPersistenceError("update notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Notification", id)
	}
	return nil
}

// MarkAllRead flags every unread notification of recipientID and returns how many changed.
func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, models.NewPersistenceError("update notifications", res.Error)
	}
	return res.RowsAffected, nil
}
