package service

import (
	"context"
	"log/slog"

	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/observability"
	"stackit/internal/repository"
)

const maxNotificationPage = 20

// Publisher pushes persisted notifications to connected clients.
type Publisher interface {
	PublishNotification(ctx context.Context, n *models.Notification) error
}

// VoteEvent describes a vote that may be reported to the content author.
type VoteEvent struct {
	ActorID     uint
	ActorName   string
	RecipientID uint
	Kind        models.TargetKind
	Direction   models.Direction
	QuestionID  uint
	AnswerID    *uint
}

// NotificationService creates and reads notifications. Creation is best
// effort: failures are logged and counted, never returned.
type NotificationService struct {
	repo      repository.NotificationRepository
	users     repository.UserRepository
	publisher Publisher
}

func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, publisher Publisher) *NotificationService {
	return &NotificationService{repo: repo, users: users, publisher: publisher}
}

// NotifyOnAnswer tells the question's author about a new answer. It returns
// nil when the author answered their own question or when delivery failed.
func (s *NotificationService) NotifyOnAnswer(ctx context.Context, question *models.Question, answerAuthorID uint, answer *models.Answer) *models.Notification {
	if question == nil || answer == nil || question.AuthorID == answerAuthorID {
		return nil
	}

	sender, err := s.users.GetByID(ctx, answerAuthorID)
	if err != nil {
		s.fail(ctx, models.NotificationAnswer, "lookup", err, question.AuthorID, answerAuthorID)
		return nil
	}

	qid, aid := question.ID, answer.ID
	return s.deliver(ctx, &models.Notification{
		RecipientID: question.AuthorID,
		SenderID:    answerAuthorID,
		Type:        models.NotificationAnswer,
		Message:     models.AnswerMessage(sender.Name, question.Title),
		QuestionID:  &qid,
		AnswerID:    &aid,
		IsRead:      false,
	})
}

// NotifyOnVote tells the content author about a vote. Votes on one's own
// content are never reported.
func (s *NotificationService) NotifyOnVote(ctx context.Context, ev VoteEvent) *models.Notification {
	if ev.RecipientID == 0 || ev.RecipientID == ev.ActorID {
		return nil
	}

	typ := models.NotificationUpvote
	if ev.Direction == models.DirectionDown {
		typ = models.NotificationDownvote
	}

	name := ev.ActorName
	if name == "" {
		sender, err := s.users.GetByID(ctx, ev.ActorID)
		if err != nil {
			s.fail(ctx, typ, "lookup", err, ev.RecipientID, ev.ActorID)
			return nil
		}
		name = sender.Name
	}

	var questionID *uint
	if ev.QuestionID != 0 {
		qid := ev.QuestionID
		questionID = &qid
	}
	return s.deliver(ctx, &models.Notification{
		RecipientID: ev.RecipientID,
		SenderID:    ev.ActorID,
		Type:        typ,
		Message:     models.VoteMessage(name, ev.Kind, ev.Direction),
		QuestionID:  questionID,
		AnswerID:    ev.AnswerID,
	})
}

func (s *NotificationService) deliver(ctx context.Context, n *models.Notification) *models.Notification {
	if err := s.repo.Create(ctx, n); err != nil {
		s.fail(ctx, n.Type, "persist", err, n.RecipientID, n.SenderID)
		return nil
	}
	observability.NotificationsCreated.WithLabelValues(n.Type).Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishNotification(ctx, n); err != nil {
			s.fail(ctx, n.Type, "publish", err, n.RecipientID, n.SenderID)
		}
	}
	return n
}

func (s *NotificationService) fail(ctx context.Context, typ, stage string, err error, recipientID, senderID uint) {
	observability.NotificationFailures.WithLabelValues(typ, stage).Inc()
	middleware.Logger.WarnContext(ctx, "notification dropped",
		slog.String("type", typ),
		slog.String("stage", stage),
		slog.Uint64("recipient_id", uint64(recipientID)),
		slog.Uint64("sender_id", uint64(senderID)),
		slog.String("error", err.Error()),
	)
}

// List returns the recipient's newest notifications.
func (s *NotificationService) List(ctx context.Context, recipientID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > maxNotificationPage {
		limit = maxNotificationPage
	}
	return s.repo.ListByRecipient(ctx, recipientID, limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	return s.repo.CountUnread(ctx, recipientID)
}

// MarkRead marks one of the recipient's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, notificationID uint) error {
	return s.repo.MarkRead(ctx, recipientID, notificationID)
}

// MarkAllRead marks every unread notification of the recipient and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, recipientID)
}
