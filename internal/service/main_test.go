package service

import (
	"context"
	"errors"
	"testing"

	"stackit/internal/cache"
	"stackit/internal/database"
	"stackit/internal/models"
	"stackit/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn    func(context.Context, uint) (*models.User, error)
	getByEmailFn func(context.Context, string) (*models.User, error)
	createFn     func(context.Context, *models.User) error
	listFn       func(context.Context, int, int) ([]models.User, error)
	countFn      func(context.Context) (int64, error)
	setBannedFn  func(context.Context, uint, bool) error
	deleteFn     func(context.Context, uint) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *userRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *userRepoStub) SetBanned(ctx context.Context, id uint, banned bool) error {
	return s.setBannedFn(ctx, id, banned)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Name: "user"}, nil
		},
		getByEmailFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:     func(_ context.Context, _ *models.User) error { return nil },
		listFn:       func(_ context.Context, _, _ int) ([]models.User, error) { return nil, nil },
		countFn:      func(_ context.Context) (int64, error) { return 0, nil },
		setBannedFn:  func(_ context.Context, _ uint, _ bool) error { return nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
	}
}

// notificationRepoStub is a stub for repository.NotificationRepository.
type notificationRepoStub struct {
	createFn          func(context.Context, *models.Notification) error
	listByRecipientFn func(context.Context, uint, int) ([]models.Notification, error)
	countUnreadFn     func(context.Context, uint) (int64, error)
	markReadFn        func(context.Context, uint, uint) error
	markAllReadFn     func(context.Context, uint) (int64, error)
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	return s.createFn(ctx, n)
}
func (s *notificationRepoStub) ListByRecipient(ctx context.Context, recipientID uint, limit int) ([]models.Notification, error) {
	return s.listByRecipientFn(ctx, recipientID, limit)
}
func (s *notificationRepoStub) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	return s.countUnreadFn(ctx, recipientID)
}
func (s *notificationRepoStub) MarkRead(ctx context.Context, recipientID, id uint) error {
	return s.markReadFn(ctx, recipientID, id)
}
func (s *notificationRepoStub) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	return s.markAllReadFn(ctx, recipientID)
}

func noopNotificationRepo() *notificationRepoStub {
	var nextID uint
	return &notificationRepoStub{
		createFn: func(_ context.Context, n *models.Notification) error {
			nextID++
			n.ID = nextID
			return nil
		},
		listByRecipientFn: func(_ context.Context, _ uint, _ int) ([]models.Notification, error) { return nil, nil },
		countUnreadFn:     func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		markReadFn:        func(_ context.Context, _, _ uint) error { return nil },
		markAllReadFn:     func(_ context.Context, _ uint) (int64, error) { return 0, nil },
	}
}

// voteStoreStub runs the mutation against in-memory rows.
type voteStoreStub struct {
	applyFn func(context.Context, uint, models.TargetKind, uint, repository.VoteMutation) (models.Votable, error)
}

func (s *voteStoreStub) Apply(ctx context.Context, voterID uint, kind models.TargetKind, targetID uint, mutate repository.VoteMutation) (models.Votable, error) {
	return s.applyFn(ctx, voterID, kind, targetID, mutate)
}

func memoryVoteStore(voter *models.User, target models.Votable) *voteStoreStub {
	return &voteStoreStub{
		applyFn: func(_ context.Context, _ uint, _ models.TargetKind, _ uint, mutate repository.VoteMutation) (models.Votable, error) {
			if err := mutate(voter, target); err != nil {
				return nil, err
			}
			return target, nil
		},
	}
}

type publisherStub struct {
	published []*models.Notification
	err       error
}

func (p *publisherStub) PublishNotification(_ context.Context, n *models.Notification) error {
	p.published = append(p.published, n)
	return p.err
}

type voteNotifierStub struct {
	events []VoteEvent
}

func (n *voteNotifierStub) NotifyOnVote(_ context.Context, ev VoteEvent) *models.Notification {
	n.events = append(n.events, ev)
	return &models.Notification{}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// setupSQLiteDB opens a migrated in-memory database pinned to one connection.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupCache(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

// stack wires the real repositories over one database.
type stack struct {
	db            *gorm.DB
	users         repository.UserRepository
	questions     repository.QuestionRepository
	answers       repository.AnswerRepository
	notifications repository.NotificationRepository
	votes         repository.VoteStore
}

func newStack(t *testing.T, cacheClient *cache.Client) *stack {
	t.Helper()
	db := setupSQLiteDB(t)
	return &stack{
		db:            db,
		users:         repository.NewUserRepository(db, cacheClient),
		questions:     repository.NewQuestionRepository(db, cacheClient),
		answers:       repository.NewAnswerRepository(db, cacheClient),
		notifications: repository.NewNotificationRepository(db),
		votes:         repository.NewVoteStore(db, cacheClient),
	}
}

func (s *stack) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Password: "hash"}
	require.NoError(t, s.db.Create(u).Error)
	return u
}

func (s *stack) question(t *testing.T, authorID uint, title string) *models.Question {
	t.Helper()
	q := &models.Question{Title: title, Description: "details", AuthorID: authorID, Tags: models.Tags{"go"}}
	require.NoError(t, s.db.Create(q).Error)
	return q
}

func (s *stack) answer(t *testing.T, questionID, authorID uint) *models.Answer {
	t.Helper()
	a := &models.Answer{QuestionID: questionID, AuthorID: authorID, Content: "try this"}
	require.NoError(t, s.db.Create(a).Error)
	return a
}

func (s *stack) reloadUser(t *testing.T, id uint) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, s.db.First(&u, id).Error)
	return u
}
