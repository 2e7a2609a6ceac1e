// Package seed fills a development database with demo questions, answers
// and votes. Content goes through the service layer so every seeded vote
// keeps voter history and target tallies in agreement.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/repository"
	"stackit/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

var demoTags = []string{
	"go", "sql", "postgres", "redis", "docker", "kubernetes",
	"linux", "react", "python", "testing", "concurrency", "http",
}

// Options controls how much data Run creates.
type Options struct {
	NumUsers     int
	NumQuestions int
	MaxAnswers   int
	VotesPerUser int
	PasswordCost int
}

// DefaultOptions is what cmd/seed uses without flags.
func DefaultOptions() Options {
	return Options{
		NumUsers:     20,
		NumQuestions: 40,
		MaxAnswers:   4,
		VotesPerUser: 15,
		PasswordCost: bcrypt.DefaultCost,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users         int
	Questions     int
	Answers       int
	Votes         int
	Notifications int64
}

// Seeder creates demo content through the service layer.
type Seeder struct {
	db        *gorm.DB
	faker     *gofakeit.Faker
	users     repository.UserRepository
	questions *service.QuestionService
	answers   *service.AnswerService
	votes     *service.VoteService
}

// NewSeeder binds a seeder to db. The same seed yields the same content.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	users := repository.NewUserRepository(db, nil)
	questionRepo := repository.NewQuestionRepository(db, nil)
	answerRepo := repository.NewAnswerRepository(db, nil)
	notifier := service.NewNotificationService(repository.NewNotificationRepository(db), users, nil)

	return &Seeder{
		db:        db,
		faker:     gofakeit.New(seed),
		users:     users,
		questions: service.NewQuestionService(questionRepo, answerRepo, users),
		answers:   service.NewAnswerService(answerRepo, questionRepo, users, notifier),
		votes:     service.NewVoteService(repository.NewVoteStore(db, nil), nil, nil),
	}
}

// ClearAll deletes every row the seeder can create.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{&models.Notification{}, &models.Answer{}, &models.Question{}, &models.User{}} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	middleware.Logger.Info("seed: database cleared")
	return nil
}

// Run creates users, then questions, answers and votes among them.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.NumUsers < 2 {
		return nil, fmt.Errorf("at least 2 users are required, got %d", opts.NumUsers)
	}
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}

	summary := &Summary{}

	users, err := s.createUsers(ctx, opts.NumUsers, opts.PasswordCost)
	if err != nil {
		return nil, err
	}
	summary.Users = len(users)

	var questions []*models.Question
	var answers []*models.Answer
	for i := 0; i < opts.NumQuestions; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		q, err := s.questions.Create(ctx, service.CreateQuestionInput{
			AuthorID:    author.ID,
			Title:       s.title(),
			Description: s.faker.Paragraph(1, 3, 12, "\n\n"),
			Tags:        s.tags(),
		})
		if err != nil {
			return nil, fmt.Errorf("create question: %w", err)
		}
		questions = append(questions, q)

		for j := s.faker.Number(0, opts.MaxAnswers); j > 0; j-- {
			answerer := users[s.faker.Number(0, len(users)-1)]
			a, err := s.answers.Create(ctx, service.CreateAnswerInput{
				AuthorID:   answerer.ID,
				QuestionID: q.ID,
				Content:    s.faker.Paragraph(1, 2, 15, "\n\n"),
			})
			if err != nil {
				return nil, fmt.Errorf("create answer: %w", err)
			}
			answers = append(answers, a)
		}
	}
	summary.Questions = len(questions)
	summary.Answers = len(answers)

	for _, voter := range users {
		for k := 0; k < opts.VotesPerUser && len(questions) > 0; k++ {
			in := service.ApplyVoteInput{ActorID: voter.ID, Direction: s.direction()}
			if len(answers) > 0 && s.faker.Bool() {
				in.Kind, in.TargetID = models.TargetAnswer, answers[s.faker.Number(0, len(answers)-1)].ID
			} else {
				in.Kind, in.TargetID = models.TargetQuestion, questions[s.faker.Number(0, len(questions)-1)].ID
			}
			if _, err := s.votes.ApplyVote(ctx, in); err != nil {
				return nil, fmt.Errorf("apply vote: %w", err)
			}
			summary.Votes++
		}
	}

	if err := s.db.WithContext(ctx).Model(&models.Notification{}).Count(&summary.Notifications).Error; err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	middleware.Logger.Info("seed: completed",
		slog.Int("users", summary.Users),
		slog.Int("questions", summary.Questions),
		slog.Int("answers", summary.Answers),
		slog.Int("votes", summary.Votes),
		slog.Int64("notifications", summary.Notifications),
	)
	return summary, nil
}

func (s *Seeder) createUsers(ctx context.Context, n, cost int) ([]*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		first, last := s.faker.FirstName(), s.faker.LastName()
		u := &models.User{
			Name:     first + " " + last,
			Email:    fmt.Sprintf("%s.%s.%d@stackit.dev", strings.ToLower(first), strings.ToLower(last), i),
			Password: string(hashed),
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Seeder) title() string {
	sentence := strings.TrimRight(s.faker.Sentence(s.faker.Number(5, 12)), ".")
	return sentence + "?"
}

func (s *Seeder) tags() []string {
	n := s.faker.Number(1, 3)
	tags := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tags = append(tags, demoTags[s.faker.Number(0, len(demoTags)-1)])
	}
	return tags
}

func (s *Seeder) direction() models.Direction {
	// upvotes outnumber downvotes roughly three to one
	if s.faker.Number(1, 4) == 1 {
		return models.DirectionDown
	}
	return models.DirectionUp
}
