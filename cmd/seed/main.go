// Command seed populates a development database with demo Q&A data.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"stackit/internal/config"
	"stackit/internal/database"
	"stackit/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numQuestions := flag.Int("questions", defaults.NumQuestions, "Number of questions to create")
	maxAnswers := flag.Int("max-answers", defaults.MaxAnswers, "Maximum answers per question")
	votesPerUser := flag.Int("votes", defaults.VotesPerUser, "Votes cast by each user")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	seedValue := flag.Int64("seed", time.Now().UnixNano(), "Random seed for generated content")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, *seedValue)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	summary, err := s.Run(ctx, seed.Options{
		NumUsers:     *numUsers,
		NumQuestions: *numQuestions,
		MaxAnswers:   *maxAnswers,
		VotesPerUser: *votesPerUser,
		PasswordCost: defaults.PasswordCost,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d questions, %d answers, %d votes, %d notifications",
		summary.Users, summary.Questions, summary.Answers, summary.Votes, summary.Notifications)
	log.Printf("All demo users have the password: %s", seed.DemoPassword)
}
