// Command admin manages StackIt administrator accounts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"stackit/internal/config"
	"stackit/internal/database"
	"stackit/internal/models"
	"stackit/internal/repository"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return errors.New("usage: go run ./cmd/admin <promote|demote> <user_id|email> | list-admins")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch strings.ToLower(flag.Arg(0)) {
	case "promote", "demote":
		if flag.NArg() < 2 {
			return usage()
		}
		role := models.RoleAdmin
		if strings.EqualFold(flag.Arg(0), "demote") {
			role = models.RoleUser
		}
		return setRole(ctx, db, flag.Arg(1), role)
	case "list-admins":
		return listAdmins(ctx, db)
	default:
		return usage()
	}
}

func findUser(ctx context.Context, db *gorm.DB, ref string) (*models.User, error) {
	users := repository.NewUserRepository(db, nil)
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return users.GetByID(ctx, uint(id))
	}
	user, err := users.GetByEmail(ctx, ref)
	if err == nil && user == nil {
		return nil, models.NewNotFoundError("User", ref)
	}
	return user, err
}

func setRole(ctx context.Context, db *gorm.DB, ref, role string) error {
	user, err := findUser(ctx, db, ref)
	if err != nil {
		return fmt.Errorf("find user %s: %w", ref, err)
	}
	if user.Role == role {
		fmt.Printf("User %s (ID: %d) already has role %s\n", user.Name, user.ID, role)
		return nil
	}
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("role", role).Error; err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	fmt.Printf("User %s (ID: %d) is now %s\n", user.Name, user.ID, role)
	return nil
}

func listAdmins(ctx context.Context, db *gorm.DB) error {
	var admins []models.User
	if err := db.WithContext(ctx).Where("role = ?", models.RoleAdmin).Order("id").Find(&admins).Error; err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(admins) == 0 {
		fmt.Println("No admins found")
		return nil
	}
	for _, a := range admins {
		fmt.Printf("%d\t%s\t%s\n", a.ID, a.Name, a.Email)
	}
	return nil
}
