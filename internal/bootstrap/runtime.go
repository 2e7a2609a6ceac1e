// Package bootstrap connects the runtime dependencies shared by the commands.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stackit/internal/cache"
	"stackit/internal/config"
	"stackit/internal/database"
	"stackit/internal/middleware"
	"stackit/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects to the database and Redis and ensures the development
// root admin. An unreachable Redis leaves a disconnected cache client.
func InitRuntime(cfg *config.Config) (*gorm.DB, *cache.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cacheClient := cache.Init(cfg.RedisURL)

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		_ = cacheClient.Close()
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	return db, cacheClient, nil
}

func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	name := strings.TrimSpace(cfg.DevRootName)
	if name == "" {
		name = "stackit_root"
	}
	email := models.NormalizeEmail(cfg.DevRootEmail)
	if email == "" {
		email = "root@stackit.local"
	}
	if cfg.DevRootPassword == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("email = ?", email).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Name:     name,
				Email:    email,
				Password: string(hashed),
				Role:     models.RoleAdmin,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&models.User{}).Where("id = ?", root.ID).Updates(map[string]any{
				"role":      models.RoleAdmin,
				"is_banned": false,
			}).Error
		}
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development root admin ensured", slog.String("email", email))
	return nil
}
