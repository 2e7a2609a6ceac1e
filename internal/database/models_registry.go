package database

import "stackit/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Question{},
		&models.Answer{},
		&models.Notification{},
	}
}
