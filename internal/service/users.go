package service

import (
	"context"

	"stackit/internal/models"
	"stackit/internal/repository"
)

// requireActiveUser loads the acting user and refuses missing or banned accounts.
func requireActiveUser(ctx context.Context, users repository.UserRepository, id uint) (*models.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewForbiddenError("Account not found")
		}
		return nil, err
	}
	if user.IsBanned {
		return nil, models.NewForbiddenError("Your account is banned")
	}
	return user, nil
}

// publicAuthor strips a user down to the fields shown next to content.
func publicAuthor(u *models.User) *models.User {
	return &models.User{ID: u.ID, Name: u.Name}
}
