package storage

import (
	"context"

	"github.com/iudanet/outreach/internal/models"
)

// UserStorage defines interface for user data persistence
type UserStorage interface {
	// CreateUser creates a new user and fills user.ID
	// Returns ErrUserAlreadyExists if email is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves user by email
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)

	// UpdateUser updates profile fields (everything except the password hash)
	// Returns ErrUserNotFound if user doesn't exist, ErrUserAlreadyExists if the new email is taken
	UpdateUser(ctx context.Context, user *models.User) error

	// UpdatePassword replaces the stored credential
	// Returns ErrUserNotFound if user doesn't exist
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}
