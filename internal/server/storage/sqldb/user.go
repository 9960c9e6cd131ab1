package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/outreach/internal/models"
	"github.com/iudanet/outreach/internal/server/storage"
)

const userColumns = `id, name, email, password_hash, resume_key, resume_name,
		       message_template, gmail_app_password, mail_interval, created_at, updated_at`

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	appPassword, err := s.seal(user.GmailAppPassword)
	if err != nil {
		return fmt.Errorf("failed to seal app password: %w", err)
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `
		INSERT INTO users (name, email, password_hash, resume_key, resume_name,
		                   message_template, gmail_app_password, mail_interval, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err = s.db.QueryRowContext(ctx, s.rebind(query),
		user.Name,
		user.Email,
		user.PasswordHash,
		user.ResumeKey,
		user.ResumeName,
		user.MessageTemplate,
		appPassword,
		user.MailInterval,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		// Проверяем на duplicate email
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return s.getUser(ctx, query, email)
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return s.getUser(ctx, query, userID)
}

func (s *Storage) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}

	err := s.db.QueryRowContext(ctx, s.rebind(query), arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.ResumeKey,
		&user.ResumeName,
		&user.MessageTemplate,
		&user.GmailAppPassword,
		&user.MailInterval,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.GmailAppPassword, err = s.open(user.GmailAppPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to open app password: %w", err)
	}

	return user, nil
}

// UpdateUser updates user profile
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	appPassword, err := s.seal(user.GmailAppPassword)
	if err != nil {
		return fmt.Errorf("failed to seal app password: %w", err)
	}

	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET name = ?, email = ?, resume_key = ?, resume_name = ?, message_template = ?,
		    gmail_app_password = ?, mail_interval = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, s.rebind(query),
		user.Name,
		user.Email,
		user.ResumeKey,
		user.ResumeName,
		user.MessageTemplate,
		appPassword,
		user.MailInterval,
		user.UpdatedAt,
		user.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return expectAffected(result, storage.ErrUserNotFound)
}

// UpdatePassword replaces password hash
func (s *Storage) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, s.rebind(query), passwordHash, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return expectAffected(result, storage.ErrUserNotFound)
}

// expectAffected возвращает notFound, если запрос не затронул ни одной строки
func expectAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return notFound
	}

	return nil
}
