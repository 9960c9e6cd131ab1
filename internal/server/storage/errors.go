package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrCompanyNotFound indicates that company was not found or belongs to another user
	ErrCompanyNotFound = errors.New("company not found")

	// ErrCompanyAlreadyExists indicates that company with this email already exists
	ErrCompanyAlreadyExists = errors.New("company already exists")
)
