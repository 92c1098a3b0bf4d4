package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("invalid input")
	ErrConflict     = errors.New("resource already exists")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrInternal     = errors.New("internal server error")
)
