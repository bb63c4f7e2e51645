package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("car is not available")
	ErrInvalidDateRange  = errors.New("invalid date range")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid booking status")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidInput      = errors.New("invalid input")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many requests")
)
