package chat_errors

import "errors"

// Common errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAttachmentRejected = errors.New("attachment rejected")
	ErrTooLarge           = errors.New("file too large")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrAlreadyExists      = errors.New("already exists")
)
