package services

import "errors"

// Errors returned by ChatService. Handlers map them to status codes with errors.Is.
var (
	ErrValidation       = errors.New("input validation failed")
	ErrNotFound         = errors.New("conversation not found")
	ErrGenerationFailed = errors.New("failed to generate response")
)
