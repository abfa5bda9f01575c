package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConversationClosed = errors.New("conversation is closed")
	ErrInternal           = errors.New("internal server error")
)
