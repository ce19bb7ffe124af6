package store

import (
	"chatopia-backend/internal/models"
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateConversationParams contains parameters for creating a conversation.
type CreateConversationParams struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
}

// CreateMessageParams contains parameters for appending a message to a conversation.
type CreateMessageParams struct {
	ID             string
	ConversationID string
	Role           models.Role
	Content        string
	CreatedAt      time.Time
}

// Store defines the interface for conversation persistence.
// This allows for mocking in tests and switching between the Postgres and
// Firestore backends.
type Store interface {
	// Conversation operations
	CreateConversation(ctx context.Context, arg CreateConversationParams) (*models.Conversation, error)
	// GetConversation returns ErrNotFound when no conversation has the given id.
	// Ownership is checked by the caller.
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string) ([]models.Conversation, error)
	UpdateConversationTitle(ctx context.Context, id string, title string) error
	TouchConversation(ctx context.Context, id string, updatedAt time.Time) error

	// Message operations
	CreateMessage(ctx context.Context, arg CreateMessageParams) (*models.Message, error)
	// ListMessages returns the messages of a conversation ordered by creation time.
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)

	Close() error
}
