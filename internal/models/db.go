package models

import (
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Conversation represents a chat thread owned by a single user.
type Conversation struct {
	ID        string    `db:"id" firestore:"-"`
	UserID    string    `db:"user_id" firestore:"user_id"`
	Title     string    `db:"title" firestore:"title"`
	CreatedAt time.Time `db:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `db:"updated_at" firestore:"updated_at"`
}

// OwnedBy reports whether the conversation belongs to userID.
func (c *Conversation) OwnedBy(userID string) bool {
	return c != nil && c.UserID == userID
}

// Message is a single immutable turn inside a conversation.
type Message struct {
	ID             string    `db:"id" firestore:"id"`
	ConversationID string    `db:"conversation_id" firestore:"-"`
	Role           Role      `db:"role" firestore:"role"`
	Content        string    `db:"content" firestore:"content"`
	CreatedAt      time.Time `db:"created_at" firestore:"created_at"`
}
