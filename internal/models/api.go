package models

import (
	"time"
)

// NewConversationID is the conversation_id value that asks the chat endpoint
// to start a fresh conversation.
const NewConversationID = "new"

// --- Request Structs ---

// SendMessageRequest defines the expected body for POST /api/chat.
type SendMessageRequest struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id"`
}

// CreateConversationRequest defines the expected body for POST /api/conversations.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// --- Response Structs ---

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// SendMessageResponse is returned after the assistant reply has been stored.
type SendMessageResponse struct {
	MessageID      string `json:"message_id"`
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id"`
}

// ConversationSummary is one entry of the conversation list.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListConversationsResponse wraps the caller's conversations.
type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

// MessageResponse is a message as rendered for the frontend.
type MessageResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationDetailResponse contains conversation metadata and its messages
// in creation order.
type ConversationDetailResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"createdAt"`
	Messages  []MessageResponse `json:"messages"`
}

// CreateConversationResponse wraps a freshly created conversation.
type CreateConversationResponse struct {
	Conversation ConversationSummary `json:"conversation"`
}

// WelcomeResponse is served at the root when no frontend bundle is mounted.
type WelcomeResponse struct {
	Message string `json:"message"`
}

// --- Mapping helpers ---

// ToSummary converts a stored conversation to its list representation.
func (c *Conversation) ToSummary() ConversationSummary {
	return ConversationSummary{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ToResponse converts a stored message to its API representation.
func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Content:   m.Content,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
}
