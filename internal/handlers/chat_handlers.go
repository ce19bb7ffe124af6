package handlers

import (
	"chatopia-backend/internal/models"
	"chatopia-backend/pkg/httputil"
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ChatService defines the interface expected from the chat service.
type ChatService interface {
	SendMessage(ctx context.Context, userID, conversationID, content string) (*models.SendMessageResponse, error)
	ListConversations(ctx context.Context, userID string) (*models.ListConversationsResponse, error)
	GetConversation(ctx context.Context, userID, conversationID string) (*models.ConversationDetailResponse, error)
	CreateConversation(ctx context.Context, userID, title string) (*models.CreateConversationResponse, error)
}

// ChatHandlers handles HTTP requests related to chats and conversations.
type ChatHandlers struct {
	chatService ChatService
	logger      *zap.Logger
}

// NewChatHandlers creates a new ChatHandlers instance.
func NewChatHandlers(chatService ChatService, logger *zap.Logger) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatService,
		logger:      logger.Named("handlers"),
	}
}

// HandleSendMessage handles POST /api/chat.
func (h *ChatHandlers) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.chatService.SendMessage(r.Context(), userID, req.ConversationID, req.Content)
	if err != nil {
		respondServiceError(w, r, h.logger, "send_message", err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleListConversations handles GET /api/conversations.
func (h *ChatHandlers) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	resp, err := h.chatService.ListConversations(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, "list_conversations", err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGetConversation handles GET /api/conversations/{conversationID}.
func (h *ChatHandlers) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	resp, err := h.chatService.GetConversation(r.Context(), userID, conversationID)
	if err != nil {
		respondServiceError(w, r, h.logger, "get_conversation", err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleCreateConversation handles POST /api/conversations.
func (h *ChatHandlers) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.RespondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.chatService.CreateConversation(r.Context(), userID, req.Title)
	if err != nil {
		respondServiceError(w, r, h.logger, "create_conversation", err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
