package services

import (
	"chatopia-backend/internal/llm"
	"chatopia-backend/internal/models"
	"chatopia-backend/internal/store"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultGenerationTimeout bounds each call to the model when no timeout is configured.
const DefaultGenerationTimeout = 30 * time.Second

const maxCreateTitleLength = 200

// Generator produces model text for a prompt, optionally continuing prior turns.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []llm.Turn) (string, error)
}

// ChatService handles conversation orchestration: ownership checks, history
// assembly, generation and persistence of both turns.
type ChatService struct {
	store             store.Store
	generator         Generator
	logger            *zap.Logger
	generationTimeout time.Duration

	now   func() time.Time
	newID func() string
}

// NewChatService creates a new ChatService.
func NewChatService(s store.Store, gen Generator, logger *zap.Logger, generationTimeout time.Duration) *ChatService {
	if generationTimeout <= 0 {
		generationTimeout = DefaultGenerationTimeout
	}
	return &ChatService{
		store:             s,
		generator:         gen,
		logger:            logger.Named("chat"),
		generationTimeout: generationTimeout,
		now:               func() time.Time { return time.Now().UTC() },
		newID:             func() string { return uuid.NewString() },
	}
}

// SendMessage stores the user's message, asks the model for a reply, stores
// the reply and returns it. conversationID may be models.NewConversationID.
//
// Writes are not rolled back: if generation fails the user message stays saved.
func (s *ChatService) SendMessage(ctx context.Context, userID, conversationID, content string) (*models.SendMessageResponse, error) {
	if err := validation.Validate(strings.TrimSpace(content), validation.Required.Error("content is required")); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validation.Validate(conversationID, validation.Required.Error("conversation_id is required")); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	log := s.logger.With(zap.String("user_id", userID))
	placeholder := PlaceholderTitle(content)

	conv, err := s.resolveConversation(ctx, userID, conversationID, placeholder)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("conversation_id", conv.ID))

	prior, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	if len(prior) == 0 && conv.Title != placeholder {
		if err := s.store.UpdateConversationTitle(ctx, conv.ID, placeholder); err != nil {
			return nil, fmt.Errorf("failed to set initial title: %w", err)
		}
		conv.Title = placeholder
	}

	userMsg, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
		ID:             s.newID(),
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Content:        content,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	history := llm.TurnsFromMessages(append(prior, *userMsg))
	reply, err := s.generate(ctx, content, history)
	if err != nil {
		log.Error("generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	assistantMsg, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
		ID:             s.newID(),
		ConversationID: conv.ID,
		Role:           models.RoleAssistant,
		Content:        reply,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	if err := s.store.TouchConversation(ctx, conv.ID, assistantMsg.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to update conversation timestamp: %w", err)
	}

	s.improveTitle(ctx, log, conv.ID, content, placeholder)

	log.Info("message exchanged",
		zap.String("user_message_id", userMsg.ID),
		zap.String("assistant_message_id", assistantMsg.ID),
		zap.Int("history_turns", len(history)),
	)

	return &models.SendMessageResponse{
		MessageID:      assistantMsg.ID,
		Content:        assistantMsg.Content,
		ConversationID: conv.ID,
	}, nil
}

// resolveConversation returns the caller's conversation, or creates one when
// conversationID is the "new" sentinel. Foreign and missing ids are ErrNotFound.
func (s *ChatService) resolveConversation(ctx context.Context, userID, conversationID, title string) (*models.Conversation, error) {
	if conversationID != models.NewConversationID {
		conv, err := s.ownedConversation(ctx, userID, conversationID)
		if err != nil {
			return nil, err
		}
		return conv, nil
	}

	conv, err := s.store.CreateConversation(ctx, store.CreateConversationParams{
		ID:        s.newID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	s.logger.Info("conversation created", zap.String("conversation_id", conv.ID), zap.String("user_id", userID))
	return conv, nil
}

func (s *ChatService) ownedConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, conversationID)
		}
		return nil, fmt.Errorf("failed to get conversation from store: %w", err)
	}
	if !conv.OwnedBy(userID) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}
	return conv, nil
}

// generate calls the model under the configured timeout.
func (s *ChatService) generate(ctx context.Context, prompt string, history []llm.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	text, err := s.generator.Generate(ctx, prompt, history)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("generation timed out after %s: %w", s.generationTimeout, err)
		}
		return "", err
	}
	return text, nil
}

// improveTitle replaces the placeholder title with a short model-written one.
// It never fails the request; a renamed conversation is left alone.
func (s *ChatService) improveTitle(ctx context.Context, log *zap.Logger, conversationID, content, placeholder string) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		log.Warn("title refresh skipped", zap.Error(err))
		return
	}
	if conv.Title != placeholder {
		return
	}

	raw, err := s.generate(ctx, titlePrompt(content), nil)
	if err != nil {
		log.Warn("title generation failed", zap.Error(err))
		return
	}
	title := CleanGeneratedTitle(raw)
	if title == "" {
		return
	}

	if err := s.store.UpdateConversationTitle(ctx, conversationID, title); err != nil {
		log.Warn("title update failed", zap.Error(err))
		return
	}
	log.Debug("title generated", zap.String("title", title))
}

// ListConversations returns every conversation owned by userID.
func (s *ChatService) ListConversations(ctx context.Context, userID string) (*models.ListConversationsResponse, error) {
	convs, err := s.store.ListConversationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations from store: %w", err)
	}

	resp := &models.ListConversationsResponse{
		Conversations: make([]models.ConversationSummary, 0, len(convs)),
	}
	for i := range convs {
		resp.Conversations = append(resp.Conversations, convs[i].ToSummary())
	}
	return resp, nil
}

// GetConversation returns the conversation and its messages in creation order.
func (s *ChatService) GetConversation(ctx context.Context, userID, conversationID string) (*models.ConversationDetailResponse, error) {
	conv, err := s.ownedConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	resp := &models.ConversationDetailResponse{
		ID:        conv.ID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		Messages:  make([]models.MessageResponse, 0, len(msgs)),
	}
	for i := range msgs {
		resp.Messages = append(resp.Messages, msgs[i].ToResponse())
	}
	return resp, nil
}

// CreateConversation creates an empty conversation with the given title.
func (s *ChatService) CreateConversation(ctx context.Context, userID, title string) (*models.CreateConversationResponse, error) {
	title = strings.TrimSpace(title)
	err := validation.Validate(title,
		validation.Required.Error("title is required"),
		validation.RuneLength(1, maxCreateTitleLength),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	conv, err := s.store.CreateConversation(ctx, store.CreateConversationParams{
		ID:        s.newID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	s.logger.Info("conversation created", zap.String("conversation_id", conv.ID), zap.String("user_id", userID))
	return &models.CreateConversationResponse{Conversation: conv.ToSummary()}, nil
}
