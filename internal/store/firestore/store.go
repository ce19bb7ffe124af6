// Package firestore stores conversations in Cloud Firestore using the same
// layout as the hosted deployment: a top-level "conversations" collection
// with a "messages" subcollection per conversation.
package firestore

import (
	"chatopia-backend/internal/models"
	"chatopia-backend/internal/store"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

var _ store.Store = (*FirestoreStore)(nil)

type FirestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewClient opens a Firestore client for projectID. credentialsJSON is a
// service-account key; when empty, application default credentials (or the
// emulator named by FIRESTORE_EMULATOR_HOST) are used.
func NewClient(ctx context.Context, projectID string, credentialsJSON []byte) (*firestore.Client, error) {
	var opts []option.ClientOption
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return client, nil
}

func NewFirestoreStore(client *firestore.Client, logger *zap.Logger) *FirestoreStore {
	return &FirestoreStore{client: client, logger: logger.Named("firestore")}
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) conversationRef(id string) *firestore.DocumentRef {
	return s.client.Collection(conversationsCollection).Doc(id)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// --- Conversation Methods ---

func (s *FirestoreStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (*models.Conversation, error) {
	c := &models.Conversation{
		ID:        arg.ID,
		UserID:    arg.UserID,
		Title:     arg.Title,
		CreatedAt: arg.CreatedAt,
		UpdatedAt: arg.CreatedAt,
	}
	if _, err := s.conversationRef(arg.ID).Create(ctx, c); err != nil {
		return nil, fmt.Errorf("firestore error creating conversation: %w", err)
	}
	return c, nil
}

func (s *FirestoreStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	snap, err := s.conversationRef(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("firestore error fetching conversation: %w", err)
	}
	return decodeConversation(snap)
}

// ListConversationsByUser sorts in memory so the query needs no composite index.
func (s *FirestoreStore) ListConversationsByUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	iter := s.client.Collection(conversationsCollection).Where("user_id", "==", userID).Documents(ctx)
	defer iter.Stop()

	items := []models.Conversation{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore error listing conversations: %w", err)
		}
		c, err := decodeConversation(snap)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].UpdatedAt.After(items[j].UpdatedAt) })
	return items, nil
}

func (s *FirestoreStore) UpdateConversationTitle(ctx context.Context, id string, title string) error {
	return s.update(ctx, id, []firestore.Update{{Path: "title", Value: title}})
}

func (s *FirestoreStore) TouchConversation(ctx context.Context, id string, updatedAt time.Time) error {
	return s.update(ctx, id, []firestore.Update{{Path: "updated_at", Value: updatedAt}})
}

// update fails with NotFound when the document does not exist.
func (s *FirestoreStore) update(ctx context.Context, id string, updates []firestore.Update) error {
	if _, err := s.conversationRef(id).Update(ctx, updates); err != nil {
		if isNotFound(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("firestore error updating conversation: %w", err)
	}
	return nil
}

// --- Message Methods ---

// CreateMessage writes the message inside a transaction that first reads the
// parent so a message is never written under a missing conversation.
func (s *FirestoreStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.Message, error) {
	m := &models.Message{
		ID:             arg.ID,
		ConversationID: arg.ConversationID,
		Role:           arg.Role,
		Content:        arg.Content,
		CreatedAt:      arg.CreatedAt,
	}
	convRef := s.conversationRef(arg.ConversationID)
	msgRef := convRef.Collection(messagesCollection).Doc(arg.ID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(convRef); err != nil {
			return err
		}
		return tx.Create(msgRef, m)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("firestore error creating message: %w", err)
	}
	return m, nil
}

func (s *FirestoreStore) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	iter := s.conversationRef(conversationID).Collection(messagesCollection).
		OrderBy("created_at", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	items := []models.Message{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore error listing messages: %w", err)
		}
		var m models.Message
		if err := snap.DataTo(&m); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", snap.Ref.ID, err)
		}
		if m.ID == "" {
			m.ID = snap.Ref.ID
		}
		m.ConversationID = conversationID
		items = append(items, m)
	}
	return items, nil
}

func decodeConversation(snap *firestore.DocumentSnapshot) (*models.Conversation, error) {
	var c models.Conversation
	if err := snap.DataTo(&c); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", snap.Ref.ID, err)
	}
	c.ID = snap.Ref.ID
	return &c, nil
}
