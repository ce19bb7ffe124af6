// Package storetest holds behaviour checks shared by every store.Store backend.
package storetest

import (
	"chatopia-backend/internal/models"
	"chatopia-backend/internal/store"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s against the store.Store contract. Ids are random so the
// suite can run against a shared database.
func Run(t *testing.T, s store.Store) {
	t.Run("ConversationLifecycle", func(t *testing.T) { testConversationLifecycle(t, s) })
	t.Run("ListByUser", func(t *testing.T) { testListByUser(t, s) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, s) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, s) })
}

func baseTime() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func testConversationLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	userID := "user-" + uuid.NewString()

	created, err := s.CreateConversation(ctx, store.CreateConversationParams{
		ID: uuid.NewString(), UserID: userID, Title: "First", CreatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "First", created.Title)
	assert.True(t, created.CreatedAt.Equal(now))
	assert.True(t, created.UpdatedAt.Equal(now))

	require.NoError(t, s.UpdateConversationTitle(ctx, created.ID, "Renamed"))
	later := now.Add(time.Minute)
	require.NoError(t, s.TouchConversation(ctx, created.ID, later))

	got, err := s.GetConversation(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, "Renamed", got.Title)
	assert.True(t, got.CreatedAt.Equal(now))
	assert.True(t, got.UpdatedAt.Equal(later))
}

func testListByUser(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()
	userID := "user-" + uuid.NewString()

	empty, err := s.ListConversationsByUser(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, empty)
	assert.Empty(t, empty)

	older, err := s.CreateConversation(ctx, store.CreateConversationParams{
		ID: uuid.NewString(), UserID: userID, Title: "Older", CreatedAt: now,
	})
	require.NoError(t, err)
	newer, err := s.CreateConversation(ctx, store.CreateConversationParams{
		ID: uuid.NewString(), UserID: userID, Title: "Newer", CreatedAt: now.Add(time.Second),
	})
	require.NoError(t, err)
	_, err = s.CreateConversation(ctx, store.CreateConversationParams{
		ID: uuid.NewString(), UserID: "other-" + uuid.NewString(), Title: "Other", CreatedAt: now,
	})
	require.NoError(t, err)

	list, err := s.ListConversationsByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	require.NoError(t, s.TouchConversation(ctx, older.ID, now.Add(time.Hour)))
	list, err = s.ListConversationsByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID)
}

func testMessages(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := baseTime()

	conv, err := s.CreateConversation(ctx, store.CreateConversationParams{
		ID: uuid.NewString(), UserID: "user-" + uuid.NewString(), Title: "Chat", CreatedAt: now,
	})
	require.NoError(t, err)

	empty, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, empty)
	assert.Empty(t, empty)

	turns := []struct {
		role    models.Role
		content string
	}{
		{models.RoleUser, "Hello"},
		{models.RoleAssistant, "Hi there"},
		{models.RoleUser, "Bye"},
	}
	var ids []string
	for i, turn := range turns {
		msg, err := s.CreateMessage(ctx, store.CreateMessageParams{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			Role:           turn.role,
			Content:        turn.content,
			CreatedAt:      now.Add(time.Duration(i) * time.Millisecond),
		})
		require.NoError(t, err)
		assert.Equal(t, conv.ID, msg.ConversationID)
		ids = append(ids, msg.ID)
	}

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, len(turns))
	for i, m := range msgs {
		assert.Equal(t, ids[i], m.ID)
		assert.Equal(t, turns[i].role, m.Role)
		assert.Equal(t, turns[i].content, m.Content)
		assert.Equal(t, conv.ID, m.ConversationID)
	}
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	missing := uuid.NewString()

	_, err := s.GetConversation(ctx, missing)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.UpdateConversationTitle(ctx, missing, "x"), store.ErrNotFound)
	assert.ErrorIs(t, s.TouchConversation(ctx, missing, baseTime()), store.ErrNotFound)

	_, err = s.CreateMessage(ctx, store.CreateMessageParams{
		ID: uuid.NewString(), ConversationID: missing, Role: models.RoleUser, Content: "orphan", CreatedAt: baseTime(),
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
