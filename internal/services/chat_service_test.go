package services

import (
	"chatopia-backend/internal/llm"
	"chatopia-backend/internal/models"
	"chatopia-backend/internal/store"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- fakes ---

type memoryStore struct {
	mu            sync.Mutex
	conversations map[string]models.Conversation
	messages      map[string][]models.Message
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		conversations: map[string]models.Conversation{},
		messages:      map[string][]models.Message{},
	}
}

func (m *memoryStore) CreateConversation(_ context.Context, arg store.CreateConversationParams) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := models.Conversation{ID: arg.ID, UserID: arg.UserID, Title: arg.Title, CreatedAt: arg.CreatedAt, UpdatedAt: arg.CreatedAt}
	m.conversations[arg.ID] = c
	return &c, nil
}

func (m *memoryStore) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (m *memoryStore) ListConversationsByUser(_ context.Context, userID string) ([]models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Conversation{}
	for _, c := range m.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memoryStore) UpdateConversationTitle(_ context.Context, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Title = title
	m.conversations[id] = c
	return nil
}

func (m *memoryStore) TouchConversation(_ context.Context, id string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	c.UpdatedAt = updatedAt
	m.conversations[id] = c
	return nil
}

func (m *memoryStore) CreateMessage(_ context.Context, arg store.CreateMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[arg.ConversationID]; !ok {
		return nil, store.ErrNotFound
	}
	msg := models.Message{ID: arg.ID, ConversationID: arg.ConversationID, Role: arg.Role, Content: arg.Content, CreatedAt: arg.CreatedAt}
	m.messages[arg.ConversationID] = append(m.messages[arg.ConversationID], msg)
	return &msg, nil
}

func (m *memoryStore) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Message{}, m.messages[conversationID]...), nil
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) messageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msgs := range m.messages {
		n += len(msgs)
	}
	return n
}

type generateCall struct {
	prompt  string
	history []llm.Turn
}

// scriptedGenerator answers chat prompts with reply and title prompts with title.
type scriptedGenerator struct {
	mu       sync.Mutex
	calls    []generateCall
	reply    string
	replyErr error
	title    string
	titleErr error
	block    bool
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, history []llm.Turn) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, generateCall{prompt: prompt, history: append([]llm.Turn(nil), history...)})
	g.mu.Unlock()

	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if strings.HasPrefix(prompt, "Generate a short, concise title") {
		return g.title, g.titleErr
	}
	return g.reply, g.replyErr
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func newTestService(t *testing.T, s store.Store, gen Generator) *ChatService {
	t.Helper()
	svc := NewChatService(s, gen, zap.NewNop(), time.Second)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick, seq := 0, 0
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return svc
}

// --- SendMessage ---

func TestSendMessage_NewConversation(t *testing.T) {
	st := newMemoryStore()
	gen := &scriptedGenerator{reply: "Hi! How can I help?", title: `"Friendly Greeting"`}
	svc := newTestService(t, st, gen)

	resp, err := svc.SendMessage(context.Background(), "user-1", models.NewConversationID, "Hello")
	require.NoError(t, err)

	assert.Equal(t, "Hi! How can I help?", resp.Content)
	assert.NotEmpty(t, resp.MessageID)
	assert.NotEqual(t, models.NewConversationID, resp.ConversationID)

	require.Len(t, st.conversations, 1)
	conv := st.conversations[resp.ConversationID]
	assert.Equal(t, "user-1", conv.UserID)
	assert.Equal(t, "Friendly Greeting", conv.Title)

	msgs := st.messages[resp.ConversationID]
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, resp.MessageID, msgs[1].ID)
	assert.Equal(t, msgs[1].CreatedAt, conv.UpdatedAt)

	require.Equal(t, 2, gen.callCount())
	assert.Equal(t, "Hello", gen.calls[0].prompt)
	assert.Equal(t, []llm.Turn{{Role: models.RoleUser, Text: "Hello"}}, gen.calls[0].history)
	assert.Nil(t, gen.calls[1].history)
	assert.Contains(t, gen.calls[1].prompt, "The first message is: Hello")
}

func TestSendMessage_TitleFailureKeepsPlaceholder(t *testing.T) {
	st := newMemoryStore()
	gen := &scriptedGenerator{reply: "Sure.", titleErr: errors.New("quota exceeded")}
	svc := newTestService(t, st, gen)

	content := "Please explain how goroutines are scheduled"
	resp, err := svc.SendMessage(context.Background(), "user-1", models.NewConversationID, content)
	require.NoError(t, err)

	assert.Equal(t, "Please explain how goroutines ...", st.conversations[resp.ConversationID].Title)
	assert.Len(t, st.messages[resp.ConversationID], 2)
}

func TestSendMessage_BlankGeneratedTitleKeepsPlaceholder(t *testing.T) {
	st := newMemoryStore()
	gen := &scriptedGenerator{reply: "Sure.", title: ` "" `}
	svc := newTestService(t, st, gen)

	resp, err := svc.SendMessage(context.Background(), "user-1", models.NewConversationID, "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Hi", st.conversations[resp.ConversationID].Title)
}

func TestSendMessage_ExistingConversationSendsHistory(t *testing.T) {
	st := newMemoryStore()
	gen := &scriptedGenerator{reply: "First answer", title: "Math Help"}
	svc := newTestService(t, st, gen)
	ctx := context.Background()

	first, err := svc.SendMessage(ctx, "user-1", models.NewConversationID, "What is 2+2?")
	require.NoError(t, err)

	gen.reply = "Second answer"
	second, err := svc.SendMessage(ctx, "user-1", first.ConversationID, "And 3+3?")
	require.NoError(t, err)

	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, "Second answer", second.Content)
	require.Len(t, st.conversations, 1)
	assert.Equal(t, "Math Help", st.conversations[first.ConversationID].Title)

	// Two calls for the first exchange, one for the second: no title regeneration.
	require.Equal(t, 3, gen.callCount())
	assert.Equal(t, []llm.Turn{
		{Role: models.RoleUser, Text: "What is 2+2?"},
		{Role: models.RoleAssistant, Text: "First answer"},
		{Role: models.RoleUser, Text: "And 3+3?"},
	}, gen.calls[2].history)
	assert.Len(t, st.messages[first.ConversationID], 4)
}

func TestSendMessage_FirstMessageInCreatedConversationGetsTitle(t *testing.T) {
	st := newMemoryStore()
	gen := &scriptedGenerator{reply: "Answer", title: "Travel Plans"}
	svc := newTestService(t, st, gen)
	ctx := context.Background()

	created, err := svc.CreateConversation(ctx, "user-1", "Untitled")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "user-1", created.Conversation.ID, "Plan a trip to Lisbon")
	require.NoError(t, err)
	assert.Equal(t, "Travel Plans", st.conversations[created.Conversation.ID].Title)
}

func TestSendMessage_ForeignConversationIsNotFound(t *testing.T) {
	st := newMemoryStore()
	gen := &scriptedGenerator{reply: "never"}
	svc := newTestService(t, st, gen)
	ctx := context.Background()

	owned, err := svc.CreateConversation(ctx, "owner", "Private")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "intruder", owned.Conversation.ID, "let me in")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, st.messageCount())
	assert.Equal(t, 0, gen.callCount())
	assert.Equal(t, "Private", st.conversations[owned.Conversation.ID].Title)
}

func TestSendMessage_MissingConversationIsNotFound(t *testing.T) {
	st := newMemoryStore()
	svc := newTestService(t, st, &scriptedGenerator{})

	_, err := svc.SendMessage(context.Background(), "user-1", "does-not-exist", "hello")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, st.conversations)
}

func TestSendMessage_Validation(t *testing.T) {
	tests := []struct {
		name           string
		conversationID string
		content        string
	}{
		{name: "empty content", conversationID: models.NewConversationID, content: ""},
		{name: "whitespace content", conversationID: models.NewConversationID, content: "  \n\t "},
		{name: "missing conversation id", conversationID: "", content: "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newMemoryStore()
			gen := &scriptedGenerator{}
			svc := newTestService(t, st, gen)

			_, err := svc.SendMessage(context.Background(), "user-1", tt.conversationID, tt.content)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, st.conversations)
			assert.Equal(t, 0, gen.callCount())
		})
	}
}

func TestSendMessage_GenerationFailureKeepsUserMessage(t *testing.T) {
	st := newMemoryStore()
	gen := &scriptedGenerator{replyErr: errors.New("upstream 503")}
	svc := newTestService(t, st, gen)

	_, err := svc.SendMessage(context.Background(), "user-1", models.NewConversationID, "Hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)

	require.Len(t, st.conversations, 1)
	for id := range st.conversations {
		msgs := st.messages[id]
		require.Len(t, msgs, 1)
		assert.Equal(t, models.RoleUser, msgs[0].Role)
	}
}

func TestSendMessage_GenerationTimeout(t *testing.T) {
	st := newMemoryStore()
	gen := &scriptedGenerator{block: true}
	svc := newTestService(t, st, gen)
	svc.generationTimeout = 20 * time.Millisecond

	_, err := svc.SendMessage(context.Background(), "user-1", models.NewConversationID, "Hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "timed out")
	assert.Equal(t, 1, st.messageCount())
}

// --- ListConversations / GetConversation / CreateConversation ---

func TestListConversations_Empty(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), &scriptedGenerator{})

	resp, err := svc.ListConversations(context.Background(), "nobody")
	require.NoError(t, err)
	require.NotNil(t, resp.Conversations)
	assert.Empty(t, resp.Conversations)
}

func TestListConversations_OnlyOwnMostRecentFirst(t *testing.T) {
	st := newMemoryStore()
	svc := newTestService(t, st, &scriptedGenerator{reply: "ok", title: "T"})
	ctx := context.Background()

	older, err := svc.CreateConversation(ctx, "user-1", "Older")
	require.NoError(t, err)
	newer, err := svc.CreateConversation(ctx, "user-1", "Newer")
	require.NoError(t, err)
	_, err = svc.CreateConversation(ctx, "user-2", "Someone else")
	require.NoError(t, err)

	resp, err := svc.ListConversations(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, resp.Conversations, 2)
	assert.Equal(t, newer.Conversation.ID, resp.Conversations[0].ID)
	assert.Equal(t, older.Conversation.ID, resp.Conversations[1].ID)

	// Activity moves a conversation to the top.
	_, err = svc.SendMessage(ctx, "user-1", older.Conversation.ID, "bump")
	require.NoError(t, err)
	resp, err = svc.ListConversations(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, older.Conversation.ID, resp.Conversations[0].ID)
}

func TestGetConversation_MessagesInOrder(t *testing.T) {
	st := newMemoryStore()
	gen := &scriptedGenerator{reply: "pong", title: "Ping Pong"}
	svc := newTestService(t, st, gen)
	ctx := context.Background()

	sent, err := svc.SendMessage(ctx, "user-1", models.NewConversationID, "ping")
	require.NoError(t, err)

	detail, err := svc.GetConversation(ctx, "user-1", sent.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, sent.ConversationID, detail.ID)
	assert.Equal(t, "Ping Pong", detail.Title)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "ping", detail.Messages[0].Content)
	assert.Equal(t, models.RoleUser, detail.Messages[0].Role)
	assert.Equal(t, "pong", detail.Messages[1].Content)
	assert.Equal(t, models.RoleAssistant, detail.Messages[1].Role)
	assert.True(t, detail.Messages[0].CreatedAt.Before(detail.Messages[1].CreatedAt))
}

func TestGetConversation_ForeignOrMissing(t *testing.T) {
	st := newMemoryStore()
	svc := newTestService(t, st, &scriptedGenerator{})
	ctx := context.Background()

	owned, err := svc.CreateConversation(ctx, "owner", "Mine")
	require.NoError(t, err)

	_, err = svc.GetConversation(ctx, "someone-else", owned.Conversation.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetConversation(ctx, "owner", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetConversation_EmptyHasNoMessages(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), &scriptedGenerator{})
	ctx := context.Background()

	created, err := svc.CreateConversation(ctx, "user-1", "Empty")
	require.NoError(t, err)

	detail, err := svc.GetConversation(ctx, "user-1", created.Conversation.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Messages)
	assert.Empty(t, detail.Messages)
}

func TestCreateConversation(t *testing.T) {
	st := newMemoryStore()
	svc := newTestService(t, st, &scriptedGenerator{})

	resp, err := svc.CreateConversation(context.Background(), "user-1", "  Weekend ideas  ")
	require.NoError(t, err)
	assert.Equal(t, "Weekend ideas", resp.Conversation.Title)
	assert.Equal(t, resp.Conversation.CreatedAt, resp.Conversation.UpdatedAt)
	assert.Equal(t, "user-1", st.conversations[resp.Conversation.ID].UserID)
}

func TestCreateConversation_Validation(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), &scriptedGenerator{})

	_, err := svc.CreateConversation(context.Background(), "user-1", "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateConversation(context.Background(), "user-1", strings.Repeat("x", maxCreateTitleLength+1))
	assert.ErrorIs(t, err, ErrValidation)
}
