package postgres

import (
	"chatopia-backend/internal/models"
	"chatopia-backend/internal/store"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

//go:embed schema.sql
var schema string

type PostgresStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger.Named("postgres")}
}

// NewPool parses databaseURL, opens a pool and pings it.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1

	// Port 6543 is the usual PgBouncer transaction pooler, which rejects prepared statements.
	if cfg.ConnConfig.Port == 6543 && cfg.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the conversations and messages tables if they are missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("database error applying schema: %w", err)
	}
	s.logger.Info("schema applied")
	return nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// --- Conversation Methods ---

const createConversation = `-- name: CreateConversation :one
INSERT INTO conversations (
    id, user_id, title, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $4
)
RETURNING id, user_id, title, created_at, updated_at;
`

func (s *PostgresStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (*models.Conversation, error) {
	row := s.db.QueryRow(ctx, createConversation,
		arg.ID,
		arg.UserID,
		arg.Title,
		arg.CreatedAt,
	)

	var c models.Conversation
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Title,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			s.logger.Error("insert conversation failed",
				zap.String("conversation_id", arg.ID),
				zap.String("code", pgErr.Code),
				zap.String("detail", pgErr.Detail),
			)
		}
		return nil, fmt.Errorf("database error creating conversation: %w", err)
	}

	return &c, nil
}

const getConversation = `-- name: GetConversation :one
SELECT id, user_id, title, created_at, updated_at
FROM conversations
WHERE id = $1;
`

func (s *PostgresStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	row := s.db.QueryRow(ctx, getConversation, id)

	var c models.Conversation
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Title,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning conversation: %w", err)
	}

	return &c, nil
}

const listConversationsByUser = `-- name: ListConversationsByUser :many
SELECT id, user_id, title, created_at, updated_at
FROM conversations
WHERE user_id = $1
ORDER BY updated_at DESC;
`

func (s *PostgresStore) ListConversationsByUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx, listConversationsByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	items := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.Title,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning conversation row: %w", err)
		}
		items = append(items, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return items, nil
}

const updateConversationTitle = `-- name: UpdateConversationTitle :exec
UPDATE conversations
SET title = $1
WHERE id = $2;
`

func (s *PostgresStore) UpdateConversationTitle(ctx context.Context, id string, title string) error {
	tag, err := s.db.Exec(ctx, updateConversationTitle, title, id)
	if err != nil {
		return fmt.Errorf("error executing update conversation title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const touchConversation = `-- name: TouchConversation :exec
UPDATE conversations
SET updated_at = $1
WHERE id = $2;
`

func (s *PostgresStore) TouchConversation(ctx context.Context, id string, updatedAt time.Time) error {
	tag, err := s.db.Exec(ctx, touchConversation, updatedAt, id)
	if err != nil {
		return fmt.Errorf("error executing touch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- Message Methods ---

const createMessage = `-- name: CreateMessage :one
INSERT INTO messages (
    id, conversation_id, role, content, created_at
) VALUES (
    $1, $2, $3, $4, $5
)
RETURNING id, conversation_id, role, content, created_at;
`

func (s *PostgresStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.Message, error) {
	row := s.db.QueryRow(ctx, createMessage,
		arg.ID,
		arg.ConversationID,
		string(arg.Role),
		arg.Content,
		arg.CreatedAt,
	)

	var m models.Message
	var role string
	err := row.Scan(
		&m.ID,
		&m.ConversationID,
		&role,
		&m.Content,
		&m.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23503 = foreign_key_violation, the parent conversation is gone
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error creating message: %w", err)
	}
	m.Role = models.Role(role)

	return &m, nil
}

const listMessages = `-- name: ListMessages :many
SELECT id, conversation_id, role, content, created_at
FROM messages
WHERE conversation_id = $1
ORDER BY created_at ASC, seq ASC;
`

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, listMessages, conversationID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	items := []models.Message{}
	for rows.Next() {
		var m models.Message
		var role string
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&role,
			&m.Content,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		m.Role = models.Role(role)
		items = append(items, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return items, nil
}
