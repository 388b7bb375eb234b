package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rrens/sommelier/internal/domain"
)

// ConversationRepository implements domain.ConversationRepository
type ConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// EnsureExists inserts the conversation unless its id is already taken
func (r *ConversationRepository) EnsureExists(ctx context.Context, conv *domain.RemoteConversation) error {
	query := `
		INSERT INTO conversations (id, owner, title, wine_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		conv.ID,
		conv.Owner,
		conv.Title,
		conv.WineID,
		conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure conversation: %w", err)
	}
	return nil
}

// Get retrieves a conversation by id
func (r *ConversationRepository) Get(ctx context.Context, id int64) (*domain.RemoteConversation, error) {
	query := `
		SELECT id, owner, title, wine_id, created_at
		FROM conversations
		WHERE id = $1
	`
	var c domain.RemoteConversation
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Owner,
		&c.Title,
		&c.WineID,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversation %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &c, nil
}

// ListByOwner lists an owner's conversations, newest first
func (r *ConversationRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]domain.RemoteConversation, error) {
	query := `
		SELECT id, owner, title, wine_id, created_at
		FROM conversations
		WHERE owner = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	conversations := []domain.RemoteConversation{}
	for rows.Next() {
		var c domain.RemoteConversation
		if err := rows.Scan(
			&c.ID,
			&c.Owner,
			&c.Title,
			&c.WineID,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}
