package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wellora/wellness-api/internal/models"
)

// ConversationRepository handles conversation database operations.
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new conversation repository.
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create creates a new conversation.
func (r *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (id, user_id, title, summary_segments, compressed_at_turn, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	segments, err := json.Marshal(conv.SummarySegments)
	if err != nil {
		return fmt.Errorf("failed to marshal summary segments: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		conv.ID,
		conv.UserID,
		conv.Title,
		segments,
		conv.CompressedAtTurn,
		conv.IsActive,
		now,
		now,
	).Scan(&conv.CreatedAt, &conv.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

// GetByID retrieves a conversation by ID.
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, summary_segments, compressed_at_turn, is_active, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	conv, err := r.scanConversation(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conversation not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// GetActiveByUserID retrieves the user's most recent active conversation.
func (r *ConversationRepository) GetActiveByUserID(ctx context.Context, userID uuid.UUID) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, summary_segments, compressed_at_turn, is_active, created_at, updated_at
		FROM conversations
		WHERE user_id = $1 AND is_active = true
		ORDER BY updated_at DESC
		LIMIT 1
	`

	conv, err := r.scanConversation(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active conversation: %w", err)
	}

	return conv, nil
}

// Update persists title, summary segments, compression marker, and the
// active flag. Called on every turn (updated_at bump) and on compression.
func (r *ConversationRepository) Update(ctx context.Context, conv *models.Conversation) error {
	query := `
		UPDATE conversations
		SET title = $2, summary_segments = $3, compressed_at_turn = $4, is_active = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at
	`

	segments, err := json.Marshal(conv.SummarySegments)
	if err != nil {
		return fmt.Errorf("failed to marshal summary segments: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query,
		conv.ID,
		conv.Title,
		segments,
		conv.CompressedAtTurn,
		conv.IsActive,
		time.Now(),
	).Scan(&conv.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("conversation not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	return nil
}

// Deactivate soft-deletes a conversation by flipping its active flag.
// Conversations are never hard-deleted here; history stays for audit.
func (r *ConversationRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET is_active = false, updated_at = $2 WHERE id = $1
	`, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to deactivate conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("conversation not found")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ConversationRepository) scanConversation(row rowScanner) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var segments []byte

	err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&segments,
		&conv.CompressedAtTurn,
		&conv.IsActive,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(segments) > 0 {
		if err := json.Unmarshal(segments, &conv.SummarySegments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary segments: %w", err)
		}
	}

	return conv, nil
}
