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

// MessageRepository handles message database operations. Messages form an
// append-only log per conversation; there is no update path.
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends a message to its conversation's log.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, role, content, function_name, function_args, function_response, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	args, err := marshalNullable(msg.FunctionArgs)
	if err != nil {
		return fmt.Errorf("failed to marshal function args: %w", err)
	}
	response, err := marshalNullable(msg.FunctionResponse)
	if err != nil {
		return fmt.Errorf("failed to marshal function response: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		nullString(msg.FunctionName),
		args,
		response,
		msg.TokenCount,
		time.Now(),
	).Scan(&msg.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// GetRecent returns the most recent limit messages for a conversation in
// reverse-chronological order (newest first). The context window builder
// re-reverses them.
func (r *MessageRepository) GetRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, function_name, function_args, function_response, token_count, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetOldest returns the oldest limit messages for a conversation in
// chronological order. Used by the compressor to fold aged-out turns.
func (r *MessageRepository) GetOldest(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, function_name, function_args, function_response, token_count, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get oldest messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// CountByConversation returns the total persisted message count.
func (r *MessageRepository) CountByConversation(ctx context.Context, conversationID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1`,
		conversationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func scanMessages(rows *sql.Rows) ([]*models.Message, error) {
	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		var functionName sql.NullString
		var args, response []byte

		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&functionName,
			&args,
			&response,
			&msg.TokenCount,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		if functionName.Valid {
			msg.FunctionName = functionName.String
		}
		if len(args) > 0 {
			if err := json.Unmarshal(args, &msg.FunctionArgs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal function args: %w", err)
			}
		}
		if len(response) > 0 {
			if err := json.Unmarshal(response, &msg.FunctionResponse); err != nil {
				return nil, fmt.Errorf("failed to unmarshal function response: %w", err)
			}
		}

		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

func marshalNullable(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
