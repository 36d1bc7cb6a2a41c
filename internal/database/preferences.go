package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wellora/wellness-api/internal/models"
)

// PreferenceRepository handles user preference database operations.
type PreferenceRepository struct {
	db *DB
}

// NewPreferenceRepository creates a new preference repository.
func NewPreferenceRepository(db *DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetOrCreate returns the user's preferences, creating the row with
// defaults on first access.
func (r *PreferenceRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.UserPreference, error) {
	pref, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	pref = models.NewUserPreference(userID)
	if err := r.create(ctx, pref); err != nil {
		return nil, err
	}
	return pref, nil
}

// GetByUserID retrieves preferences by user ID.
func (r *PreferenceRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserPreference, error) {
	pref := &models.UserPreference{}
	query := `
		SELECT id, user_id, response_mode, max_context_messages, auto_compress_after, allow_data_usage, created_at, updated_at
		FROM user_preferences
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&pref.ID,
		&pref.UserID,
		&pref.ResponseMode,
		&pref.MaxContextMessages,
		&pref.AutoCompressAfter,
		&pref.AllowDataUsage,
		&pref.CreatedAt,
		&pref.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("preferences not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	return pref, nil
}

// Update persists preference changes.
func (r *PreferenceRepository) Update(ctx context.Context, pref *models.UserPreference) error {
	query := `
		UPDATE user_preferences
		SET response_mode = $2, max_context_messages = $3, auto_compress_after = $4, allow_data_usage = $5, updated_at = $6
		WHERE user_id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		pref.UserID,
		pref.ResponseMode,
		pref.MaxContextMessages,
		pref.AutoCompressAfter,
		pref.AllowDataUsage,
		time.Now(),
	).Scan(&pref.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("preferences not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}

	return nil
}

func (r *PreferenceRepository) create(ctx context.Context, pref *models.UserPreference) error {
	query := `
		INSERT INTO user_preferences (id, user_id, response_mode, max_context_messages, auto_compress_after, allow_data_usage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		pref.ID,
		pref.UserID,
		pref.ResponseMode,
		pref.MaxContextMessages,
		pref.AutoCompressAfter,
		pref.AllowDataUsage,
		now,
		now,
	).Scan(&pref.CreatedAt, &pref.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create preferences: %w", err)
	}

	return nil
}
