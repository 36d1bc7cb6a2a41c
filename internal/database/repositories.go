package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wellora/wellness-api/internal/models"
)

// UserRepositoryInterface defines user persistence operations used by the
// authentication middleware and handlers.
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// ConversationRepositoryInterface defines conversation persistence
// operations. The interface enables fake implementations in tests.
type ConversationRepositoryInterface interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	GetActiveByUserID(ctx context.Context, userID uuid.UUID) (*models.Conversation, error)
	Update(ctx context.Context, conv *models.Conversation) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// MessageRepositoryInterface defines message log operations. The store must
// support "most recent N by conversation, descending".
type MessageRepositoryInterface interface {
	Create(ctx context.Context, msg *models.Message) error
	GetRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error)
	GetOldest(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error)
	CountByConversation(ctx context.Context, conversationID uuid.UUID) (int, error)
}

// PreferenceRepositoryInterface defines user preference operations.
type PreferenceRepositoryInterface interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.UserPreference, error)
	Update(ctx context.Context, pref *models.UserPreference) error
}

// WellnessReader is the read-only view of the wellness domain the assistant
// dispatches against. Accessors never mutate state.
type WellnessReader interface {
	GetHealthProfile(ctx context.Context, userID uuid.UUID) (*models.HealthProfile, error)
	GetWeightHistory(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.WeightEntry, error)
	GetNutritionProfile(ctx context.Context, userID uuid.UUID) (*models.NutritionProfile, error)
	GetNutritionLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.NutritionLog, error)
	GetMealPlan(ctx context.Context, userID uuid.UUID, date string) ([]models.MealRecord, error)
	GetRecipeByTitle(ctx context.Context, title string) (*models.Recipe, error)
	SearchRecipes(ctx context.Context, query string, max int) ([]*models.Recipe, error)
	GetActivityLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.ActivityLog, error)
	GetLatestWellnessScore(ctx context.Context, userID uuid.UUID) (*models.WellnessScore, error)
}

// Ensure concrete types implement the interfaces
var (
	_ UserRepositoryInterface         = (*UserRepository)(nil)
	_ ConversationRepositoryInterface = (*ConversationRepository)(nil)
	_ MessageRepositoryInterface      = (*MessageRepository)(nil)
	_ PreferenceRepositoryInterface   = (*PreferenceRepository)(nil)
	_ WellnessReader                  = (*WellnessRepository)(nil)
)
