package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wellora/wellness-api/internal/models"
)

// fakeWellness is an in-memory WellnessReader for tests. Single-row reads
// mirror the repository contract and return wrapped sql.ErrNoRows when the
// row is absent.
type fakeWellness struct {
	healthProfile    *models.HealthProfile
	weightHistory    []*models.WeightEntry
	nutritionProfile *models.NutritionProfile
	nutritionLogs    []*models.NutritionLog
	mealPlan         []models.MealRecord
	recipes          []*models.Recipe
	activityLogs     []*models.ActivityLog
	wellnessScore    *models.WellnessScore
	err              error
}

func (f *fakeWellness) GetHealthProfile(ctx context.Context, userID uuid.UUID) (*models.HealthProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.healthProfile == nil {
		return nil, fmt.Errorf("health profile not found: %w", sql.ErrNoRows)
	}
	return f.healthProfile, nil
}

func (f *fakeWellness) GetWeightHistory(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.WeightEntry, error) {
	return f.weightHistory, f.err
}

func (f *fakeWellness) GetNutritionProfile(ctx context.Context, userID uuid.UUID) (*models.NutritionProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.nutritionProfile == nil {
		return nil, fmt.Errorf("nutrition profile not found: %w", sql.ErrNoRows)
	}
	return f.nutritionProfile, nil
}

func (f *fakeWellness) GetNutritionLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.NutritionLog, error) {
	return f.nutritionLogs, f.err
}

func (f *fakeWellness) GetMealPlan(ctx context.Context, userID uuid.UUID, date string) ([]models.MealRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.mealPlan == nil {
		return nil, fmt.Errorf("meal plan not found: %w", sql.ErrNoRows)
	}
	return f.mealPlan, nil
}

func (f *fakeWellness) GetRecipeByTitle(ctx context.Context, title string) (*models.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.recipes {
		if r.Title == title {
			return r, nil
		}
	}
	return nil, fmt.Errorf("recipe not found: %w", sql.ErrNoRows)
}

func (f *fakeWellness) SearchRecipes(ctx context.Context, query string, max int) ([]*models.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.recipes
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (f *fakeWellness) GetActivityLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.ActivityLog, error) {
	return f.activityLogs, f.err
}

func (f *fakeWellness) GetLatestWellnessScore(ctx context.Context, userID uuid.UUID) (*models.WellnessScore, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.wellnessScore == nil {
		return nil, fmt.Errorf("wellness score not found: %w", sql.ErrNoRows)
	}
	return f.wellnessScore, nil
}

// fakeConversationRepo is an in-memory conversation store.
type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*models.Conversation
	updateCount   int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: make(map[uuid.UUID]*models.Conversation)}
}

func (f *fakeConversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv.CreatedAt = time.Now()
	conv.UpdatedAt = conv.CreatedAt
	copied := *conv
	f.conversations[conv.ID] = &copied
	return nil
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation not found: %w", sql.ErrNoRows)
	}
	copied := *conv
	return &copied, nil
}

func (f *fakeConversationRepo) GetActiveByUserID(ctx context.Context, userID uuid.UUID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.conversations {
		if conv.UserID == userID && conv.IsActive {
			copied := *conv
			return &copied, nil
		}
	}
	// The real repository hands back the raw sentinel here.
	return nil, sql.ErrNoRows
}

func (f *fakeConversationRepo) Update(ctx context.Context, conv *models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.conversations[conv.ID]; !ok {
		return errors.New("conversation not found")
	}
	conv.UpdatedAt = time.Now()
	copied := *conv
	f.conversations[conv.ID] = &copied
	f.updateCount++
	return nil
}

func (f *fakeConversationRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[id]
	if !ok {
		return errors.New("conversation not found")
	}
	conv.IsActive = false
	return nil
}

// fakeMessageRepo is an in-memory append-only message log.
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*models.Message
	seq      int
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	msg.CreatedAt = time.Unix(int64(f.seq), 0)
	copied := *msg
	f.messages = append(f.messages, &copied)
	return nil
}

func (f *fakeMessageRepo) byConversation(conversationID uuid.UUID) []*models.Message {
	var out []*models.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeMessageRepo) GetRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.byConversation(conversationID)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	// Newest first, matching the repository contract.
	out := make([]*models.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

func (f *fakeMessageRepo) GetOldest(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.byConversation(conversationID)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (f *fakeMessageRepo) CountByConversation(ctx context.Context, conversationID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byConversation(conversationID)), nil
}

// fakePreferenceRepo hands back one preference row per user.
type fakePreferenceRepo struct {
	mu    sync.Mutex
	prefs map[uuid.UUID]*models.UserPreference
}

func newFakePreferenceRepo() *fakePreferenceRepo {
	return &fakePreferenceRepo{prefs: make(map[uuid.UUID]*models.UserPreference)}
}

func (f *fakePreferenceRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.UserPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.prefs[userID]; ok {
		copied := *p
		return &copied, nil
	}
	p := models.NewUserPreference(userID)
	f.prefs[userID] = p
	copied := *p
	return &copied, nil
}

func (f *fakePreferenceRepo) Update(ctx context.Context, pref *models.UserPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *pref
	f.prefs[pref.UserID] = &copied
	return nil
}

// fakeProvider scripts model completions and records every request.
type fakeProvider struct {
	mu          sync.Mutex
	completions []*Completion
	err         error
	requests    []CompletionRequest
	maxTokens   int
}

func (f *fakeProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.completions) == 0 {
		return &Completion{Content: "ok"}, nil
	}
	next := f.completions[0]
	f.completions = f.completions[1:]
	return next, nil
}

func (f *fakeProvider) MaxContextTokens() int {
	if f.maxTokens > 0 {
		return f.maxTokens
	}
	return DefaultMaxContextTokens
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// newTestOrchestrator wires an orchestrator over the fakes.
func newTestOrchestrator(wellness *fakeWellness, provider *fakeProvider) (*Orchestrator, *fakeConversationRepo, *fakeMessageRepo) {
	convs := newFakeConversationRepo()
	msgs := &fakeMessageRepo{}
	prefs := newFakePreferenceRepo()
	dispatcher := NewDispatcher(wellness, nil)
	prefetcher := NewPrefetcher(dispatcher, wellness, nil)
	prompts := NewPromptRenderer(wellness)
	compressor := NewCompressor(convs, msgs, nil)
	orch := NewOrchestrator(convs, msgs, prefs, dispatcher, prefetcher, prompts, compressor, provider, nil)
	return orch, convs, msgs
}

func testUser() *models.User {
	name := "Jordan"
	return &models.User{
		ID:    uuid.New(),
		Email: "jordan@example.com",
		Name:  &name,
	}
}
