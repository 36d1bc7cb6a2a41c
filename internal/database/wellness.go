package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wellora/wellness-api/internal/models"
)

// WellnessRepository exposes read-only lookups over the wellness domain
// tables (profiles, logs, plans, recipes, scores). The assistant core only
// ever reads through this repository; writes belong to the profile service.
type WellnessRepository struct {
	db *DB
}

// NewWellnessRepository creates a new wellness repository.
func NewWellnessRepository(db *DB) *WellnessRepository {
	return &WellnessRepository{db: db}
}

// GetHealthProfile retrieves the user's health profile.
func (r *WellnessRepository) GetHealthProfile(ctx context.Context, userID uuid.UUID) (*models.HealthProfile, error) {
	p := &models.HealthProfile{}
	var targetWeight sql.NullFloat64

	query := `
		SELECT user_id, weight_kg, height_cm, activity_level, fitness_goal, target_weight_kg, updated_at
		FROM health_profiles
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&p.WeightKg,
		&p.HeightCm,
		&p.ActivityLevel,
		&p.FitnessGoal,
		&targetWeight,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("health profile not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get health profile: %w", err)
	}

	if targetWeight.Valid {
		p.TargetWeightKg = &targetWeight.Float64
	}
	return p, nil
}

// GetWeightHistory returns weight entries recorded on or after since,
// oldest first.
func (r *WellnessRepository) GetWeightHistory(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.WeightEntry, error) {
	query := `
		SELECT user_id, weight_kg, recorded_at
		FROM weight_entries
		WHERE user_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get weight history: %w", err)
	}
	defer rows.Close()

	var entries []*models.WeightEntry
	for rows.Next() {
		e := &models.WeightEntry{}
		if err := rows.Scan(&e.UserID, &e.WeightKg, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan weight entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetNutritionProfile retrieves the user's nutrition targets.
func (r *WellnessRepository) GetNutritionProfile(ctx context.Context, userID uuid.UUID) (*models.NutritionProfile, error) {
	p := &models.NutritionProfile{}

	query := `
		SELECT user_id, calorie_target, protein_target_g, carbs_target_g, fat_target_g, fiber_target_g, meals_per_day, dietary_preferences, allergies
		FROM nutrition_profiles
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&p.CalorieTarget,
		&p.ProteinTargetG,
		&p.CarbsTargetG,
		&p.FatTargetG,
		&p.FiberTargetG,
		&p.MealsPerDay,
		pq.Array(&p.DietaryPreferences),
		pq.Array(&p.Allergies),
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("nutrition profile not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get nutrition profile: %w", err)
	}

	return p, nil
}

// GetNutritionLogs returns daily macro totals in [from, to], oldest first.
func (r *WellnessRepository) GetNutritionLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.NutritionLog, error) {
	query := `
		SELECT user_id, date, calories, protein_g, carbs_g, fat_g, fiber_g
		FROM nutrition_logs
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get nutrition logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.NutritionLog
	for rows.Next() {
		l := &models.NutritionLog{}
		if err := rows.Scan(&l.UserID, &l.Date, &l.Calories, &l.ProteinG, &l.CarbsG, &l.FatG, &l.FiberG); err != nil {
			return nil, fmt.Errorf("failed to scan nutrition log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// GetMealPlan loads the stored plan covering date (YYYY-MM-DD) and
// normalizes it into canonical meal records. Both historical on-disk
// shapes are supported; neither leaks past this method.
func (r *WellnessRepository) GetMealPlan(ctx context.Context, userID uuid.UUID, date string) ([]models.MealRecord, error) {
	var raw []byte
	query := `
		SELECT plan
		FROM meal_plans
		WHERE user_id = $1 AND start_date <= $2 AND end_date >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.QueryRowContext(ctx, query, userID, date).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("meal plan not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal plan: %w", err)
	}

	meals, err := NormalizeMealPlan(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize meal plan: %w", err)
	}

	var out []models.MealRecord
	for _, m := range meals {
		if m.Date == date {
			out = append(out, m)
		}
	}
	return out, nil
}

// mealPlanV2 is the current versioned plan document.
type mealPlanV2 struct {
	SchemaVersion int `json:"schema_version"`
	Days          []struct {
		Date  string `json:"date"`
		Meals []struct {
			MealType string  `json:"meal_type"`
			Name     string  `json:"name"`
			Calories float64 `json:"calories"`
			ProteinG float64 `json:"protein_g"`
			CarbsG   float64 `json:"carbs_g"`
			FatG     float64 `json:"fat_g"`
		} `json:"meals"`
	} `json:"days"`
}

// legacyMeal is one meal entry in the legacy date-keyed layout.
type legacyMeal struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

var dateKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormalizeMealPlan converts either stored plan shape into canonical meal
// records. The explicit schema_version field is authoritative; the
// date-like-key heuristic only handles rows written before versioning.
func NormalizeMealPlan(raw []byte) ([]models.MealRecord, error) {
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("invalid plan document: %w", err)
	}

	if probe.SchemaVersion >= 2 {
		var plan mealPlanV2
		if err := json.Unmarshal(raw, &plan); err != nil {
			return nil, fmt.Errorf("invalid v%d plan document: %w", probe.SchemaVersion, err)
		}
		var out []models.MealRecord
		for _, day := range plan.Days {
			for _, m := range day.Meals {
				out = append(out, models.MealRecord{
					Date:     day.Date,
					MealType: m.MealType,
					Name:     m.Name,
					Calories: m.Calories,
					ProteinG: m.ProteinG,
					CarbsG:   m.CarbsG,
					FatG:     m.FatG,
				})
			}
		}
		return out, nil
	}

	// Legacy shape: {"2024-01-02": {"breakfast": {...}, "lunch": {...}}}
	var legacy map[string]map[string]legacyMeal
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("invalid legacy plan document: %w", err)
	}

	var out []models.MealRecord
	for date, meals := range legacy {
		if !dateKeyPattern.MatchString(date) {
			return nil, fmt.Errorf("unrecognized plan key %q: expected YYYY-MM-DD", date)
		}
		for mealType, m := range meals {
			out = append(out, models.MealRecord{
				Date:     date,
				MealType: mealType,
				Name:     m.Name,
				Calories: m.Calories,
				ProteinG: m.ProteinG,
				CarbsG:   m.CarbsG,
				FatG:     m.FatG,
			})
		}
	}
	return out, nil
}

// GetRecipeByTitle retrieves a recipe by case-insensitive title match.
func (r *WellnessRepository) GetRecipeByTitle(ctx context.Context, title string) (*models.Recipe, error) {
	query := `
		SELECT id, title, servings, ingredients, instructions, calories_per_serving, protein_per_serving_g, carbs_per_serving_g, fat_per_serving_g
		FROM recipes
		WHERE LOWER(title) = LOWER($1)
		LIMIT 1
	`
	return r.scanRecipe(r.db.QueryRowContext(ctx, query, title))
}

// SearchRecipes returns up to max recipes whose titles match the query.
func (r *WellnessRepository) SearchRecipes(ctx context.Context, query string, max int) ([]*models.Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, servings, ingredients, instructions, calories_per_serving, protein_per_serving_g, carbs_per_serving_g, fat_per_serving_g
		FROM recipes
		WHERE title ILIKE '%' || $1 || '%'
		ORDER BY title ASC
		LIMIT $2
	`, query, max)
	if err != nil {
		return nil, fmt.Errorf("failed to search recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*models.Recipe
	for rows.Next() {
		recipe, err := r.scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}

func (r *WellnessRepository) scanRecipe(row rowScanner) (*models.Recipe, error) {
	recipe := &models.Recipe{}
	err := row.Scan(
		&recipe.ID,
		&recipe.Title,
		&recipe.Servings,
		pq.Array(&recipe.Ingredients),
		pq.Array(&recipe.Instructions),
		&recipe.CaloriesPerServing,
		&recipe.ProteinPerServingG,
		&recipe.CarbsPerServingG,
		&recipe.FatPerServingG,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("recipe not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return recipe, nil
}

// GetActivityLogs returns activity records in [from, to], oldest first.
func (r *WellnessRepository) GetActivityLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.ActivityLog, error) {
	query := `
		SELECT user_id, date, activity_type, steps, active_minutes, calories_burned
		FROM activity_logs
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.ActivityLog
	for rows.Next() {
		l := &models.ActivityLog{}
		if err := rows.Scan(&l.UserID, &l.Date, &l.ActivityType, &l.Steps, &l.ActiveMinutes, &l.CaloriesBurned); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// GetLatestWellnessScore retrieves the most recent composite score.
func (r *WellnessRepository) GetLatestWellnessScore(ctx context.Context, userID uuid.UUID) (*models.WellnessScore, error) {
	s := &models.WellnessScore{}
	query := `
		SELECT user_id, date, composite, bmi_score, activity_score, nutrition_score, consistency_score
		FROM wellness_scores
		WHERE user_id = $1
		ORDER BY date DESC
		LIMIT 1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID,
		&s.Date,
		&s.Composite,
		&s.BMIScore,
		&s.ActivityScore,
		&s.NutritionScore,
		&s.ConsistencyScore,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("wellness score not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wellness score: %w", err)
	}

	return s, nil
}
