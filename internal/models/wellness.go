package models

import (
	"time"

	"github.com/google/uuid"
)

// HealthProfile is a snapshot of a user's physical profile. Read-only from
// the assistant's point of view.
type HealthProfile struct {
	UserID         uuid.UUID `json:"user_id"`
	WeightKg       float64   `json:"weight_kg"`
	HeightCm       float64   `json:"height_cm"`
	ActivityLevel  string    `json:"activity_level"`
	FitnessGoal    string    `json:"fitness_goal"`
	TargetWeightKg *float64  `json:"target_weight_kg,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BMI computes body mass index from the profile's weight and height.
// Returns 0 when height is missing.
func (p *HealthProfile) BMI() float64 {
	if p.HeightCm <= 0 {
		return 0
	}
	hm := p.HeightCm / 100
	return p.WeightKg / (hm * hm)
}

// BMICategory maps a BMI value onto the standard threshold ladder.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "underweight"
	case bmi < 25:
		return "normal"
	case bmi < 30:
		return "overweight"
	default:
		return "obese"
	}
}

// WeightEntry is one point in a user's weight time series.
type WeightEntry struct {
	UserID     uuid.UUID `json:"user_id"`
	WeightKg   float64   `json:"weight_kg"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NutritionProfile holds a user's dietary targets and constraints.
type NutritionProfile struct {
	UserID             uuid.UUID `json:"user_id"`
	CalorieTarget      float64   `json:"calorie_target"`
	ProteinTargetG     float64   `json:"protein_target_g"`
	CarbsTargetG       float64   `json:"carbs_target_g"`
	FatTargetG         float64   `json:"fat_target_g"`
	FiberTargetG       float64   `json:"fiber_target_g"`
	MealsPerDay        int       `json:"meals_per_day"`
	DietaryPreferences []string  `json:"dietary_preferences,omitempty"`
	Allergies          []string  `json:"allergies,omitempty"`
}

// NutritionLog is one day's macro totals.
type NutritionLog struct {
	UserID   uuid.UUID `json:"user_id"`
	Date     time.Time `json:"date"`
	Calories float64   `json:"calories"`
	ProteinG float64   `json:"protein_g"`
	CarbsG   float64   `json:"carbs_g"`
	FatG     float64   `json:"fat_g"`
	FiberG   float64   `json:"fiber_g"`
}

// MealRecord is the canonical in-memory shape for one planned meal. Both
// historical meal-plan JSON layouts normalize into this at the repository
// boundary; nothing downstream sees the raw shapes.
type MealRecord struct {
	Date     string  `json:"date"` // YYYY-MM-DD
	MealType string  `json:"meal_type"`
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// Recipe is a normalized recipe with per-serving macros.
type Recipe struct {
	ID                 uuid.UUID `json:"id"`
	Title              string    `json:"title"`
	Servings           int       `json:"servings"`
	Ingredients        []string  `json:"ingredients"`
	Instructions       []string  `json:"instructions"`
	CaloriesPerServing float64   `json:"calories_per_serving"`
	ProteinPerServingG float64   `json:"protein_per_serving_g"`
	CarbsPerServingG   float64   `json:"carbs_per_serving_g"`
	FatPerServingG     float64   `json:"fat_per_serving_g"`
}

// ActivityLog is one day's activity record.
type ActivityLog struct {
	UserID         uuid.UUID `json:"user_id"`
	Date           time.Time `json:"date"`
	ActivityType   string    `json:"activity_type"`
	Steps          int       `json:"steps"`
	ActiveMinutes  int       `json:"active_minutes"`
	CaloriesBurned float64   `json:"calories_burned"`
}

// WellnessScore is the composite score plus its four sub-scores.
type WellnessScore struct {
	UserID           uuid.UUID `json:"user_id"`
	Date             time.Time `json:"date"`
	Composite        float64   `json:"composite"`
	BMIScore         float64   `json:"bmi_score"`
	ActivityScore    float64   `json:"activity_score"`
	NutritionScore   float64   `json:"nutrition_score"`
	ConsistencyScore float64   `json:"consistency_score"`
}
