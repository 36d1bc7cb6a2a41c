package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wellora/wellness-api/internal/database"
	"go.uber.org/zap"
)

// proteinSufficiencyRatio is the fraction of the per-meal recommendation a
// meal must reach to count as "enough" protein.
const proteinSufficiencyRatio = 0.9

// MetricIntents holds the deterministic intents detected in user text.
type MetricIntents struct {
	Weight        bool
	BMI           bool
	WellnessScore bool
	Nutrients     []string // distinct nutrient names in detection order
	MealPlan      bool
	MealType      string // inferred meal type when MealPlan is set
	TimePeriod    string
}

// HealthMetricRequested reports whether any combined health-metric fetch
// is warranted.
func (m MetricIntents) HealthMetricRequested() bool {
	return m.Weight || m.BMI || m.WellnessScore
}

// PrefetchResult is one deterministic fetch performed before the model
// runs. Err is set only when the fetch itself failed unexpectedly; such
// entries are logged but never sent to the model or persisted.
type PrefetchResult struct {
	Function FunctionName
	Args     map[string]any
	Result   map[string]any
	Err      string
}

// Prefetcher scans user text for numeric-metric intents and grounds them
// with real data before any model call, so the model never has to invent
// numbers.
type Prefetcher struct {
	dispatcher *Dispatcher
	wellness   database.WellnessReader
	logger     *zap.Logger
}

// NewPrefetcher creates a prefetcher routing through dispatcher.
func NewPrefetcher(dispatcher *Dispatcher, wellness database.WellnessReader, logger *zap.Logger) *Prefetcher {
	return &Prefetcher{
		dispatcher: dispatcher,
		wellness:   wellness,
		logger:     logger,
	}
}

var nutrientKeywords = map[string][]string{
	"protein":  {"protein"},
	"calories": {"calorie", "calories", "kcal"},
	"carbs":    {"carb", "carbs", "carbohydrate"},
	"fat":      {"fat intake", "fat consumption", "much fat", "fats"},
	"fiber":    {"fiber", "fibre"},
}

// DetectIntents inspects user text for metric keywords and period hints.
func DetectIntents(text string) MetricIntents {
	lower := strings.ToLower(text)
	intents := MetricIntents{TimePeriod: "today"}

	if strings.Contains(lower, "weight") || strings.Contains(lower, "weigh") {
		intents.Weight = true
	}
	if strings.Contains(lower, "bmi") || strings.Contains(lower, "body mass") {
		intents.BMI = true
	}
	if strings.Contains(lower, "wellness score") || strings.Contains(lower, "health score") {
		intents.WellnessScore = true
	}

	for _, nutrient := range []string{"protein", "calories", "carbs", "fat", "fiber"} {
		for _, kw := range nutrientKeywords[nutrient] {
			if strings.Contains(lower, kw) {
				intents.Nutrients = append(intents.Nutrients, nutrient)
				break
			}
		}
	}
	if len(intents.Nutrients) == 0 && (strings.Contains(lower, "nutrition") || strings.Contains(lower, "macros")) {
		intents.Nutrients = append(intents.Nutrients, "all")
	}

	if strings.Contains(lower, "meal plan") || strings.Contains(lower, "meal for") ||
		strings.Contains(lower, "eating today") || strings.Contains(lower, "what should i eat") {
		intents.MealPlan = true
		intents.MealType = "all"
		for _, mt := range []string{"breakfast", "lunch", "dinner", "snack"} {
			if strings.Contains(lower, mt) {
				intents.MealType = mt
				break
			}
		}
	}

	switch {
	case strings.Contains(lower, "yesterday"):
		intents.TimePeriod = "yesterday"
	case strings.Contains(lower, "this week") || strings.Contains(lower, "past week") || strings.Contains(lower, "last week"):
		intents.TimePeriod = "week"
	case strings.Contains(lower, "this month") || strings.Contains(lower, "past month") || strings.Contains(lower, "last month"):
		intents.TimePeriod = "month"
	}

	return intents
}

// Prefetch runs the deterministic fetches for every detected intent. A
// failed fetch becomes a non-fatal error entry; the turn proceeds without
// that grounding data.
func (p *Prefetcher) Prefetch(ctx context.Context, userID uuid.UUID, text string, prior *ContextInfo) []PrefetchResult {
	intents := DetectIntents(text)
	var results []PrefetchResult

	// Overlapping health metrics collapse into one combined call.
	if intents.HealthMetricRequested() {
		args := map[string]any{"metric_type": "all", "time_period": "current"}
		results = append(results, p.call(ctx, userID, FnGetHealthMetrics, args))
	}

	// The sufficiency assessment replaces only the protein fetch; other
	// detected nutrients still get their own analysis calls.
	assessment := p.proteinSufficiency(ctx, userID, text, prior)
	if assessment != nil {
		results = append(results, *assessment)
	}
	for _, nutrient := range intents.Nutrients {
		if assessment != nil && nutrient == "protein" {
			continue
		}
		args := map[string]any{"nutrient": nutrient, "time_period": intents.TimePeriod}
		results = append(results, p.call(ctx, userID, FnGetNutritionAnalysis, args))
	}

	if intents.MealPlan {
		args := map[string]any{"meal_type": intents.MealType}
		results = append(results, p.call(ctx, userID, FnGetMealPlan, args))
	}

	return results
}

// call wraps one dispatcher invocation, recovering panics into error
// entries so prefetching can never take the turn down.
func (p *Prefetcher) call(ctx context.Context, userID uuid.UUID, name FunctionName, args map[string]any) (res PrefetchResult) {
	res = PrefetchResult{Function: name, Args: args}
	defer func() {
		if r := recover(); r != nil {
			res.Result = nil
			res.Err = fmt.Sprintf("prefetch %s: %v", name, r)
			if p.logger != nil {
				p.logger.Warn("prefetch_error",
					zap.String("function", string(name)),
					zap.String("error", res.Err),
				)
			}
		}
	}()
	res.Result = p.dispatcher.Dispatch(ctx, userID, name, args)
	return res
}

// proteinSufficiency handles "is that enough protein?" style follow-ups
// when prior context carries a last-meal protein value. The assessment is
// computed locally: per-meal recommendation is the daily target divided by
// meals per day, and enough means at least 90% of that.
func (p *Prefetcher) proteinSufficiency(ctx context.Context, userID uuid.UUID, text string, prior *ContextInfo) *PrefetchResult {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "protein") {
		return nil
	}
	if !strings.Contains(lower, "enough") && !strings.Contains(lower, "sufficient") {
		return nil
	}
	if prior == nil || prior.LastMealProteinG <= 0 {
		return nil
	}

	result := PrefetchResult{
		Function: FnGetNutritionAnalysis,
		Args:     map[string]any{"nutrient": "protein", "assessment": "meal_sufficiency"},
	}

	profile, err := p.wellness.GetNutritionProfile(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		result.Result = errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("load nutrition profile: %v", err))
		return &result
	}
	if profile == nil || profile.ProteinTargetG <= 0 || profile.MealsPerDay <= 0 {
		result.Result = errorEnvelope(ErrCodeNotFound, "no protein target or meals-per-day configured")
		return &result
	}

	perMeal := profile.ProteinTargetG / float64(profile.MealsPerDay)
	actual := prior.LastMealProteinG
	data := map[string]any{
		"assessment":           "meal_protein_sufficiency",
		"meal_protein_g":       round1(actual),
		"per_meal_target_g":    round1(perMeal),
		"daily_target_g":       profile.ProteinTargetG,
		"meals_per_day":        profile.MealsPerDay,
		"percent_of_meal":      round1(actual / perMeal * 100),
		"percent_of_daily":     round1(actual / profile.ProteinTargetG * 100),
		"is_enough":            actual >= proteinSufficiencyRatio*perMeal,
		"sufficiency_standard": "at least 90% of the per-meal recommendation",
	}
	if prior.LastMealName != "" {
		data["meal"] = prior.LastMealName
	}
	result.Result = successEnvelope(data)
	return &result
}
