package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wellora/wellness-api/internal/database"
	"github.com/wellora/wellness-api/internal/models"
	"go.uber.org/zap"
)

// Dispatcher validates and routes registered function calls to the
// read-only wellness data accessors. Every call returns a uniform envelope
// with a boolean "success" key; errors never propagate past this boundary.
type Dispatcher struct {
	wellness database.WellnessReader
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher over the wellness read layer.
func NewDispatcher(wellness database.WellnessReader, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		wellness: wellness,
		logger:   logger,
		now:      time.Now,
	}
}

// periodDays maps a time period name to the number of days it reaches back.
func periodDays(period string) int {
	switch period {
	case "yesterday":
		return 1
	case "week":
		return 7
	case "month":
		return 30
	case "quarter":
		return 90
	default: // today, current
		return 0
	}
}

// periodRange converts a time period name into a [from, to] day window.
func (d *Dispatcher) periodRange(period string) (time.Time, time.Time) {
	now := d.now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	from := to.AddDate(0, 0, -periodDays(period))
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	return from, to
}

// Dispatch validates args against the schema and routes to the matching
// accessor. Unknown names, invalid arguments, and accessor failures all
// come back as error envelopes.
func (d *Dispatcher) Dispatch(ctx context.Context, userID uuid.UUID, name FunctionName, args map[string]any) map[string]any {
	normalized, errEnv := ValidateArgs(name, args)
	if errEnv != nil {
		return errEnv
	}

	var result map[string]any
	switch name {
	case FnGetHealthMetrics:
		result = d.getHealthMetrics(ctx, userID, normalized)
	case FnGetMealPlan:
		result = d.getMealPlan(ctx, userID, normalized)
	case FnGetNutritionAnalysis:
		result = d.getNutritionAnalysis(ctx, userID, normalized)
	case FnGetRecipeInfo:
		result = d.getRecipeInfo(ctx, normalized)
	case FnGetActivitySummary:
		result = d.getActivitySummary(ctx, userID, normalized)
	case FnGetProgressReport:
		result = d.getProgressReport(ctx, userID, normalized)
	case FnSearchRecipes:
		result = d.searchRecipes(ctx, normalized)
	case FnGetUserPreferences:
		result = d.getUserPreferences(ctx, userID)
	case FnGenerateProgressChart:
		result = d.generateProgressChart(ctx, userID, normalized)
	default:
		result = errorEnvelope(ErrCodeUnknownFunction, fmt.Sprintf("unknown function: %s", name))
	}

	if d.logger != nil {
		success, _ := result["success"].(bool)
		d.logger.Debug("function_dispatch",
			zap.String("function", string(name)),
			zap.Bool("success", success),
		)
	}
	return result
}

func (d *Dispatcher) getHealthMetrics(ctx context.Context, userID uuid.UUID, args map[string]any) map[string]any {
	metricType := stringArg(args, "metric_type", "all")

	// Repositories surface missing rows as wrapped sql.ErrNoRows; that is a
	// NOT_FOUND envelope here, never a function error.
	profile, err := d.wellness.GetHealthProfile(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("load health profile: %v", err))
	}
	if profile == nil {
		return errorEnvelope(ErrCodeNotFound, "no health profile recorded for this user")
	}

	data := map[string]any{"metric_type": metricType}
	bmi := round1(profile.BMI())

	if metricType == "weight" || metricType == "all" {
		data["weight_kg"] = profile.WeightKg
		if profile.TargetWeightKg != nil {
			data["target_weight_kg"] = *profile.TargetWeightKg
		}
	}
	if metricType == "bmi" || metricType == "all" {
		data["bmi"] = bmi
		data["bmi_category"] = models.BMICategory(bmi)
	}
	if metricType == "activity_level" || metricType == "all" {
		data["activity_level"] = profile.ActivityLevel
	}
	if metricType == "wellness_score" || metricType == "all" {
		score, err := d.wellness.GetLatestWellnessScore(ctx, userID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("load wellness score: %v", err))
		}
		if score != nil {
			data["wellness_score"] = map[string]any{
				"composite":   score.Composite,
				"bmi":         score.BMIScore,
				"activity":    score.ActivityScore,
				"nutrition":   score.NutritionScore,
				"consistency": score.ConsistencyScore,
				"date":        score.Date.Format("2006-01-02"),
			}
		} else if metricType == "wellness_score" {
			return errorEnvelope(ErrCodeNotFound, "no wellness score recorded yet")
		}
	}
	data["fitness_goal"] = profile.FitnessGoal
	return successEnvelope(data)
}

func (d *Dispatcher) getMealPlan(ctx context.Context, userID uuid.UUID, args map[string]any) map[string]any {
	mealType := stringArg(args, "meal_type", "all")
	date := stringArg(args, "date", d.now().Format("2006-01-02"))

	meals, err := d.wellness.GetMealPlan(ctx, userID, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("load meal plan: %v", err))
	}
	if len(meals) == 0 {
		return errorEnvelope(ErrCodeNotFound, fmt.Sprintf("no meal plan found for %s", date))
	}

	out := make([]map[string]any, 0, len(meals))
	for _, m := range meals {
		if mealType != "all" && m.MealType != mealType {
			continue
		}
		out = append(out, map[string]any{
			"meal_type": m.MealType,
			"name":      m.Name,
			"calories":  m.Calories,
			"protein_g": m.ProteinG,
			"carbs_g":   m.CarbsG,
			"fat_g":     m.FatG,
		})
	}
	if len(out) == 0 {
		return errorEnvelope(ErrCodeNotFound, fmt.Sprintf("no %s entry in the meal plan for %s", mealType, date))
	}
	return successEnvelope(map[string]any{
		"date":      date,
		"meal_type": mealType,
		"meals":     out,
	})
}

func (d *Dispatcher) getNutritionAnalysis(ctx context.Context, userID uuid.UUID, args map[string]any) map[string]any {
	nutrient := stringArg(args, "nutrient", "all")
	period := stringArg(args, "time_period", "today")
	from, to := d.periodRange(period)

	logs, err := d.wellness.GetNutritionLogs(ctx, userID, from, to)
	if err != nil {
		return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("load nutrition logs: %v", err))
	}
	if len(logs) == 0 {
		return errorEnvelope(ErrCodeNotFound, fmt.Sprintf("no nutrition logged for period %q", period))
	}
	// Targets are optional; a missing nutrition profile just omits them.
	profile, err := d.wellness.GetNutritionProfile(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("load nutrition profile: %v", err))
	}

	var calories, protein, carbs, fat, fiber float64
	for _, l := range logs {
		calories += l.Calories
		protein += l.ProteinG
		carbs += l.CarbsG
		fat += l.FatG
		fiber += l.FiberG
	}
	days := float64(len(logs))

	data := map[string]any{
		"nutrient":    nutrient,
		"time_period": period,
		"days_logged": len(logs),
	}
	add := func(key string, total, target float64) {
		if nutrient != "all" && nutrient != key {
			return
		}
		entry := map[string]any{
			"total":         round1(total),
			"daily_average": round1(total / days),
		}
		if target > 0 {
			entry["daily_target"] = target
			entry["percent_of_target"] = round1(total / days / target * 100)
		}
		data[key] = entry
	}
	var calTarget, proTarget, carbTarget, fatTarget, fiberTarget float64
	if profile != nil {
		calTarget = profile.CalorieTarget
		proTarget = profile.ProteinTargetG
		carbTarget = profile.CarbsTargetG
		fatTarget = profile.FatTargetG
		fiberTarget = profile.FiberTargetG
	}
	add("calories", calories, calTarget)
	add("protein", protein, proTarget)
	add("carbs", carbs, carbTarget)
	add("fat", fat, fatTarget)
	add("fiber", fiber, fiberTarget)

	return successEnvelope(data)
}

func (d *Dispatcher) getRecipeInfo(ctx context.Context, args map[string]any) map[string]any {
	name := strings.TrimSpace(stringArg(args, "recipe_name", ""))
	recipe, err := d.wellness.GetRecipeByTitle(ctx, name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("look up recipe: %v", err))
	}
	if recipe == nil {
		return errorEnvelope(ErrCodeNotFound, fmt.Sprintf("no recipe found matching %q", name))
	}
	return successEnvelope(map[string]any{
		"recipe": recipeData(recipe),
	})
}

func recipeData(r *models.Recipe) map[string]any {
	return map[string]any{
		"title":        r.Title,
		"servings":     r.Servings,
		"ingredients":  r.Ingredients,
		"instructions": r.Instructions,
		"nutrition_per_serving": map[string]any{
			"calories":  r.CaloriesPerServing,
			"protein_g": r.ProteinPerServingG,
			"carbs_g":   r.CarbsPerServingG,
			"fat_g":     r.FatPerServingG,
		},
	}
}

func (d *Dispatcher) getActivitySummary(ctx context.Context, userID uuid.UUID, args map[string]any) map[string]any {
	period := stringArg(args, "time_period", "week")
	from, to := d.periodRange(period)

	logs, err := d.wellness.GetActivityLogs(ctx, userID, from, to)
	if err != nil {
		return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("load activity logs: %v", err))
	}
	if len(logs) == 0 {
		return errorEnvelope(ErrCodeNotFound, fmt.Sprintf("no activity logged for period %q", period))
	}

	var steps, minutes int
	var burned float64
	types := make(map[string]int)
	for _, l := range logs {
		steps += l.Steps
		minutes += l.ActiveMinutes
		burned += l.CaloriesBurned
		if l.ActivityType != "" {
			types[l.ActivityType]++
		}
	}
	activityTypes := make([]string, 0, len(types))
	for t := range types {
		activityTypes = append(activityTypes, t)
	}

	return successEnvelope(map[string]any{
		"time_period":          period,
		"days_active":          len(logs),
		"total_steps":          steps,
		"total_active_minutes": minutes,
		"calories_burned":      round1(burned),
		"activity_types":       activityTypes,
	})
}

func (d *Dispatcher) getProgressReport(ctx context.Context, userID uuid.UUID, args map[string]any) map[string]any {
	reportType := stringArg(args, "report_type", "overall")
	period := stringArg(args, "time_period", "month")
	from, _ := d.periodRange(period)

	data := map[string]any{
		"report_type": reportType,
		"time_period": period,
	}

	if reportType == "weight" || reportType == "overall" {
		history, err := d.wellness.GetWeightHistory(ctx, userID, from)
		if err != nil {
			return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("load weight history: %v", err))
		}
		if len(history) >= 2 {
			first := history[0]
			last := history[len(history)-1]
			data["weight"] = map[string]any{
				"start_kg":  first.WeightKg,
				"latest_kg": last.WeightKg,
				"change_kg": round1(last.WeightKg - first.WeightKg),
				"entries":   len(history),
			}
		} else if reportType == "weight" {
			return errorEnvelope(ErrCodeNotFound, "not enough weight entries in this period to report progress")
		}
	}

	if reportType == "nutrition" || reportType == "overall" {
		analysis := d.getNutritionAnalysis(ctx, userID, map[string]any{"nutrient": "all", "time_period": period})
		if success, _ := analysis["success"].(bool); success {
			delete(analysis, "success")
			data["nutrition"] = analysis
		} else if reportType == "nutrition" {
			return analysis
		}
	}

	if reportType == "activity" || reportType == "overall" {
		summary := d.getActivitySummary(ctx, userID, map[string]any{"time_period": period})
		if success, _ := summary["success"].(bool); success {
			delete(summary, "success")
			data["activity"] = summary
		} else if reportType == "activity" {
			return summary
		}
	}

	if reportType == "overall" {
		if score, err := d.wellness.GetLatestWellnessScore(ctx, userID); err == nil && score != nil {
			data["wellness_score"] = score.Composite
		}
	}

	return successEnvelope(data)
}

func (d *Dispatcher) searchRecipes(ctx context.Context, args map[string]any) map[string]any {
	query := strings.TrimSpace(stringArg(args, "query", ""))
	max := 5
	if v, ok := args["max_results"].(float64); ok && v > 0 {
		max = int(v)
	}
	if max > 20 {
		max = 20
	}

	recipes, err := d.wellness.SearchRecipes(ctx, query, max)
	if err != nil {
		return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("search recipes: %v", err))
	}
	results := make([]map[string]any, 0, len(recipes))
	for _, r := range recipes {
		results = append(results, map[string]any{
			"title":                r.Title,
			"calories_per_serving": r.CaloriesPerServing,
			"protein_per_serving":  r.ProteinPerServingG,
		})
	}
	return successEnvelope(map[string]any{
		"query":   query,
		"count":   len(results),
		"recipes": results,
	})
}

func (d *Dispatcher) getUserPreferences(ctx context.Context, userID uuid.UUID) map[string]any {
	profile, err := d.wellness.GetNutritionProfile(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("load nutrition profile: %v", err))
	}
	if profile == nil {
		return errorEnvelope(ErrCodeNotFound, "no nutrition profile recorded for this user")
	}
	return successEnvelope(map[string]any{
		"calorie_target":      profile.CalorieTarget,
		"protein_target_g":    profile.ProteinTargetG,
		"carbs_target_g":      profile.CarbsTargetG,
		"fat_target_g":        profile.FatTargetG,
		"meals_per_day":       profile.MealsPerDay,
		"dietary_preferences": profile.DietaryPreferences,
		"allergies":           profile.Allergies,
	})
}

func (d *Dispatcher) generateProgressChart(ctx context.Context, userID uuid.UUID, args map[string]any) map[string]any {
	chartType := stringArg(args, "chart_type", "weight_trend")
	period := stringArg(args, "time_period", "month")
	from, to := d.periodRange(period)

	var points []map[string]any
	switch chartType {
	case "weight_trend":
		history, err := d.wellness.GetWeightHistory(ctx, userID, from)
		if err != nil {
			return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("load weight history: %v", err))
		}
		for _, e := range history {
			points = append(points, map[string]any{
				"date":  e.RecordedAt.Format("2006-01-02"),
				"value": e.WeightKg,
			})
		}
	case "calorie_intake", "macro_breakdown":
		logs, err := d.wellness.GetNutritionLogs(ctx, userID, from, to)
		if err != nil {
			return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("load nutrition logs: %v", err))
		}
		for _, l := range logs {
			p := map[string]any{"date": l.Date.Format("2006-01-02")}
			if chartType == "calorie_intake" {
				p["value"] = l.Calories
			} else {
				p["protein_g"] = l.ProteinG
				p["carbs_g"] = l.CarbsG
				p["fat_g"] = l.FatG
			}
			points = append(points, p)
		}
	case "activity":
		logs, err := d.wellness.GetActivityLogs(ctx, userID, from, to)
		if err != nil {
			return errorEnvelope(ErrCodeFunctionError, fmt.Sprintf("load activity logs: %v", err))
		}
		for _, l := range logs {
			points = append(points, map[string]any{
				"date":  l.Date.Format("2006-01-02"),
				"value": l.Steps,
			})
		}
	}
	if len(points) == 0 {
		return errorEnvelope(ErrCodeNotFound, fmt.Sprintf("no data to chart for period %q", period))
	}
	return successEnvelope(map[string]any{
		"chart_type":  chartType,
		"time_period": period,
		"points":      points,
	})
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
