package assistant

import (
	"fmt"
	"sort"
)

// FunctionName enumerates the registered data-retrieval operations the
// model may call. The set is closed: dispatch and the schema table below
// must both be updated to add an operation.
type FunctionName string

const (
	FnGetHealthMetrics      FunctionName = "get_health_metrics"
	FnGetMealPlan           FunctionName = "get_meal_plan"
	FnGetNutritionAnalysis  FunctionName = "get_nutrition_analysis"
	FnGetRecipeInfo         FunctionName = "get_recipe_info"
	FnGetActivitySummary    FunctionName = "get_activity_summary"
	FnGetProgressReport     FunctionName = "get_progress_report"
	FnSearchRecipes         FunctionName = "search_recipes"
	FnGetUserPreferences    FunctionName = "get_user_preferences"
	FnGenerateProgressChart FunctionName = "generate_progress_chart"
)

// Error codes carried in result envelopes.
const (
	ErrCodeUnknownFunction  = "UNKNOWN_FUNCTION"
	ErrCodeInvalidParameter = "INVALID_PARAMETER"
	ErrCodeMissingParameter = "MISSING_PARAMETER"
	ErrCodeFunctionError    = "FUNCTION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
)

// ParamSpec declares one parameter of a registered function. Enum is nil
// for free-form string parameters.
type ParamSpec struct {
	Name        string
	Description string
	Required    bool
	Enum        []string
	Default     string
}

// FunctionSchema declares one registered function: name, description, and
// its parameter specs. The schema table is the single source of truth for
// validation and for the tool definitions sent to the model.
type FunctionSchema struct {
	Name        FunctionName
	Description string
	Params      []ParamSpec
}

// Enum values shared across schemas.
var (
	metricTypes   = []string{"bmi", "weight", "wellness_score", "activity_level", "all"}
	timePeriods   = []string{"today", "yesterday", "week", "month", "quarter", "current"}
	mealTypes     = []string{"breakfast", "lunch", "dinner", "snack", "all"}
	nutrientTypes = []string{"protein", "calories", "carbs", "fat", "fiber", "all"}
	reportTypes   = []string{"weight", "nutrition", "activity", "overall"}
	chartTypes    = []string{"weight_trend", "calorie_intake", "macro_breakdown", "activity"}
)

var functionSchemas = map[FunctionName]FunctionSchema{
	FnGetHealthMetrics: {
		Name:        FnGetHealthMetrics,
		Description: "Get the user's health metrics such as weight, BMI, wellness score, and activity level.",
		Params: []ParamSpec{
			{Name: "metric_type", Description: "Which metric to retrieve", Required: true, Enum: metricTypes},
			{Name: "time_period", Description: "Time period for the metric", Enum: timePeriods, Default: "current"},
		},
	},
	FnGetMealPlan: {
		Name:        FnGetMealPlan,
		Description: "Get the user's meal plan for a date, optionally filtered to one meal type.",
		Params: []ParamSpec{
			{Name: "meal_type", Description: "Meal to retrieve", Enum: mealTypes, Default: "all"},
			{Name: "date", Description: "Plan date in YYYY-MM-DD form, defaults to today"},
		},
	},
	FnGetNutritionAnalysis: {
		Name:        FnGetNutritionAnalysis,
		Description: "Analyze the user's logged nutrient intake against their targets.",
		Params: []ParamSpec{
			{Name: "nutrient", Description: "Nutrient to analyze", Required: true, Enum: nutrientTypes},
			{Name: "time_period", Description: "Time period to analyze", Enum: timePeriods, Default: "today"},
		},
	},
	FnGetRecipeInfo: {
		Name:        FnGetRecipeInfo,
		Description: "Look up a recipe by title: servings, ingredients, instructions, and per-serving macros.",
		Params: []ParamSpec{
			{Name: "recipe_name", Description: "Recipe title to look up", Required: true},
		},
	},
	FnGetActivitySummary: {
		Name:        FnGetActivitySummary,
		Description: "Summarize the user's logged physical activity over a time period.",
		Params: []ParamSpec{
			{Name: "time_period", Description: "Time period to summarize", Enum: timePeriods, Default: "week"},
		},
	},
	FnGetProgressReport: {
		Name:        FnGetProgressReport,
		Description: "Build a progress report comparing the user's recent data against their goals.",
		Params: []ParamSpec{
			{Name: "report_type", Description: "Which progress dimension to report on", Required: true, Enum: reportTypes},
			{Name: "time_period", Description: "Time period to cover", Enum: timePeriods, Default: "month"},
		},
	},
	FnSearchRecipes: {
		Name:        FnSearchRecipes,
		Description: "Search stored recipes by a free-text query.",
		Params: []ParamSpec{
			{Name: "query", Description: "Search text", Required: true},
			{Name: "max_results", Description: "Maximum number of results, defaults to 5"},
		},
	},
	FnGetUserPreferences: {
		Name:        FnGetUserPreferences,
		Description: "Get the user's dietary preferences, allergies, and nutrition targets.",
		Params:      []ParamSpec{},
	},
	FnGenerateProgressChart: {
		Name:        FnGenerateProgressChart,
		Description: "Describe a chart of the user's progress data for the client to render.",
		Params: []ParamSpec{
			{Name: "chart_type", Description: "Chart to generate", Required: true, Enum: chartTypes},
			{Name: "time_period", Description: "Time period to chart", Enum: timePeriods, Default: "month"},
		},
	},
}

// Schemas returns all registered function schemas in stable name order.
func Schemas() []FunctionSchema {
	out := make([]FunctionSchema, 0, len(functionSchemas))
	for _, s := range functionSchemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SchemaFor returns the schema for name, if registered.
func SchemaFor(name FunctionName) (FunctionSchema, bool) {
	s, ok := functionSchemas[name]
	return s, ok
}

// successEnvelope wraps accessor data in the uniform success shape.
func successEnvelope(data map[string]any) map[string]any {
	out := map[string]any{"success": true}
	for k, v := range data {
		out[k] = v
	}
	return out
}

// errorEnvelope wraps a failure in the uniform error shape. Errors cross
// the dispatcher boundary as data, never as raised errors.
func errorEnvelope(code, message string) map[string]any {
	return map[string]any{
		"success": false,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}

// ValidateArgs checks required-field presence and enum membership against
// the schema, applying declared defaults for absent optional parameters.
// It returns the normalized argument map, or an error envelope when the
// arguments do not conform.
func ValidateArgs(name FunctionName, args map[string]any) (map[string]any, map[string]any) {
	schema, ok := functionSchemas[name]
	if !ok {
		return nil, errorEnvelope(ErrCodeUnknownFunction, fmt.Sprintf("unknown function: %s", name))
	}

	normalized := make(map[string]any, len(args))
	for k, v := range args {
		normalized[k] = v
	}

	for _, p := range schema.Params {
		raw, present := normalized[p.Name]
		if !present || raw == nil || raw == "" {
			if p.Required {
				return nil, errorEnvelope(ErrCodeMissingParameter, fmt.Sprintf("missing required parameter: %s", p.Name))
			}
			if p.Default != "" {
				normalized[p.Name] = p.Default
			}
			continue
		}
		if len(p.Enum) == 0 {
			continue
		}
		val, ok := raw.(string)
		if !ok {
			return nil, errorEnvelope(ErrCodeInvalidParameter, fmt.Sprintf("parameter %s must be a string", p.Name))
		}
		if !containsString(p.Enum, val) {
			return nil, errorEnvelope(ErrCodeInvalidParameter, fmt.Sprintf("invalid value %q for parameter %s", val, p.Name))
		}
	}

	return normalized, nil
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// stringArg reads a string argument from a validated argument map,
// returning fallback when absent.
func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
