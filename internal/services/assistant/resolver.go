package assistant

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wellora/wellness-api/internal/models"
)

// contextLookback is how many recent messages the resolver inspects.
const contextLookback = 10

// ContextInfo is the lightweight memory of recently discussed entities,
// rebuilt from the tail of the transcript on every turn.
type ContextInfo struct {
	RecentRecipes    []string // most recent last
	RecentMetrics    []string
	RecentPeriods    []string
	Topics           []string
	LastMealName     string
	LastMealProteinG float64
}

// LastRecipe returns the most recently mentioned recipe title, if any.
func (c *ContextInfo) LastRecipe() string {
	if len(c.RecentRecipes) == 0 {
		return ""
	}
	return c.RecentRecipes[len(c.RecentRecipes)-1]
}

// LastMetric returns the most recently discussed metric, if any.
func (c *ContextInfo) LastMetric() string {
	if len(c.RecentMetrics) == 0 {
		return ""
	}
	return c.RecentMetrics[len(c.RecentMetrics)-1]
}

var (
	proteinPattern  = regexp.MustCompile(`(?i)protein[:\s]+(\d+(?:\.\d+)?)\s*g`)
	mealNamePattern = regexp.MustCompile(`(?i)\bthe\s+([a-z][a-z\s]{2,40}?)\s+contains\b`)
	pronounPattern  = regexp.MustCompile(`(?i)\b(it|that|this)\b`)
)

var metricKeywords = []string{"weight", "bmi", "protein", "calories", "carbs", "fat", "fiber", "wellness score"}
var periodKeywords = []string{"today", "yesterday", "this week", "last week", "this month", "last month"}

// ExtractContext scans the last messages (oldest first) for recipes,
// metrics, time periods, and coarse topics. Structured function results are
// preferred; a regex pass over assistant text recovers protein values and
// meal names when no structured data is present.
func ExtractContext(recent []*models.Message) *ContextInfo {
	info := &ContextInfo{}
	if len(recent) > contextLookback {
		recent = recent[len(recent)-contextLookback:]
	}

	for _, msg := range recent {
		switch msg.Role {
		case models.RoleFunction:
			extractFromFunction(info, msg)
		case models.RoleUser:
			lower := strings.ToLower(msg.Content)
			for _, kw := range metricKeywords {
				if strings.Contains(lower, kw) {
					appendUnique(&info.RecentMetrics, kw)
				}
			}
			for _, kw := range periodKeywords {
				if strings.Contains(lower, kw) {
					appendUnique(&info.RecentPeriods, kw)
				}
			}
			extractTopics(info, lower)
		case models.RoleAssistant:
			if m := proteinPattern.FindStringSubmatch(msg.Content); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					info.LastMealProteinG = v
				}
			}
			if m := mealNamePattern.FindStringSubmatch(msg.Content); m != nil {
				info.LastMealName = strings.TrimSpace(m[1])
			}
		}
	}
	return info
}

func extractFromFunction(info *ContextInfo, msg *models.Message) {
	if msg.FunctionResponse == nil {
		return
	}
	switch FunctionName(msg.FunctionName) {
	case FnGetRecipeInfo:
		recipe, ok := msg.FunctionResponse["recipe"].(map[string]any)
		if !ok {
			return
		}
		if title, ok := recipe["title"].(string); ok && title != "" {
			appendUnique(&info.RecentRecipes, title)
			info.LastMealName = title
		}
		if nutrition, ok := recipe["nutrition_per_serving"].(map[string]any); ok {
			if protein, ok := toFloat(nutrition["protein_g"]); ok {
				info.LastMealProteinG = protein
			}
		}
	case FnGetHealthMetrics:
		if mt, ok := msg.FunctionResponse["metric_type"].(string); ok && mt != "" {
			appendUnique(&info.RecentMetrics, mt)
		}
	case FnGetNutritionAnalysis:
		if n, ok := msg.FunctionResponse["nutrient"].(string); ok && n != "" {
			appendUnique(&info.RecentMetrics, n)
		}
		if protein, ok := toFloat(msg.FunctionResponse["meal_protein_g"]); ok {
			info.LastMealProteinG = protein
		}
	}
}

func extractTopics(info *ContextInfo, lower string) {
	if strings.Contains(lower, "weight") || strings.Contains(lower, "bmi") {
		appendUnique(&info.Topics, "weight")
	}
	if strings.Contains(lower, "meal") || strings.Contains(lower, "recipe") ||
		strings.Contains(lower, "protein") || strings.Contains(lower, "calorie") {
		appendUnique(&info.Topics, "nutrition")
	}
	if strings.Contains(lower, "workout") || strings.Contains(lower, "exercise") ||
		strings.Contains(lower, "activity") || strings.Contains(lower, "steps") {
		appendUnique(&info.Topics, "fitness")
	}
}

// Resolve rewrites a bare pronoun in user text into an explicit reference
// by appending a parenthetical hint naming the most recently discussed
// recipe and/or metric. The original text is what gets persisted; the
// augmented text is what goes to the model.
func Resolve(text string, info *ContextInfo) string {
	if info == nil || !pronounPattern.MatchString(text) {
		return text
	}
	var hints []string
	if recipe := info.LastRecipe(); recipe != "" {
		hints = append(hints, fmt.Sprintf("referring to the recipe %q", recipe))
	} else if info.LastMealName != "" {
		hints = append(hints, fmt.Sprintf("referring to %q", info.LastMealName))
	}
	if metric := info.LastMetric(); metric != "" {
		hints = append(hints, "recently discussed: "+metric)
	}
	if len(hints) == 0 {
		return text
	}
	return text + " (" + strings.Join(hints, "; ") + ")"
}

func appendUnique(list *[]string, v string) {
	for i, existing := range *list {
		if existing == v {
			// Move to the end so "most recent" wins.
			*list = append(append((*list)[:i], (*list)[i+1:]...), v)
			return
		}
	}
	*list = append(*list, v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
