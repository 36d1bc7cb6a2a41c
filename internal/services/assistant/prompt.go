package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wellora/wellness-api/internal/database"
	"github.com/wellora/wellness-api/internal/models"
)

// PromptRenderer produces the system instruction injected at the head of
// every context window, parameterized by the user's name, response mode,
// and a snapshot of their current profile and today's intake.
type PromptRenderer struct {
	wellness database.WellnessReader
	now      func() time.Time
}

// NewPromptRenderer creates a renderer over the wellness read layer.
func NewPromptRenderer(wellness database.WellnessReader) *PromptRenderer {
	return &PromptRenderer{wellness: wellness, now: time.Now}
}

// Render builds the system prompt. Profile lookups that fail are simply
// omitted from the snapshot; the prompt must never block a turn.
func (r *PromptRenderer) Render(ctx context.Context, user *models.User, prefs *models.UserPreference) string {
	var b strings.Builder
	b.WriteString("You are a wellness assistant that answers questions about the user's own health, nutrition, and activity data. ")
	b.WriteString("Only use numeric values supplied in function results; never invent measurements, weights, or nutrient amounts. ")
	b.WriteString("If data is missing, say so plainly and suggest how the user could record it.")

	if user != nil && user.Name != nil && *user.Name != "" {
		fmt.Fprintf(&b, "\n\nThe user's name is %s.", *user.Name)
	}

	switch prefs.ResponseMode {
	case models.ResponseModeDetailed:
		b.WriteString("\nRespond in detail: explain the numbers, the context behind them, and practical next steps.")
	default:
		b.WriteString("\nBe concise: answer in a few sentences, lead with the number or fact asked for.")
	}

	if snapshot := r.profileSnapshot(ctx, user); snapshot != "" {
		b.WriteString("\n\nCurrent profile snapshot:\n")
		b.WriteString(snapshot)
	}

	return b.String()
}

func (r *PromptRenderer) profileSnapshot(ctx context.Context, user *models.User) string {
	if user == nil {
		return ""
	}
	var lines []string

	if profile, err := r.wellness.GetHealthProfile(ctx, user.ID); err == nil && profile != nil {
		bmi := round1(profile.BMI())
		lines = append(lines, fmt.Sprintf("- Weight: %.1f kg, BMI: %.1f (%s)", profile.WeightKg, bmi, models.BMICategory(bmi)))
		if profile.FitnessGoal != "" {
			lines = append(lines, "- Fitness goal: "+profile.FitnessGoal)
		}
	}

	if np, err := r.wellness.GetNutritionProfile(ctx, user.ID); err == nil && np != nil {
		lines = append(lines, fmt.Sprintf("- Daily targets: %.0f kcal, %.0f g protein, %d meals/day",
			np.CalorieTarget, np.ProteinTargetG, np.MealsPerDay))
		if len(np.Allergies) > 0 {
			lines = append(lines, "- Allergies: "+strings.Join(np.Allergies, ", "))
		}
	}

	if today := r.todayIntake(ctx, user.ID); today != "" {
		lines = append(lines, today)
	}

	return strings.Join(lines, "\n")
}

func (r *PromptRenderer) todayIntake(ctx context.Context, userID uuid.UUID) string {
	now := r.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	logs, err := r.wellness.GetNutritionLogs(ctx, userID, start, now)
	if err != nil || len(logs) == 0 {
		return ""
	}
	var cal, protein float64
	for _, l := range logs {
		cal += l.Calories
		protein += l.ProteinG
	}
	return fmt.Sprintf("- Logged today so far: %.0f kcal, %.0f g protein", cal, protein)
}
