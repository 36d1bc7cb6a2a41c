package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/wellora/wellness-api/internal/models"
)

func TestDetectIntents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		verify func(*testing.T, MetricIntents)
	}{
		{
			name: "bmi question",
			text: "What's my current BMI?",
			verify: func(t *testing.T, m MetricIntents) {
				if !m.BMI || !m.HealthMetricRequested() {
					t.Error("expected BMI intent")
				}
				if m.TimePeriod != "today" {
					t.Errorf("expected default period today, got %s", m.TimePeriod)
				}
			},
		},
		{
			name: "protein with period hint",
			text: "How much protein did I eat yesterday?",
			verify: func(t *testing.T, m MetricIntents) {
				if len(m.Nutrients) != 1 || m.Nutrients[0] != "protein" {
					t.Errorf("expected protein nutrient, got %v", m.Nutrients)
				}
				if m.TimePeriod != "yesterday" {
					t.Errorf("expected period yesterday, got %s", m.TimePeriod)
				}
			},
		},
		{
			name: "multiple nutrients",
			text: "Show my calories and carbs this week",
			verify: func(t *testing.T, m MetricIntents) {
				if len(m.Nutrients) != 2 {
					t.Fatalf("expected two nutrients, got %v", m.Nutrients)
				}
				if m.TimePeriod != "week" {
					t.Errorf("expected period week, got %s", m.TimePeriod)
				}
			},
		},
		{
			name: "meal plan with meal type",
			text: "What's on my meal plan for dinner?",
			verify: func(t *testing.T, m MetricIntents) {
				if !m.MealPlan {
					t.Fatal("expected meal plan intent")
				}
				if m.MealType != "dinner" {
					t.Errorf("expected dinner, got %s", m.MealType)
				}
			},
		},
		{
			name: "generic nutrition falls back to all",
			text: "How is my nutrition looking?",
			verify: func(t *testing.T, m MetricIntents) {
				if len(m.Nutrients) != 1 || m.Nutrients[0] != "all" {
					t.Errorf("expected nutrient all, got %v", m.Nutrients)
				}
			},
		},
		{
			name: "no intent",
			text: "Tell me a fun fact about hydration",
			verify: func(t *testing.T, m MetricIntents) {
				if m.HealthMetricRequested() || m.MealPlan || len(m.Nutrients) != 0 {
					t.Errorf("expected no intents, got %+v", m)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.verify(t, DetectIntents(tt.text))
		})
	}
}

// Overlapping health metric intents must collapse into one combined call.
func TestPrefetchCombinesHealthMetrics(t *testing.T) {
	t.Parallel()

	wellness := &fakeWellness{
		healthProfile: &models.HealthProfile{WeightKg: 75, HeightCm: 175},
		wellnessScore: &models.WellnessScore{Composite: 70, Date: time.Now()},
	}
	p := NewPrefetcher(NewDispatcher(wellness, nil), wellness, nil)

	results := p.Prefetch(context.Background(), uuid.New(), "What's my weight and BMI and wellness score?", nil)
	healthCalls := 0
	for _, r := range results {
		if r.Function == FnGetHealthMetrics {
			healthCalls++
			if r.Args["metric_type"] != "all" {
				t.Errorf("expected combined metric_type all, got %v", r.Args["metric_type"])
			}
		}
	}
	if healthCalls != 1 {
		t.Errorf("expected exactly one combined health metrics call, got %d", healthCalls)
	}
}

func TestPrefetchProteinSufficiency(t *testing.T) {
	t.Parallel()

	wellness := &fakeWellness{
		nutritionProfile: &models.NutritionProfile{
			ProteinTargetG: 100,
			MealsPerDay:    3,
		},
	}
	p := NewPrefetcher(NewDispatcher(wellness, nil), wellness, nil)

	prior := &ContextInfo{LastMealProteinG: 18, LastMealName: "Veggie Wrap"}
	results := p.Prefetch(context.Background(), uuid.New(), "Is that enough protein?", prior)
	if len(results) != 1 {
		t.Fatalf("expected a single sufficiency result, got %d", len(results))
	}
	r := results[0]
	if r.Function != FnGetNutritionAnalysis {
		t.Errorf("expected nutrition analysis, got %s", r.Function)
	}
	if success, _ := r.Result["success"].(bool); !success {
		t.Fatalf("expected success, got %v", r.Result)
	}
	// Per-meal recommendation is 100/3 = 33.3g; 18 < 0.9*33.3.
	if isEnough, _ := r.Result["is_enough"].(bool); isEnough {
		t.Error("18g against a 33.3g per-meal target must not count as enough")
	}
	if r.Result["per_meal_target_g"] != 33.3 {
		t.Errorf("expected per-meal target 33.3, got %v", r.Result["per_meal_target_g"])
	}
	if r.Result["percent_of_daily"] != 18.0 {
		t.Errorf("expected 18 percent of daily, got %v", r.Result["percent_of_daily"])
	}
	if r.Result["meal"] != "Veggie Wrap" {
		t.Errorf("expected meal name carried through, got %v", r.Result["meal"])
	}
}

func TestPrefetchProteinSufficiencyEnough(t *testing.T) {
	t.Parallel()

	wellness := &fakeWellness{
		nutritionProfile: &models.NutritionProfile{
			ProteinTargetG: 90,
			MealsPerDay:    3,
		},
	}
	p := NewPrefetcher(NewDispatcher(wellness, nil), wellness, nil)

	// 28g against a 30g per-meal target clears the 90% bar (27g).
	prior := &ContextInfo{LastMealProteinG: 28}
	results := p.Prefetch(context.Background(), uuid.New(), "Was that sufficient protein?", prior)
	if len(results) != 1 {
		t.Fatalf("expected a single result, got %d", len(results))
	}
	if isEnough, _ := results[0].Result["is_enough"].(bool); !isEnough {
		t.Error("28g against a 30g per-meal target should count as enough")
	}
}

// The sufficiency assessment stands in for the protein fetch only; other
// nutrients named in the same question still get fetched.
func TestPrefetchSufficiencyKeepsOtherNutrients(t *testing.T) {
	t.Parallel()

	wellness := &fakeWellness{
		nutritionProfile: &models.NutritionProfile{
			ProteinTargetG: 90,
			MealsPerDay:    3,
		},
		nutritionLogs: []*models.NutritionLog{
			{Date: time.Now(), Calories: 1800, ProteinG: 80},
		},
	}
	p := NewPrefetcher(NewDispatcher(wellness, nil), wellness, nil)

	prior := &ContextInfo{LastMealProteinG: 28}
	results := p.Prefetch(context.Background(), uuid.New(), "Was that enough protein, and how are my calories this week?", prior)
	if len(results) != 2 {
		t.Fatalf("expected sufficiency plus calories analysis, got %d results", len(results))
	}

	var sufficiency, calories, plainProtein bool
	for _, r := range results {
		switch {
		case r.Args["assessment"] == "meal_sufficiency":
			sufficiency = true
		case r.Args["nutrient"] == "calories":
			calories = true
		case r.Args["nutrient"] == "protein":
			plainProtein = true
		}
	}
	if !sufficiency {
		t.Error("expected the protein sufficiency assessment")
	}
	if !calories {
		t.Error("expected the calories analysis alongside the assessment")
	}
	if plainProtein {
		t.Error("the assessment must replace the plain protein fetch, not duplicate it")
	}
}

// Without prior meal context, "enough protein" falls back to a normal
// nutrition analysis fetch.
func TestPrefetchProteinSufficiencyNeedsContext(t *testing.T) {
	t.Parallel()

	wellness := &fakeWellness{}
	p := NewPrefetcher(NewDispatcher(wellness, nil), wellness, nil)

	results := p.Prefetch(context.Background(), uuid.New(), "Am I getting enough protein?", &ContextInfo{})
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if results[0].Args["assessment"] != nil {
		t.Error("expected a plain nutrition analysis, not a sufficiency assessment")
	}
}
