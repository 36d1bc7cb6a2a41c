package assistant

import (
	"testing"
)

func TestValidateArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		function FunctionName
		args     map[string]any
		wantErr  string // expected error code, empty for success
		check    func(*testing.T, map[string]any)
	}{
		{
			name:     "valid health metrics call",
			function: FnGetHealthMetrics,
			args:     map[string]any{"metric_type": "bmi"},
			check: func(t *testing.T, args map[string]any) {
				if args["time_period"] != "current" {
					t.Errorf("expected default time_period current, got %v", args["time_period"])
				}
			},
		},
		{
			name:     "missing required parameter",
			function: FnGetHealthMetrics,
			args:     map[string]any{},
			wantErr:  ErrCodeMissingParameter,
		},
		{
			name:     "invalid enum value",
			function: FnGetHealthMetrics,
			args:     map[string]any{"metric_type": "shoe_size"},
			wantErr:  ErrCodeInvalidParameter,
		},
		{
			name:     "non-string enum value",
			function: FnGetNutritionAnalysis,
			args:     map[string]any{"nutrient": 42},
			wantErr:  ErrCodeInvalidParameter,
		},
		{
			name:     "unknown function",
			function: FunctionName("delete_everything"),
			args:     map[string]any{},
			wantErr:  ErrCodeUnknownFunction,
		},
		{
			name:     "meal plan defaults applied",
			function: FnGetMealPlan,
			args:     map[string]any{},
			check: func(t *testing.T, args map[string]any) {
				if args["meal_type"] != "all" {
					t.Errorf("expected default meal_type all, got %v", args["meal_type"])
				}
			},
		},
		{
			name:     "free-form parameter accepted",
			function: FnSearchRecipes,
			args:     map[string]any{"query": "chicken curry"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			normalized, errEnv := ValidateArgs(tt.function, tt.args)
			if tt.wantErr == "" {
				if errEnv != nil {
					t.Fatalf("unexpected validation error: %v", errEnv)
				}
				if tt.check != nil {
					tt.check(t, normalized)
				}
				return
			}
			if errEnv == nil {
				t.Fatal("expected a validation error envelope")
			}
			errInfo, ok := errEnv["error"].(map[string]any)
			if !ok {
				t.Fatalf("error envelope missing error object: %v", errEnv)
			}
			if errInfo["code"] != tt.wantErr {
				t.Errorf("expected error code %s, got %v", tt.wantErr, errInfo["code"])
			}
			if success, _ := errEnv["success"].(bool); success {
				t.Error("error envelope must carry success=false")
			}
		})
	}
}

func TestSchemasAreSelfConsistent(t *testing.T) {
	t.Parallel()

	schemas := Schemas()
	if len(schemas) != len(functionSchemas) {
		t.Fatalf("Schemas() returned %d entries, want %d", len(schemas), len(functionSchemas))
	}
	for _, s := range schemas {
		if s.Name != functionSchemas[s.Name].Name {
			t.Errorf("schema table key %q does not match declared name", s.Name)
		}
		for _, p := range s.Params {
			if p.Default == "" {
				continue
			}
			if len(p.Enum) > 0 && !containsString(p.Enum, p.Default) {
				t.Errorf("%s.%s default %q is not a member of its enum", s.Name, p.Name, p.Default)
			}
			if p.Required {
				t.Errorf("%s.%s is required but declares a default", s.Name, p.Name)
			}
		}
	}
}
