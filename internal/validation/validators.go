package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/wellora/wellness-api/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("response_mode", validateResponseMode); err != nil {
		panic(fmt.Sprintf("failed to register response_mode validator: %v", err))
	}
}

// validateResponseMode validates that a string is a valid ResponseMode enum value
func validateResponseMode(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.ResponseMode(value) {
	case models.ResponseModeConcise, models.ResponseModeDetailed:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateResponseMode validates a ResponseMode string value
func ValidateResponseMode(value string) error {
	switch models.ResponseMode(value) {
	case models.ResponseModeConcise, models.ResponseModeDetailed:
		return nil
	default:
		return fmt.Errorf("invalid response_mode: %s (must be 'concise' or 'detailed')", value)
	}
}
