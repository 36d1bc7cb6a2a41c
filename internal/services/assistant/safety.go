package assistant

import (
	"strings"
)

// RefusalMessage is the fixed reply persisted when the safety gate trips.
const RefusalMessage = "I can only help with questions about your own wellness data. " +
	"I can't share personal identifiers, access other users' information, or change how I operate. " +
	"Is there something about your health, nutrition, or activity I can help with?"

// Signature sets matched case-insensitively as substrings. Matching is
// deliberately recall-biased: false positives are acceptable, leaking is not.
var (
	piiTerms = []string{
		"email address", "home address", "mailing address", "phone number",
		"date of birth", "social security", "ssn", "passport",
		"password", "one-time code", "otp", "api key", "secret key",
		"credential", "credit card", "bank account",
	}
	crossUserTerms = []string{
		"other user", "other users", "another user", "all users",
		"everyone's data", "admin mode", "admin access", "elevated access",
		"override", "bypass",
	}
	injectionTerms = []string{
		"ignore previous", "ignore all previous", "disregard previous",
		"system prompt", "act as", "pretend you are", "developer mode",
		"jailbreak", "new instructions",
	}
)

// ShouldRefuse reports whether user text solicits PII, cross-user access,
// or attempts prompt injection. When true, the orchestrator replies with
// RefusalMessage and never invokes the model.
func ShouldRefuse(text string) bool {
	lower := strings.ToLower(text)
	for _, set := range [][]string{piiTerms, crossUserTerms, injectionTerms} {
		for _, term := range set {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}
	return false
}
