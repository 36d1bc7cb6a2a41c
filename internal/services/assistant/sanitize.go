package assistant

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Context key types for logging (to avoid collisions with string keys)
type contextKey string

const (
	userIDContextKey         contextKey = "user_id"
	conversationIDContextKey contextKey = "conversation_id"
	requestIDContextKey      contextKey = "request_id"
)

// UserIDContextKey returns the context key for user ID
func UserIDContextKey() contextKey {
	return userIDContextKey
}

// ConversationIDContextKey returns the context key for conversation ID
func ConversationIDContextKey() contextKey {
	return conversationIDContextKey
}

// RequestIDContextKey returns the context key for request ID
func RequestIDContextKey() contextKey {
	return requestIDContextKey
}

const (
	// MaxPreviewLength is the maximum length for preview strings in logs
	MaxPreviewLength = 200
	// MaxDebugContentLength is the maximum length when full debug logging is on
	MaxDebugContentLength = 10000
	// RedactedValue is the value used to replace sensitive data
	RedactedValue = "[REDACTED]"
)

// SanitizeAPIKey sanitizes an API key for logging
func SanitizeAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 8 {
		return RedactedValue
	}
	return apiKey[:4] + RedactedValue + apiKey[len(apiKey)-4:]
}

// SanitizeContent creates a safe preview of prompt or response text for
// logging. Even in fullLog mode content is sanitized to prevent log
// injection and bound size.
func SanitizeContent(s string, fullLog bool) string {
	if s == "" {
		return ""
	}
	maxLen := MaxPreviewLength
	if fullLog {
		maxLen = MaxDebugContentLength
	}
	return sanitizeStringForLogging(s, maxLen)
}

// sanitizeStringForLogging removes control characters, validates UTF-8, and truncates
func sanitizeStringForLogging(s string, maxLen int) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			builder.WriteRune(r)
		}
	}
	s = builder.String()

	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}

// TruncateString safely truncates a string to max length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// ExtractRequestID extracts a request ID from context if available
func ExtractRequestID(ctx context.Context) string {
	if reqID := ctx.Value(requestIDContextKey); reqID != nil {
		if id, ok := reqID.(string); ok {
			return id
		}
	}
	return ""
}

// ExtractUserID extracts a user ID from context if available (handles UUID)
func ExtractUserID(ctx context.Context) string {
	if userID := ctx.Value(userIDContextKey); userID != nil {
		if id, ok := userID.(interface{ String() string }); ok {
			return id.String()
		}
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}
