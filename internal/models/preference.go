package models

import (
	"time"

	"github.com/google/uuid"
)

// ResponseMode controls how verbose assistant replies should be.
type ResponseMode string

const (
	ResponseModeConcise  ResponseMode = "concise"
	ResponseModeDetailed ResponseMode = "detailed"
)

const (
	// DefaultMaxContextMessages bounds how many recent messages enter the
	// model context window.
	DefaultMaxContextMessages = 10
	// DefaultAutoCompressAfter is the message count at which older turns are
	// folded into the conversation summary.
	DefaultAutoCompressAfter = 20
)

// UserPreference holds a user's assistant settings. One row per user,
// created lazily on first access.
type UserPreference struct {
	ID                 uuid.UUID    `json:"id"`
	UserID             uuid.UUID    `json:"user_id"`
	ResponseMode       ResponseMode `json:"response_mode"`
	MaxContextMessages int          `json:"max_context_messages"`
	AutoCompressAfter  int          `json:"auto_compress_after"`
	AllowDataUsage     bool         `json:"allow_data_usage"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// NewUserPreference returns preferences with defaults for a user.
func NewUserPreference(userID uuid.UUID) *UserPreference {
	return &UserPreference{
		ID:                 uuid.New(),
		UserID:             userID,
		ResponseMode:       ResponseModeConcise,
		MaxContextMessages: DefaultMaxContextMessages,
		AutoCompressAfter:  DefaultAutoCompressAfter,
		AllowDataUsage:     true,
	}
}
