package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wellora/wellness-api/internal/database"
	"github.com/wellora/wellness-api/internal/middleware"
	"github.com/wellora/wellness-api/internal/models"
	"github.com/wellora/wellness-api/internal/validation"
)

const (
	// MinContextMessages is the smallest allowed context window size
	MinContextMessages = 2
	// MaxContextMessages is the largest allowed context window size
	MaxContextMessages = 50
	// MinAutoCompressAfter is the smallest allowed compression threshold
	MinAutoCompressAfter = 5
	// MaxAutoCompressAfter is the largest allowed compression threshold
	MaxAutoCompressAfter = 200
)

// PreferenceHandler handles assistant preference requests
type PreferenceHandler struct {
	preferences database.PreferenceRepositoryInterface
	logger      *zap.Logger
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(preferences database.PreferenceRepositoryInterface, logger *zap.Logger) *PreferenceHandler {
	return &PreferenceHandler{preferences: preferences, logger: logger}
}

// RegisterRoutes registers preference routes on the given router
// The router should already have the /preferences prefix
func (h *PreferenceHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetPreferences).Methods("GET")
	r.HandleFunc("", h.UpdatePreferences).Methods("PATCH")
}

// UpdatePreferencesRequest represents a partial preference update
type UpdatePreferencesRequest struct {
	ResponseMode       *string `json:"response_mode,omitempty" validate:"omitempty,response_mode"`
	MaxContextMessages *int    `json:"max_context_messages,omitempty"`
	AutoCompressAfter  *int    `json:"auto_compress_after,omitempty"`
	AllowDataUsage     *bool   `json:"allow_data_usage,omitempty"`
}

// GetPreferences returns the user's preferences, creating defaults if absent
func (h *PreferenceHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	prefs, err := h.preferences.GetOrCreate(r.Context(), user.ID)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("load preferences failed", zap.Error(err))
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load preferences")
		return
	}

	respondJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences applies a partial update to the user's preferences
func (h *PreferenceHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "response_mode must be 'concise' or 'detailed'")
		return
	}
	if req.MaxContextMessages != nil && (*req.MaxContextMessages < MinContextMessages || *req.MaxContextMessages > MaxContextMessages) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "max_context_messages out of range")
		return
	}
	if req.AutoCompressAfter != nil && (*req.AutoCompressAfter < MinAutoCompressAfter || *req.AutoCompressAfter > MaxAutoCompressAfter) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "auto_compress_after out of range")
		return
	}

	prefs, err := h.preferences.GetOrCreate(r.Context(), user.ID)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("load preferences failed", zap.Error(err))
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load preferences")
		return
	}

	if req.ResponseMode != nil {
		prefs.ResponseMode = models.ResponseMode(*req.ResponseMode)
	}
	if req.MaxContextMessages != nil {
		prefs.MaxContextMessages = *req.MaxContextMessages
	}
	if req.AutoCompressAfter != nil {
		prefs.AutoCompressAfter = *req.AutoCompressAfter
	}
	if req.AllowDataUsage != nil {
		prefs.AllowDataUsage = *req.AllowDataUsage
	}

	// Compression must always trigger beyond the window size.
	if prefs.AutoCompressAfter <= prefs.MaxContextMessages {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "auto_compress_after must exceed max_context_messages")
		return
	}

	if err := h.preferences.Update(r.Context(), prefs); err != nil {
		if h.logger != nil {
			h.logger.Error("update preferences failed", zap.Error(err))
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update preferences")
		return
	}

	respondJSON(w, http.StatusOK, prefs)
}
