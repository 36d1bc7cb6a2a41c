package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wellora/wellness-api/internal/middleware"
	"github.com/wellora/wellness-api/internal/models"
	"github.com/wellora/wellness-api/internal/queue"
	"github.com/wellora/wellness-api/internal/services/assistant"
	"github.com/wellora/wellness-api/internal/validation"
)

const (
	// DefaultHistoryLimit is how many messages History returns by default
	DefaultHistoryLimit = 50
	// MaxHistoryLimit caps the limit query parameter
	MaxHistoryLimit = 200

	// summaryRefreshThreshold matches the segment count at which the
	// background worker consolidates the running summary.
	summaryRefreshThreshold = 5
)

// ConversationService is the orchestrator surface the handler needs.
type ConversationService interface {
	SendMessage(ctx context.Context, user *models.User, text string, conversationID *uuid.UUID) (*assistant.TurnResult, error)
	History(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID, limit int) ([]*models.Message, error)
	Clear(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) (*models.Conversation, error)
}

// AssistantHandler exposes the conversation endpoints
type AssistantHandler struct {
	orchestrator ConversationService
	jobQueue     queue.JobQueue
	logger       *zap.Logger
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(orchestrator ConversationService, jobQueue queue.JobQueue, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{
		orchestrator: orchestrator,
		jobQueue:     jobQueue,
		logger:       logger,
	}
}

// RegisterRoutes registers assistant routes on the given router
// The router should already have the /assistant prefix
func (h *AssistantHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/message", h.SendMessage).Methods("POST")
	r.HandleFunc("/conversations/{id}/history", h.GetHistory).Methods("GET")
	r.HandleFunc("/conversations/{id}/clear", h.ClearConversation).Methods("POST")
}

// SendMessageRequest represents a chat turn request
type SendMessageRequest struct {
	Message        string     `json:"message" validate:"required"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
}

// SendMessage runs one conversation turn
func (h *AssistantHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	req.Message = validation.SanitizeText(req.Message)

	result, err := h.orchestrator.SendMessage(r.Context(), user, req.Message, req.ConversationID)
	if err != nil {
		h.respondTurnError(w, err)
		return
	}

	h.enqueueMaintenance(r.Context(), user.ID, result)

	respondJSON(w, http.StatusOK, result)
}

// respondTurnError maps orchestrator errors onto HTTP statuses
func (h *AssistantHandler) respondTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Message must not be empty")
	case errors.Is(err, assistant.ErrMessageTooLong):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, assistant.ErrConversationNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Conversation not found")
	default:
		if provErr, ok := assistant.AsProviderError(err); ok {
			if provErr.Kind == assistant.ErrorKindRateLimit {
				w.Header().Set("Retry-After", "30")
				respondJSONError(w, http.StatusTooManyRequests, "Too Many Requests", "The assistant is receiving too many requests, try again shortly")
				return
			}
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "The assistant is temporarily unavailable")
			return
		}
		if h.logger != nil {
			h.logger.Error("send message failed", zap.Error(err))
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to process message")
	}
}

// enqueueMaintenance schedules background title and summary work. Queue
// failures are logged, never surfaced to the user.
func (h *AssistantHandler) enqueueMaintenance(ctx context.Context, userID uuid.UUID, result *assistant.TurnResult) {
	if h.jobQueue == nil {
		return
	}
	convID := result.ConversationID
	if result.NeedsTitle {
		job := queue.NewJob(queue.JobTypeTitleGeneration, userID, &convID)
		if err := h.jobQueue.Enqueue(ctx, job); err != nil && h.logger != nil {
			h.logger.Warn("enqueue title job failed",
				zap.String("conversation_id", convID.String()),
				zap.Error(err),
			)
		}
	}
	if result.SummarySegments >= summaryRefreshThreshold {
		job := queue.NewJob(queue.JobTypeSummaryRefresh, userID, &convID)
		if err := h.jobQueue.Enqueue(ctx, job); err != nil && h.logger != nil {
			h.logger.Warn("enqueue summary job failed",
				zap.String("conversation_id", convID.String()),
				zap.Error(err),
			)
		}
	}
}

// GetHistory returns the most recent messages of a conversation
func (h *AssistantHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	conversationID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid conversation ID")
		return
	}

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid limit parameter")
			return
		}
		if parsed > MaxHistoryLimit {
			parsed = MaxHistoryLimit
		}
		limit = parsed
	}

	messages, err := h.orchestrator.History(r.Context(), user.ID, conversationID, limit)
	if err != nil {
		if errors.Is(err, assistant.ErrConversationNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Conversation not found")
			return
		}
		if h.logger != nil {
			h.logger.Error("load history failed", zap.Error(err))
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        messages,
	})
}

// ClearConversation deactivates a conversation and starts a fresh one
func (h *AssistantHandler) ClearConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	conversationID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid conversation ID")
		return
	}

	fresh, err := h.orchestrator.Clear(r.Context(), user.ID, conversationID)
	if err != nil {
		if errors.Is(err, assistant.ErrConversationNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Conversation not found")
			return
		}
		if h.logger != nil {
			h.logger.Error("clear conversation failed", zap.Error(err))
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to clear conversation")
		return
	}

	respondJSON(w, http.StatusOK, fresh)
}
