package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wellora/wellness-api/internal/middleware"
	"github.com/wellora/wellness-api/internal/models"
	"github.com/wellora/wellness-api/internal/queue"
	"github.com/wellora/wellness-api/internal/services/assistant"
)

// mockConversationService scripts orchestrator responses
type mockConversationService struct {
	sendResult *assistant.TurnResult
	sendErr    error
	history    []*models.Message
	historyErr error
	cleared    *models.Conversation
	clearErr   error
}

func (m *mockConversationService) SendMessage(ctx context.Context, user *models.User, text string, conversationID *uuid.UUID) (*assistant.TurnResult, error) {
	return m.sendResult, m.sendErr
}

func (m *mockConversationService) History(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID, limit int) ([]*models.Message, error) {
	return m.history, m.historyErr
}

func (m *mockConversationService) Clear(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) (*models.Conversation, error) {
	return m.cleared, m.clearErr
}

var _ ConversationService = (*mockConversationService)(nil)

// recordingQueue captures enqueued jobs
type recordingQueue struct {
	jobs []*queue.Job
}

func (q *recordingQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (q *recordingQueue) Close() error { return nil }

func (q *recordingQueue) HealthCheck(ctx context.Context) error { return nil }

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	user := &models.User{ID: uuid.New(), Email: "test@example.com"}
	return req.WithContext(middleware.SetUserInContext(req.Context(), user))
}

func newAssistantRouter(svc ConversationService, q queue.JobQueue) *mux.Router {
	h := NewAssistantHandler(svc, q, nil)
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/assistant").Subrouter())
	return r
}

func TestAssistantHandler_SendMessage(t *testing.T) {
	t.Parallel()

	convID := uuid.New()

	tests := []struct {
		name       string
		body       string
		authed     bool
		svc        *mockConversationService
		wantStatus int
	}{
		{
			name:   "successful turn",
			body:   `{"message":"how is my weight trending?"}`,
			authed: true,
			svc: &mockConversationService{
				sendResult: &assistant.TurnResult{
					Message:        "Your weight is stable.",
					ConversationID: convID,
					MessageID:      uuid.New(),
				},
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unauthenticated",
			body:       `{"message":"hi"}`,
			authed:     false,
			svc:        &mockConversationService{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed body",
			body:       `{"message":`,
			authed:     true,
			svc:        &mockConversationService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty message",
			body:       `{"message":""}`,
			authed:     true,
			svc:        &mockConversationService{sendErr: assistant.ErrEmptyMessage},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown conversation",
			body:       `{"message":"hi","conversation_id":"` + uuid.NewString() + `"}`,
			authed:     true,
			svc:        &mockConversationService{sendErr: assistant.ErrConversationNotFound},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "provider rate limited",
			body:   `{"message":"hi"}`,
			authed: true,
			svc: &mockConversationService{
				sendErr: &assistant.ProviderError{Kind: assistant.ErrorKindRateLimit, StatusCode: 429, Message: "slow down"},
			},
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:   "provider outage",
			body:   `{"message":"hi"}`,
			authed: true,
			svc: &mockConversationService{
				sendErr: &assistant.ProviderError{Kind: assistant.ErrorKindTransient, StatusCode: 503, Message: "upstream down"},
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newAssistantRouter(tt.svc, &recordingQueue{})

			var req *http.Request
			if tt.authed {
				req = authedRequest("POST", "/assistant/message", []byte(tt.body))
			} else {
				req = httptest.NewRequest("POST", "/assistant/message", bytes.NewReader([]byte(tt.body)))
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestAssistantHandler_SendMessageEnqueuesMaintenance(t *testing.T) {
	t.Parallel()

	convID := uuid.New()
	svc := &mockConversationService{
		sendResult: &assistant.TurnResult{
			Message:         "Hello!",
			ConversationID:  convID,
			MessageID:       uuid.New(),
			NeedsTitle:      true,
			SummarySegments: 5,
		},
	}
	q := &recordingQueue{}
	router := newAssistantRouter(svc, q)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("POST", "/assistant/message", []byte(`{"message":"hi"}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(q.jobs) != 2 {
		t.Fatalf("expected 2 maintenance jobs, got %d", len(q.jobs))
	}

	kinds := map[queue.JobType]bool{}
	for _, job := range q.jobs {
		kinds[job.Type] = true
		if job.ConversationID == nil || *job.ConversationID != convID {
			t.Errorf("job %s missing conversation id", job.Type)
		}
	}
	if !kinds[queue.JobTypeTitleGeneration] || !kinds[queue.JobTypeSummaryRefresh] {
		t.Errorf("expected title and summary jobs, got %v", kinds)
	}
}

func TestAssistantHandler_GetHistory(t *testing.T) {
	t.Parallel()

	convID := uuid.New()
	svc := &mockConversationService{
		history: []*models.Message{
			{ID: uuid.New(), ConversationID: convID, Role: models.RoleUser, Content: "hi"},
			{ID: uuid.New(), ConversationID: convID, Role: models.RoleAssistant, Content: "hello"},
		},
	}
	router := newAssistantRouter(svc, &recordingQueue{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("GET", "/assistant/conversations/"+convID.String()+"/history", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data envelope")
	}
	msgs, ok := data["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Errorf("expected 2 messages, got %v", data["messages"])
	}
}

func TestAssistantHandler_GetHistoryInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     string
		svc        *mockConversationService
		wantStatus int
	}{
		{
			name:       "bad conversation id",
			target:     "/assistant/conversations/not-a-uuid/history",
			svc:        &mockConversationService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad limit",
			target:     "/assistant/conversations/" + uuid.NewString() + "/history?limit=zero",
			svc:        &mockConversationService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "foreign conversation",
			target:     "/assistant/conversations/" + uuid.NewString() + "/history",
			svc:        &mockConversationService{historyErr: assistant.ErrConversationNotFound},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newAssistantRouter(tt.svc, &recordingQueue{})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, authedRequest("GET", tt.target, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestAssistantHandler_ClearConversation(t *testing.T) {
	t.Parallel()

	convID := uuid.New()
	fresh := &models.Conversation{ID: uuid.New(), IsActive: true}
	svc := &mockConversationService{cleared: fresh}
	router := newAssistantRouter(svc, &recordingQueue{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("POST", "/assistant/conversations/"+convID.String()+"/clear", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data envelope")
	}
	if data["id"] != fresh.ID.String() {
		t.Errorf("expected fresh conversation id %s, got %v", fresh.ID, data["id"])
	}
}
