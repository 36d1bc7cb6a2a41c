package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wellora/wellness-api/internal/database"
	"github.com/wellora/wellness-api/internal/models"
)

// mockPreferenceRepo keeps one preference row per user in memory
type mockPreferenceRepo struct {
	prefs     map[uuid.UUID]*models.UserPreference
	updateErr error
}

func newMockPreferenceRepo() *mockPreferenceRepo {
	return &mockPreferenceRepo{prefs: make(map[uuid.UUID]*models.UserPreference)}
}

func (m *mockPreferenceRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.UserPreference, error) {
	if p, ok := m.prefs[userID]; ok {
		return p, nil
	}
	p := models.NewUserPreference(userID)
	m.prefs[userID] = p
	return p, nil
}

func (m *mockPreferenceRepo) Update(ctx context.Context, pref *models.UserPreference) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.prefs[pref.UserID] = pref
	return nil
}

var _ database.PreferenceRepositoryInterface = (*mockPreferenceRepo)(nil)

func newPreferenceRouter(repo database.PreferenceRepositoryInterface) *mux.Router {
	h := NewPreferenceHandler(repo, nil)
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/preferences").Subrouter())
	return r
}

func TestPreferenceHandler_GetCreatesDefaults(t *testing.T) {
	t.Parallel()

	router := newPreferenceRouter(newMockPreferenceRepo())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest("GET", "/preferences", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := body["data"].(map[string]any)
	if data["response_mode"] != string(models.ResponseModeConcise) {
		t.Errorf("default response_mode = %v, want concise", data["response_mode"])
	}
	if int(data["max_context_messages"].(float64)) != models.DefaultMaxContextMessages {
		t.Errorf("default max_context_messages = %v", data["max_context_messages"])
	}
}

func TestPreferenceHandler_Update(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "valid partial update",
			body:       `{"response_mode":"detailed"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid window resize",
			body:       `{"max_context_messages":15,"auto_compress_after":40}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid response mode",
			body:       `{"response_mode":"verbose"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "window too small",
			body:       `{"max_context_messages":1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "compression threshold below window",
			body:       `{"max_context_messages":30,"auto_compress_after":20}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"response_mode":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newPreferenceRouter(newMockPreferenceRepo())
			w := httptest.NewRecorder()
			router.ServeHTTP(w, authedRequest("PATCH", "/preferences", []byte(tt.body)))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestPreferenceHandler_UpdatePersists(t *testing.T) {
	t.Parallel()

	repo := newMockPreferenceRepo()
	router := newPreferenceRouter(repo)

	req := authedRequest("PATCH", "/preferences", []byte(`{"response_mode":"detailed","allow_data_usage":false}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	if len(repo.prefs) != 1 {
		t.Fatalf("expected 1 stored preference row, got %d", len(repo.prefs))
	}
	for _, p := range repo.prefs {
		if p.ResponseMode != models.ResponseModeDetailed {
			t.Errorf("stored response_mode = %s, want detailed", p.ResponseMode)
		}
		if p.AllowDataUsage {
			t.Error("allow_data_usage should be false after update")
		}
	}

	if !strings.Contains(w.Body.String(), "detailed") {
		t.Error("response should echo the updated preferences")
	}
}
