package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/autosales-assistant/internal/finance"
	"github.com/wolfman30/autosales-assistant/internal/session"
	"github.com/wolfman30/autosales-assistant/pkg/logging"
)

type stubTurnHandler struct {
	result *TurnResult
	err    error
	got    ChatRequest
}

func (s *stubTurnHandler) HandleTurn(_ context.Context, req ChatRequest) (*TurnResult, error) {
	s.got = req
	return s.result, s.err
}

func TestHandler_Chat(t *testing.T) {
	store := session.NewStore(session.NewMemoryStore(session.DefaultTTL))
	orch := NewOrchestrator(store, newTestCatalog(), &stubClassifier{intent: IntentRecommendation}, logging.Default())
	h := NewHandler(orch, nil, finance.DefaultRate, logging.Default())

	body := `{"user_id":"u1","message":"busco un toyota","channel":"web"}`
	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.TurnID)
	assert.Equal(t, IntentRecommendation, resp.Intent)
	assert.Equal(t, "Toyota", resp.Preferences.Make)
	assert.Equal(t, FieldModel, resp.ExpectedSlot)
	require.NotNil(t, resp.Question)
	assert.Equal(t, []string{"Camry", "Corolla"}, resp.Question.Options)
	assert.Contains(t, resp.Message, "modelo de Toyota")
}

func TestHandler_ChatErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "bad json", body: "{", wantStatus: http.StatusBadRequest},
		{name: "missing user", body: `{"message":"hola"}`, err: ErrMissingUserID, wantStatus: http.StatusBadRequest},
		{name: "internal", body: `{"user_id":"u1","message":"hola"}`, err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&stubTurnHandler{err: tt.err}, nil, finance.DefaultRate, logging.Default())
			rec := httptest.NewRecorder()
			h.Chat(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandler_ChatAlwaysListsMissingFields(t *testing.T) {
	turns := &stubTurnHandler{result: &TurnResult{TurnID: "t1", Intent: IntentGreeting, ExpectedSlot: SlotInitialPreference}}
	h := NewHandler(turns, nil, finance.DefaultRate, logging.Default())

	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user_id":"u1","message":"hola"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.JSONEq(t, `[]`, string(raw["missing_fields"]))
	assert.Equal(t, "u1", turns.got.UserID)
}

func TestHandler_Financing(t *testing.T) {
	h := NewHandler(&stubTurnHandler{}, nil, finance.DefaultRate, logging.Default())

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantRate   float64
	}{
		{name: "default rate", body: `{"car_price":300000,"down_payment":60000,"years":4}`, wantStatus: http.StatusOK, wantRate: 0.10},
		{name: "explicit rate", body: `{"car_price":300000,"down_payment":60000,"years":4,"interest_rate":0}`, wantStatus: http.StatusOK, wantRate: 0},
		{name: "term out of range", body: `{"car_price":300000,"down_payment":60000,"years":7}`, wantStatus: http.StatusBadRequest},
		{name: "down payment above price", body: `{"car_price":100000,"down_payment":100000,"years":4}`, wantStatus: http.StatusBadRequest},
		{name: "bad json", body: `nope`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Financing(rec, httptest.NewRequest(http.MethodPost, "/financing", bytes.NewBufferString(tt.body)))
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var plan finance.Plan
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&plan))
			assert.Equal(t, 48, plan.Months)
			assert.Equal(t, tt.wantRate, plan.InterestRate)
			if tt.wantRate == 0 {
				assert.Equal(t, 5000.0, plan.MonthlyPayment)
			}
		})
	}
}

func TestHandler_Health(t *testing.T) {
	h := NewHandler(&stubTurnHandler{}, nil, finance.DefaultRate, logging.Default())
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
