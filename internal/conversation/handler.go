package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/autosales-assistant/internal/finance"
	"github.com/wolfman30/autosales-assistant/internal/session"
	"github.com/wolfman30/autosales-assistant/pkg/logging"
)

// TurnHandler processes one chat turn. *Orchestrator implements it.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req ChatRequest) (*TurnResult, error)
}

var _ TurnHandler = (*Orchestrator)(nil)

// ChatResponse is the POST /chat payload.
type ChatResponse struct {
	TurnID        string              `json:"turn_id"`
	Message       string              `json:"message"`
	Intent        Intent              `json:"intent,omitempty"`
	MissingFields []string            `json:"missing_fields"`
	ExpectedSlot  string              `json:"expected_slot,omitempty"`
	Question      *session.Question   `json:"question,omitempty"`
	Reprompt      bool                `json:"reprompt,omitempty"`
	FinancingPlan *finance.Plan       `json:"financing_plan,omitempty"`
	Preferences   session.Preferences `json:"preferences"`
}

// FinancingRequest is the POST /financing payload. InterestRate defaults to
// the configured rate when omitted.
type FinancingRequest struct {
	finance.Input
	InterestRate *float64 `json:"interest_rate,omitempty"`
}

// Handler wires HTTP requests to the dialogue engine.
type Handler struct {
	turns     TurnHandler
	responder Responder
	rate      float64
	logger    *logging.Logger
}

// NewHandler creates a conversation handler. rate is the default financing rate.
func NewHandler(turns TurnHandler, responder Responder, rate float64, logger *logging.Logger) *Handler {
	if turns == nil {
		panic("conversation: turn handler cannot be nil")
	}
	if responder == nil {
		responder = NewTemplateResponder(rate)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		turns:     turns,
		responder: responder,
		rate:      rate,
		logger:    logger,
	}
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	turn, err := h.turns.HandleTurn(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrMissingUserID) {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to process turn", "error", err)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	reply, err := h.responder.Respond(r.Context(), turn)
	if err != nil {
		h.logger.Error("failed to build reply", "error", err, "turn_id", turn.TurnID)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	missing := turn.MissingFields
	if missing == nil {
		missing = []string{}
	}
	h.writeJSON(w, http.StatusOK, ChatResponse{
		TurnID:        turn.TurnID,
		Message:       reply.Message,
		Intent:        turn.Intent,
		MissingFields: missing,
		ExpectedSlot:  turn.ExpectedSlot,
		Question:      turn.Question,
		Reprompt:      turn.Reprompt,
		FinancingPlan: reply.FinancingPlan,
		Preferences:   turn.Request.Preferences,
	})
}

// Financing handles POST /financing.
func (h *Handler) Financing(w http.ResponseWriter, r *http.Request) {
	var req FinancingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode financing request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rate := h.rate
	if req.InterestRate != nil {
		rate = *req.InterestRate
	}
	plan, err := finance.CalculateInput(req.Input, rate)
	if err != nil {
		if errors.Is(err, finance.ErrValidation) {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("failed to calculate financing", "error", err)
		http.Error(w, "Failed to calculate financing", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
