package conversation

import (
	"errors"

	"github.com/wolfman30/autosales-assistant/internal/finance"
	"github.com/wolfman30/autosales-assistant/internal/session"
)

// ErrMissingUserID rejects a turn that cannot be tied to a session.
var ErrMissingUserID = errors.New("conversation: user id is required")

// Channel identifies which transport the conversation is happening on.
type Channel string

const (
	ChannelUnknown  Channel = ""
	ChannelWeb      Channel = "web"
	ChannelWhatsApp Channel = "whatsapp"
)

// ChatRequest is one inbound turn. Preferences and Financing are optional
// structured inputs a client may send alongside the free text.
type ChatRequest struct {
	UserID      string               `json:"user_id"`
	Message     string               `json:"message"`
	Channel     Channel              `json:"channel,omitempty"`
	Preferences *session.Preferences `json:"preferences,omitempty"`
	Financing   *finance.Input       `json:"financing,omitempty"`
}

// EnrichedRequest is a ChatRequest after preference seeding and extraction.
type EnrichedRequest struct {
	UserID      string              `json:"user_id"`
	Message     string              `json:"message"`
	Channel     Channel             `json:"channel,omitempty"`
	Preferences session.Preferences `json:"preferences"`
	Financing   *finance.Input      `json:"financing,omitempty"`
}

// TurnResult is everything the response generator needs to decide what to say.
type TurnResult struct {
	TurnID  string          `json:"turn_id"`
	Request EnrichedRequest `json:"request"`
	// MissingFields lists unresolved slots in priority order.
	MissingFields []string `json:"missing_fields"`
	Intent        Intent   `json:"intent,omitempty"`
	// PreviousExpectedSlot is the slot that was being elicited before this turn.
	PreviousExpectedSlot string `json:"previous_expected_slot,omitempty"`
	ExpectedSlot         string `json:"expected_slot,omitempty"`
	// Question is the question opened this turn, or the still-pending one when Reprompt is set.
	Question *session.Question `json:"question,omitempty"`
	// Reprompt is set when the message did not answer the pending question.
	Reprompt bool `json:"reprompt,omitempty"`
}
