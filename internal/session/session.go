// Package session persists per-user dialogue state: recent turns, merged
// purchase preferences, the slot being elicited and any open clarification question.
package session

import (
	"encoding/json"
	"strings"
	"time"
)

// Preferences are the purchase slots gathered so far. Zero values mean "unknown".
type Preferences struct {
	Make     string  `json:"make,omitempty"`
	Model    string  `json:"model,omitempty"`
	MaxKM    int     `json:"max_km,omitempty"`
	MinYear  int     `json:"min_year,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty"`
}

// IsEmpty reports whether no slot is known.
func (p Preferences) IsEmpty() bool {
	return p == Preferences{}
}

// Merge returns p with every slot that is set in update copied over it.
// Slots unset in update are kept, so merging never drops information.
func (p Preferences) Merge(update Preferences) Preferences {
	out := p
	if v := strings.TrimSpace(update.Make); v != "" {
		out.Make = v
	}
	if v := strings.TrimSpace(update.Model); v != "" {
		out.Model = v
	}
	if update.MaxKM != 0 {
		out.MaxKM = update.MaxKM
	}
	if update.MinYear != 0 {
		out.MinYear = update.MinYear
	}
	if update.MaxPrice != 0 {
		out.MaxPrice = update.MaxPrice
	}
	return out
}

// Turn is one inbound request as it was received.
type Turn struct {
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
}

// Question is an open clarification prompt with a closed list of answers.
type Question struct {
	Slot     string            `json:"slot"`
	Options  []string          `json:"options"`
	Metadata map[string]string `json:"metadata"`
}

// Session is the full persisted record for one user.
type Session struct {
	History      []Turn      `json:"history"`
	Preferences  Preferences `json:"preferences"`
	ExpectedSlot string      `json:"expected_slot,omitempty"`
	Question     *Question   `json:"question,omitempty"`
}

// trimHistory keeps the most recent limit turns. limit <= 0 keeps everything.
func (s *Session) trimHistory(limit int) {
	if limit > 0 && len(s.History) > limit {
		s.History = append([]Turn(nil), s.History[len(s.History)-limit:]...)
	}
}

func cloneQuestion(q *Question) *Question {
	if q == nil {
		return nil
	}
	out := &Question{Slot: q.Slot, Options: append([]string(nil), q.Options...)}
	if q.Metadata != nil {
		out.Metadata = make(map[string]string, len(q.Metadata))
		for k, v := range q.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
