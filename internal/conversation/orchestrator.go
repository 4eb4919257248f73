package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/autosales-assistant/internal/session"
	"github.com/wolfman30/autosales-assistant/pkg/logging"
)

// SessionStore is the subset of session.Store the orchestrator drives.
type SessionStore interface {
	Load(ctx context.Context, userID string) (session.Session, error)
	StorePreferences(ctx context.Context, userID string, prefs session.Preferences) error
	AppendTurn(ctx context.Context, userID string, payload any) error
	ExpectedSlot(ctx context.Context, userID string) (string, error)
	SetExpectedSlot(ctx context.Context, userID, slot string) error
	SetQuestion(ctx context.Context, userID string, q session.Question) error
	ClearQuestion(ctx context.Context, userID string) error
}

// TurnObserver receives per-turn measurements. Implementations must tolerate
// concurrent calls.
type TurnObserver interface {
	ObserveTurn(intent, outcome string, seconds float64)
	ObserveStoreError(op string)
	ObserveQuestionOpened(slot string)
}

const (
	OutcomeCompleted = "completed"
	OutcomeReprompt  = "reprompt"

	defaultStoreTimeout = 500 * time.Millisecond
)

// Orchestrator runs the per-turn slot-filling state machine. A user is either
// idle or awaiting an answer to a clarification question stored in the session.
type Orchestrator struct {
	store      SessionStore
	extractor  *PreferenceExtractor
	options    *OptionBuilder
	classifier IntentClassifier
	logger     *logging.Logger

	storeTimeout time.Duration
	optionLimit  int
	observer     TurnObserver
	tracer       trace.Tracer
	newID        func() string
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithStoreTimeout bounds every individual session store call.
func WithStoreTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.storeTimeout = d
		}
	}
}

// WithOptionLimit caps clarification option lists. Zero means no cap.
func WithOptionLimit(limit int) OrchestratorOption {
	return func(o *Orchestrator) {
		if limit >= 0 {
			o.optionLimit = limit
		}
	}
}

// WithTurnObserver reports turn metrics.
func WithTurnObserver(observer TurnObserver) OrchestratorOption {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// WithOrchestratorTracer overrides the OpenTelemetry tracer.
func WithOrchestratorTracer(tracer trace.Tracer) OrchestratorOption {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithTurnIDGenerator overrides how turn ids are minted.
func WithTurnIDGenerator(fn func() string) OrchestratorOption {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// NewOrchestrator wires the state machine around a session store, the catalog
// vocabulary and an intent classifier.
func NewOrchestrator(store SessionStore, vocab Vocabulary, classifier IntentClassifier, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	if store == nil {
		panic("conversation: session store cannot be nil")
	}
	if vocab == nil {
		panic("conversation: vocabulary cannot be nil")
	}
	if classifier == nil {
		classifier = NewStaticIntentClassifier()
	}
	if logger == nil {
		logger = logging.Default()
	}
	o := &Orchestrator{
		store:        store,
		extractor:    NewPreferenceExtractor(vocab),
		options:      NewOptionBuilder(vocab),
		classifier:   classifier,
		logger:       logger,
		storeTimeout: defaultStoreTimeout,
		optionLimit:  DefaultOptionLimit,
		tracer:       otel.Tracer("autosales.internal.conversation"),
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleTurn processes one inbound message. Session store and classifier
// faults are logged and downgraded; the only error returned is a missing user id.
func (o *Orchestrator) HandleTurn(ctx context.Context, req ChatRequest) (*TurnResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return nil, ErrMissingUserID
	}

	started := time.Now()
	ctx, span := o.tracer.Start(ctx, "dialogue.turn", trace.WithAttributes(
		attribute.String("user.id", req.UserID),
		attribute.String("channel", string(req.Channel)),
	))
	defer span.End()

	logger := o.logger.With("user_id", req.UserID)
	sess := o.loadSession(ctx, logger, req.UserID)

	seeded := req
	prefs := sess.Preferences
	if req.Preferences != nil {
		prefs = prefs.Merge(*req.Preferences)
	}
	seeded.Preferences = &prefs

	enriched := o.extractor.Enrich(seeded)

	if pending := sess.Question; pending != nil {
		if slotSatisfied(pending.Slot, enriched.Preferences) {
			o.clearQuestion(ctx, logger, req.UserID)
		} else {
			answer, ok := matchOption(req.Message, pending.Options)
			if !ok {
				span.SetAttributes(attribute.Bool("dialogue.reprompt", true))
				o.observeTurn("", OutcomeReprompt, started)
				return &TurnResult{
					TurnID:               o.newID(),
					Request:              repromptRequest(req, prefs),
					MissingFields:        []string{},
					PreviousExpectedSlot: sess.ExpectedSlot,
					ExpectedSlot:         sess.ExpectedSlot,
					Question:             pending,
					Reprompt:             true,
				}, nil
			}
			applyAnswer(pending.Slot, answer, &prefs)
			o.clearQuestion(ctx, logger, req.UserID)
			enriched = o.extractor.Enrich(seeded)
		}
	}

	o.do(ctx, logger, "store_preferences", func(ctx context.Context) error {
		return o.store.StorePreferences(ctx, req.UserID, enriched.Preferences)
	})
	o.do(ctx, logger, "append_turn", func(ctx context.Context) error {
		return o.store.AppendTurn(ctx, req.UserID, req)
	})

	missing := MissingFields(req, enriched)

	var previousSlot string
	o.do(ctx, logger, "expected_slot", func(ctx context.Context) error {
		slot, err := o.store.ExpectedSlot(ctx, req.UserID)
		previousSlot = slot
		return err
	})

	intent := o.classifier.Classify(ctx, req.Message)
	span.SetAttributes(attribute.String("dialogue.intent", string(intent)))

	result := &TurnResult{
		TurnID:               o.newID(),
		Request:              enriched,
		MissingFields:        missing,
		Intent:               intent,
		PreviousExpectedSlot: previousSlot,
	}

	switch {
	case intent == IntentGreeting:
		result.ExpectedSlot = SlotInitialPreference
		o.setExpectedSlot(ctx, logger, req.UserID, SlotInitialPreference)
	case intent == IntentRecommendation && len(missing) > 0:
		result.ExpectedSlot = missing[0]
		o.setExpectedSlot(ctx, logger, req.UserID, missing[0])
		if q := o.buildQuestion(missing[0], enriched.Preferences); q != nil {
			o.do(ctx, logger, "set_question", func(ctx context.Context) error {
				return o.store.SetQuestion(ctx, req.UserID, *q)
			})
			result.Question = q
			if o.observer != nil {
				o.observer.ObserveQuestionOpened(q.Slot)
			}
		}
	default:
		o.setExpectedSlot(ctx, logger, req.UserID, "")
		o.clearQuestion(ctx, logger, req.UserID)
	}

	o.observeTurn(intent, OutcomeCompleted, started)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// repromptRequest echoes only what the session keeps: stored preferences
// merged with explicit ones, and explicit financing. Nothing is extracted from
// the rejected message.
func repromptRequest(req ChatRequest, prefs session.Preferences) EnrichedRequest {
	out := EnrichedRequest{
		UserID:      req.UserID,
		Message:     req.Message,
		Channel:     req.Channel,
		Preferences: prefs,
	}
	if req.Financing != nil {
		explicit := *req.Financing
		out.Financing = &explicit
	}
	return out
}

func (o *Orchestrator) buildQuestion(slot string, prefs session.Preferences) *session.Question {
	var options []string
	metadata := map[string]string{}
	switch slot {
	case FieldBrand:
		options = o.options.BrandOptions(o.optionLimit)
	case FieldModel:
		if prefs.Make == "" {
			return nil
		}
		options = o.options.ModelOptions(prefs.Make, o.optionLimit)
		metadata["brand"] = prefs.Make
	}
	if len(options) == 0 {
		return nil
	}
	return &session.Question{Slot: slot, Options: options, Metadata: metadata}
}

func (o *Orchestrator) loadSession(ctx context.Context, logger *logging.Logger, userID string) session.Session {
	var sess session.Session
	o.do(ctx, logger, "load", func(ctx context.Context) error {
		loaded, err := o.store.Load(ctx, userID)
		if err == nil {
			sess = loaded
		}
		return err
	})
	return sess
}

func (o *Orchestrator) setExpectedSlot(ctx context.Context, logger *logging.Logger, userID, slot string) {
	o.do(ctx, logger, "set_expected_slot", func(ctx context.Context) error {
		return o.store.SetExpectedSlot(ctx, userID, slot)
	})
}

func (o *Orchestrator) clearQuestion(ctx context.Context, logger *logging.Logger, userID string) {
	o.do(ctx, logger, "clear_question", func(ctx context.Context) error {
		return o.store.ClearQuestion(ctx, userID)
	})
}

// do runs one best-effort store call under its own deadline.
func (o *Orchestrator) do(ctx context.Context, logger *logging.Logger, op string, fn func(context.Context) error) {
	opCtx, cancel := context.WithTimeout(ctx, o.storeTimeout)
	defer cancel()
	if err := fn(opCtx); err != nil {
		logger.Warn("session store call failed", "op", op, "error", err)
		if o.observer != nil {
			o.observer.ObserveStoreError(op)
		}
	}
}

func (o *Orchestrator) observeTurn(intent Intent, outcome string, started time.Time) {
	if o.observer != nil {
		o.observer.ObserveTurn(string(intent), outcome, time.Since(started).Seconds())
	}
}

func slotSatisfied(slot string, prefs session.Preferences) bool {
	switch slot {
	case FieldBrand:
		return prefs.Make != ""
	case FieldModel:
		return prefs.Model != ""
	default:
		return false
	}
}

// matchOption compares the trimmed message case-insensitively against each
// option and returns the option's canonical spelling.
func matchOption(message string, options []string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return "", false
	}
	for _, option := range options {
		if strings.ToLower(strings.TrimSpace(option)) == normalized {
			return option, true
		}
	}
	return "", false
}

func applyAnswer(slot, answer string, prefs *session.Preferences) {
	switch slot {
	case FieldBrand:
		prefs.Make = answer
	case FieldModel:
		prefs.Model = answer
	}
}
