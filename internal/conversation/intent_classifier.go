package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/autosales-assistant/pkg/logging"
)

// Intent is the coarse conversational purpose of one message.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentSmallTalk      Intent = "small_talk"
	IntentRecommendation Intent = "recommendation"
	IntentFinancing      Intent = "financing"
	IntentFAQ            Intent = "faq"
	IntentOffTopic       Intent = "off_topic"
	IntentAmbiguous      Intent = "ambiguous"
)

var knownIntents = map[Intent]struct{}{
	IntentGreeting:       {},
	IntentSmallTalk:      {},
	IntentRecommendation: {},
	IntentFinancing:      {},
	IntentFAQ:            {},
	IntentOffTopic:       {},
	IntentAmbiguous:      {},
}

// ParseIntent maps a raw label onto the fixed domain.
func ParseIntent(label string) (Intent, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(label))
	cleaned = strings.Trim(cleaned, "\"'`.")
	cleaned = strings.TrimSpace(cleaned)
	intent := Intent(cleaned)
	if _, ok := knownIntents[intent]; ok {
		return intent, true
	}
	return IntentAmbiguous, false
}

// IntentClassifier labels a message. Implementations never fail: any fault
// yields IntentAmbiguous.
type IntentClassifier interface {
	Classify(ctx context.Context, message string) Intent
}

// StaticIntentClassifier always returns the same label. It is the fallback
// when no model provider is configured.
type StaticIntentClassifier struct {
	intent Intent
}

// NewStaticIntentClassifier returns a classifier that always answers ambiguous.
func NewStaticIntentClassifier() *StaticIntentClassifier {
	return &StaticIntentClassifier{intent: IntentAmbiguous}
}

// Classify implements IntentClassifier.
func (c *StaticIntentClassifier) Classify(context.Context, string) Intent {
	return c.intent
}

// IntentFallbackObserver is told why a classification fell back to ambiguous.
type IntentFallbackObserver interface {
	ObserveIntentFallback(reason string)
}

const intentClassifierPrompt = "Clasifica el siguiente mensaje de cliente en una de las categorías: " +
	"greeting (saludo), small_talk (charla casual), recommendation (solicita recomendaciones de autos), " +
	"financing (pregunta por financiamiento), faq (propuesta de valor o garantías), off_topic (otros temas), " +
	"ambiguous (no queda claro). Responde solo con la etiqueta. Mensaje: %s"

const defaultIntentTimeout = 3 * time.Second

// LLMIntentClassifier asks a language model for the label with deterministic decoding.
type LLMIntentClassifier struct {
	client   LLMClient
	model    string
	timeout  time.Duration
	logger   *logging.Logger
	observer IntentFallbackObserver
}

// LLMIntentOption customizes an LLMIntentClassifier.
type LLMIntentOption func(*LLMIntentClassifier)

// WithIntentTimeout bounds each classification call.
func WithIntentTimeout(d time.Duration) LLMIntentOption {
	return func(c *LLMIntentClassifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithIntentObserver reports fallbacks, typically to metrics.
func WithIntentObserver(observer IntentFallbackObserver) LLMIntentOption {
	return func(c *LLMIntentClassifier) {
		c.observer = observer
	}
}

// NewLLMIntentClassifier builds a model-backed classifier.
func NewLLMIntentClassifier(client LLMClient, model string, logger *logging.Logger, opts ...LLMIntentOption) *LLMIntentClassifier {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &LLMIntentClassifier{
		client:  client,
		model:   model,
		timeout: defaultIntentTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify implements IntentClassifier.
func (c *LLMIntentClassifier) Classify(ctx context.Context, message string) (intent Intent) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("intent classifier panicked", "panic", r)
			c.fallback("panic")
			intent = IntentAmbiguous
		}
	}()

	message = strings.TrimSpace(message)
	if message == "" {
		c.fallback("empty_message")
		return IntentAmbiguous
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := strings.Replace(intentClassifierPrompt, "%s", message, 1)
	resp, err := c.client.Complete(ctx, NewLabelRequest(c.model, "Sigue las instrucciones.", prompt, 10))
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		c.logger.Warn("intent classification failed", "error", err, "reason", reason)
		c.fallback(reason)
		return IntentAmbiguous
	}

	parsed, ok := ParseIntent(resp.Text)
	if !ok {
		c.logger.Warn("intent classifier returned unknown label", "label", resp.Text)
		c.fallback("unknown_label")
		return IntentAmbiguous
	}
	return parsed
}

func (c *LLMIntentClassifier) fallback(reason string) {
	if c.observer != nil {
		c.observer.ObserveIntentFallback(reason)
	}
}
