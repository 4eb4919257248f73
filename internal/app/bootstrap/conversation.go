package bootstrap

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wolfman30/autosales-assistant/cmd/mainconfig"
	appconfig "github.com/wolfman30/autosales-assistant/internal/config"
	"github.com/wolfman30/autosales-assistant/internal/conversation"
	"github.com/wolfman30/autosales-assistant/pkg/logging"
)

// Intent providers accepted in INTENT_PROVIDER / INTENT_FALLBACK_PROVIDER.
const (
	ProviderNone    = "none"
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
)

// BuildIntentClassifier wires the configured model provider, optionally
// behind a fallback provider. Provider "none" (or "") yields the static
// classifier. The returned close func releases provider connections.
func BuildIntentClassifier(ctx context.Context, cfg *appconfig.Config, observer conversation.IntentFallbackObserver, logger *logging.Logger) (conversation.IntentClassifier, func() error, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	noop := func() error { return nil }

	provider := cfg.IntentProvider
	if provider == "" || provider == ProviderNone {
		logger.Warn("no intent provider configured; every message classifies as ambiguous")
		return conversation.NewStaticIntentClassifier(), noop, nil
	}

	primary, model, closePrimary, err := buildLLMClient(ctx, cfg, provider)
	if err != nil {
		return nil, nil, err
	}
	client := primary
	closers := []func() error{closePrimary}

	if fb := cfg.IntentFallbackProvider; fb != "" && fb != ProviderNone && fb != provider {
		fallback, _, closeFallback, err := buildLLMClient(ctx, cfg, fb)
		if err != nil {
			logger.Warn("intent fallback provider unavailable", "provider", fb, "error", err)
		} else {
			client = conversation.NewFallbackLLMClient(primary, fallback, logger)
			closers = append(closers, closeFallback)
			logger.Info("intent fallback provider enabled", "provider", fb)
		}
	}

	logger.Info("using llm intent classifier", "provider", provider, "model", model)
	classifier := conversation.NewLLMIntentClassifier(client, model, logger,
		conversation.WithIntentTimeout(cfg.IntentTimeout),
		conversation.WithIntentObserver(observer),
	)
	closeAll := func() error {
		var firstErr error
		for _, c := range closers {
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return classifier, closeAll, nil
}

// buildLLMClient returns the provider client and the model it should be asked for.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, provider string) (conversation.LLMClient, string, func() error, error) {
	noop := func() error { return nil }
	switch provider {
	case ProviderOpenAI:
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, "", nil, fmt.Errorf("bootstrap: OPENAI_API_KEY is required for the openai provider")
		}
		return conversation.NewOpenAILLMClient(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIModel), cfg.OpenAIModel, noop, nil

	case ProviderBedrock:
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, "", nil, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required for the bedrock provider")
		}
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, "", nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		api := mainconfig.NewBedrockRuntimeClient(awsCfg, cfg)
		return conversation.NewBedrockLLMClient(api, cfg.BedrockModelID), cfg.BedrockModelID, noop, nil

	case ProviderGemini:
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, "", nil, fmt.Errorf("bootstrap: %w", err)
		}
		return client, cfg.GeminiModel, client.Close, nil

	default:
		return nil, "", nil, fmt.Errorf("bootstrap: unknown intent provider %q", provider)
	}
}
