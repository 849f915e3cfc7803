package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/lmercier/hosting-ai-platform/pkg/logging"
)

const (
	// ProviderAuto prefers OpenAI, then Gemini.
	ProviderAuto = "auto"
	// ProviderOpenAI forces the OpenAI client when credentials exist.
	ProviderOpenAI = "openai"
	// ProviderGemini forces the Gemini client when credentials exist.
	ProviderGemini = "gemini"
)

// ProviderSelectionConfig captures the credentials needed to build
// completion clients.
type ProviderSelectionConfig struct {
	Preference   string
	OpenAIAPIKey string
	OpenAIOrgID  string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string
}

// BuildCompletionClient instantiates a CompletionClient based on the
// preferred provider. It returns the client, the provider that was
// selected, and a reason when no provider could be initialized.
func BuildCompletionClient(ctx context.Context, cfg ProviderSelectionConfig, logger *logging.Logger) (CompletionClient, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	preference := strings.ToLower(strings.TrimSpace(cfg.Preference))
	if preference == "" {
		preference = ProviderAuto
	}

	missing := map[string]string{}

	var openaiClient CompletionClient
	if cfg.OpenAIAPIKey != "" {
		client, err := NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIOrgID, cfg.OpenAIModel)
		if err != nil {
			missing[ProviderOpenAI] = err.Error()
		} else {
			openaiClient = client
		}
	} else {
		missing[ProviderOpenAI] = "OPENAI_API_KEY missing"
	}

	var geminiClient CompletionClient
	if cfg.GeminiAPIKey != "" {
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			missing[ProviderGemini] = err.Error()
			logger.Warn("gemini client initialization failed", "error", err)
		} else {
			geminiClient = client
		}
	} else {
		missing[ProviderGemini] = "GEMINI_API_KEY missing"
	}

	if preference != ProviderAuto {
		if preference == ProviderOpenAI && openaiClient != nil {
			return openaiClient, ProviderOpenAI, ""
		}
		if preference == ProviderGemini && geminiClient != nil {
			return geminiClient, ProviderGemini, ""
		}
		reason := missing[preference]
		if reason == "" {
			reason = fmt.Sprintf("%s client not configured", preference)
		}
		return nil, "", reason
	}

	if openaiClient != nil {
		return openaiClient, ProviderOpenAI, ""
	}
	if geminiClient != nil {
		return geminiClient, ProviderGemini, ""
	}

	var reasons []string
	for _, provider := range []string{ProviderOpenAI, ProviderGemini} {
		if msg := missing[provider]; msg != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", provider, msg))
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no completion providers configured")
	}
	return nil, "", strings.Join(reasons, "; ")
}
