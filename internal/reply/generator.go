// Package reply turns a grounded prompt and a conversation history into a
// single validated AI response.
package reply

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lmercier/hosting-ai-platform/internal/chat"
	"github.com/lmercier/hosting-ai-platform/internal/observability/metrics"
	"github.com/lmercier/hosting-ai-platform/pkg/logging"
)

var tracer = otel.Tracer("host.internal.reply")

// Turn roles in provider terms.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// sentTemplatePrefix marks machine receipts of WhatsApp template sends.
// They read like host messages but carry no conversational content, so they
// are kept out of the model's view.
const sentTemplatePrefix = "Template sent:"

// behavioralSystem is the fixed behavioral framing sent ahead of the
// grounded prompt.
const behavioralSystem = `You are a professional virtual assistant for a short-term rental host. You must:
1. Reply in a personalized and specific way
2. Use the provided property information
3. Be warm and professional
4. Focus on the needs the guest expressed
5. Use a natural conversational tone`

var unsafePattern = regexp.MustCompile(`(?i)(http|@|#)`)

var newlineRuns = regexp.MustCompile(`\n{3,}`)

// Turn is one conversation turn in provider terms.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionClient issues exactly one completion request to a provider.
// system carries the full system instruction; turns carry the filtered
// conversation history, oldest first.
type CompletionClient interface {
	Complete(ctx context.Context, system string, turns []Turn) (string, error)
}

// Generator produces one validated reply per call. No retries: a fault is
// reported to the caller as-is.
type Generator struct {
	client   CompletionClient
	provider string
	metrics  *metrics.ReplyMetrics
	logger   *logging.Logger
}

// NewGenerator builds a generator over a completion client. provider is the
// label used in logs and metrics.
func NewGenerator(client CompletionClient, provider string, m *metrics.ReplyMetrics, logger *logging.Logger) *Generator {
	if client == nil {
		panic("reply: completion client cannot be nil")
	}
	if provider == "" {
		provider = "unknown"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{client: client, provider: provider, metrics: m, logger: logger}
}

// Generate runs one completion over the grounded prompt and history, then
// validates the text. The grounded prompt is appended to the behavioral
// system instruction rather than injected as a user turn, so it cannot
// displace the conversation.
func (g *Generator) Generate(ctx context.Context, groundedPrompt string, history []chat.Message) (string, error) {
	ctx, span := tracer.Start(ctx, "reply.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("host.provider", g.provider),
		attribute.Int("host.history_len", len(history)),
	)
	start := time.Now()

	system := behavioralSystem + "\n\n" + groundedPrompt
	turns := BuildTurns(history)
	if len(turns) == 0 {
		span.RecordError(ErrNoHistory)
		g.metrics.ObserveGeneration(g.provider, "rejected", time.Since(start).Seconds())
		g.logger.Warn("no usable conversation turns", "provider", g.provider, "history_len", len(history))
		return "", ErrNoHistory
	}

	raw, err := g.client.Complete(ctx, system, turns)
	if err != nil {
		span.RecordError(err)
		g.metrics.ObserveGeneration(g.provider, "error", time.Since(start).Seconds())
		g.logger.Error("completion failed", "provider", g.provider, "error", err)
		return "", err
	}

	validated, err := ValidateResponse(raw)
	if err != nil {
		span.RecordError(err)
		g.metrics.ObserveGeneration(g.provider, "rejected", time.Since(start).Seconds())
		g.logger.Warn("completion rejected by validation", "provider", g.provider, "error", err)
		return "", err
	}

	g.metrics.ObserveGeneration(g.provider, "ok", time.Since(start).Seconds())
	return validated, nil
}

// Provider returns the label of the underlying completion provider.
func (g *Generator) Provider() string { return g.provider }

// BuildTurns maps conversation messages to provider turns. Inbound messages
// become user turns; outbound and system messages become assistant turns.
// Template send receipts are excluded.
func BuildTurns(history []chat.Message) []Turn {
	turns := make([]Turn, 0, len(history))
	for _, msg := range history {
		if strings.HasPrefix(msg.Content, sentTemplatePrefix) {
			continue
		}
		role := RoleAssistant
		if msg.Inbound() {
			role = RoleUser
		}
		turns = append(turns, Turn{Role: role, Content: msg.Content})
	}
	return turns
}

// ValidateResponse applies the output guard: non-empty, no links, mentions
// or hashtags, at most two consecutive newlines, trimmed.
func ValidateResponse(text string) (string, error) {
	if text == "" {
		return "", ErrEmptyResponse
	}
	if unsafePattern.MatchString(text) {
		return "", ErrUnsafeResponse
	}
	cleaned := strings.TrimSpace(newlineRuns.ReplaceAllString(text, "\n\n"))
	if cleaned == "" {
		return "", ErrEmptyResponse
	}
	return cleaned, nil
}
