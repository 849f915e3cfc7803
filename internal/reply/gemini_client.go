package reply

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements CompletionClient over Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient builds the Gemini completion client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("reply: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &AuthenticationError{Provider: "gemini", Err: err}
	}
	return &GeminiClient{client: client, modelID: modelID}, nil
}

// Complete sends the history as chat context and the final turn as the
// message. Sampling mirrors the OpenAI path.
func (c *GeminiClient) Complete(ctx context.Context, system string, turns []Turn) (string, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0.8)
	model.SetMaxOutputTokens(250)
	if strings.TrimSpace(system) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	if len(turns) == 0 {
		return "", ErrNoHistory
	}

	cs := model.StartChat()
	for _, turn := range turns[:len(turns)-1] {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		role := "user"
		if turn.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}

	last := turns[len(turns)-1]
	resp, err := cs.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}

// Close releases the underlying API client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func classifyGeminiError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "API key") || strings.Contains(msg, "authentication") || strings.Contains(msg, "401") {
		return &AuthenticationError{Provider: "gemini", Err: err}
	}
	return &GenerationError{Provider: "gemini", Err: err}
}
