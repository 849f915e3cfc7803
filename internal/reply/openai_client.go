package reply

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAIClient implements CompletionClient over the OpenAI chat API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds the OpenAI completion client. orgID is optional.
func NewOpenAIClient(apiKey, orgID, model string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("reply: openai api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if orgID != "" {
		cfg.OrgID = orgID
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Complete issues one chat completion. Sampling parameters mirror the
// production reply pipeline: slightly creative, short, repetition-averse.
func (c *OpenAIClient) Complete(ctx context.Context, system string, turns []Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, turn := range turns {
		role := openai.ChatMessageRoleAssistant
		if turn.Role == RoleUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            c.model,
		Messages:         messages,
		Temperature:      0.8,
		MaxTokens:        250,
		PresencePenalty:  0.6,
		FrequencyPenalty: 0.6,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError separates credential problems from other provider
// faults. 401s and key-related messages mean the operator misconfigured the
// key, not that the request was bad.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 401 {
		return &AuthenticationError{Provider: "openai", Err: err}
	}
	msg := err.Error()
	if strings.Contains(msg, "authentication") || strings.Contains(msg, "API key") {
		return &AuthenticationError{Provider: "openai", Err: err}
	}
	return &GenerationError{Provider: "openai", Err: err}
}
