package reply

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmercier/hosting-ai-platform/internal/chat"
)

type stubClient struct {
	system string
	turns  []Turn
	text   string
	err    error
	calls  int
}

func (s *stubClient) Complete(_ context.Context, system string, turns []Turn) (string, error) {
	s.calls++
	s.system = system
	s.turns = turns
	return s.text, s.err
}

func msg(dir chat.Direction, content string) chat.Message {
	return chat.Message{ID: content, ConversationID: "c1", Direction: dir, Content: content, CreatedAt: time.Now().UTC()}
}

func TestBuildTurnsRoleMapping(t *testing.T) {
	history := []chat.Message{
		msg(chat.DirectionInbound, "hello"),
		msg(chat.DirectionOutbound, "hi, how can I help?"),
		msg(chat.DirectionSystem, "note"),
	}

	turns := BuildTurns(history)

	require.Len(t, turns, 3)
	assert.Equal(t, Turn{Role: RoleUser, Content: "hello"}, turns[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "hi, how can I help?"}, turns[1])
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "note"}, turns[2])
}

func TestBuildTurnsFiltersTemplateReceipts(t *testing.T) {
	history := []chat.Message{
		msg(chat.DirectionInbound, "hi"),
		msg(chat.DirectionSystem, "Template sent: hello_world"),
		msg(chat.DirectionOutbound, "Template sent: welcome"),
		msg(chat.DirectionInbound, "Is parking available?"),
	}

	turns := BuildTurns(history)

	require.Len(t, turns, 2)
	assert.Equal(t, "hi", turns[0].Content)
	assert.Equal(t, "Is parking available?", turns[1].Content)
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "empty", in: "", wantErr: ErrEmptyResponse},
		{name: "whitespace only", in: "  \n\n  ", wantErr: ErrEmptyResponse},
		{name: "link", in: "see http://example.com", wantErr: ErrUnsafeResponse},
		{name: "link uppercase", in: "See HTTP://EXAMPLE.COM", wantErr: ErrUnsafeResponse},
		{name: "mention", in: "ping @host", wantErr: ErrUnsafeResponse},
		{name: "hashtag", in: "#vacances", wantErr: ErrUnsafeResponse},
		{name: "collapses newlines", in: "line one\n\n\n\nline two", want: "line one\n\nline two"},
		{name: "trims", in: "  hello there  ", want: "hello there"},
		{name: "keeps double newline", in: "a\n\nb", want: "a\n\nb"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateResponse(tc.in)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGenerateHappyPath(t *testing.T) {
	client := &stubClient{text: "  Breakfast is included at Villa Azur.\n\n\nEnjoy your stay!  "}
	gen := NewGenerator(client, "openai", nil, nil)

	history := []chat.Message{msg(chat.DirectionInbound, "Is breakfast included?")}
	out, err := gen.Generate(context.Background(), "[PROPERTY]\nName: Villa Azur", history)

	require.NoError(t, err)
	assert.Equal(t, "Breakfast is included at Villa Azur.\n\nEnjoy your stay!", out)
	assert.Equal(t, 1, client.calls)
	assert.True(t, strings.HasPrefix(client.system, behavioralSystem))
	assert.Contains(t, client.system, "Villa Azur")
	require.Len(t, client.turns, 1)
	assert.Equal(t, RoleUser, client.turns[0].Role)
}

func TestGeneratePropagatesProviderError(t *testing.T) {
	wrapped := &AuthenticationError{Provider: "openai", Err: errors.New("invalid key")}
	client := &stubClient{err: wrapped}
	gen := NewGenerator(client, "openai", nil, nil)

	_, err := gen.Generate(context.Background(), "prompt", []chat.Message{msg(chat.DirectionInbound, "hi")})

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "openai", authErr.Provider)
}

func TestGenerateRejectsUnsafe(t *testing.T) {
	client := &stubClient{text: "book at http://spam.example"}
	gen := NewGenerator(client, "openai", nil, nil)

	_, err := gen.Generate(context.Background(), "prompt", []chat.Message{msg(chat.DirectionInbound, "hi")})

	assert.ErrorIs(t, err, ErrUnsafeResponse)
}

func TestGenerateRejectsEmptyHistoryBeforeProviderCall(t *testing.T) {
	client := &stubClient{text: "unused"}
	gen := NewGenerator(client, "openai", nil, nil)

	// Nothing at all, and nothing left once template receipts are filtered.
	for _, history := range [][]chat.Message{
		nil,
		{msg(chat.DirectionSystem, "Template sent: hello_world")},
	} {
		_, err := gen.Generate(context.Background(), "prompt", history)
		assert.ErrorIs(t, err, ErrNoHistory)
	}
	assert.Equal(t, 0, client.calls)
}

func TestGenerateSingleCallNoRetry(t *testing.T) {
	client := &stubClient{err: &GenerationError{Provider: "openai", Err: errors.New("rate limited")}}
	gen := NewGenerator(client, "openai", nil, nil)

	_, err := gen.Generate(context.Background(), "prompt", []chat.Message{msg(chat.DirectionInbound, "hi")})

	require.Error(t, err)
	assert.Equal(t, 1, client.calls)
}
