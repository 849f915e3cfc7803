package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lmercier/hosting-ai-platform/internal/chat"
	"github.com/lmercier/hosting-ai-platform/internal/prompt"
	"github.com/lmercier/hosting-ai-platform/internal/reply"
	"github.com/lmercier/hosting-ai-platform/internal/store"
	"github.com/lmercier/hosting-ai-platform/pkg/logging"
)

// replyStore is what the reply boundary needs from the remote store.
type replyStore interface {
	FetchProperty(ctx context.Context, id string) (*chat.Property, error)
	FetchMessages(ctx context.Context, conversationID string, forceFresh bool) ([]chat.Message, error)
}

// replyGenerator runs one validated completion.
type replyGenerator interface {
	Generate(ctx context.Context, groundedPrompt string, history []chat.Message) (string, error)
}

// ReplyHandler serves POST /api/replies.
type ReplyHandler struct {
	store     replyStore
	generator replyGenerator
	logger    *logging.Logger
}

func NewReplyHandler(st replyStore, gen replyGenerator, logger *logging.Logger) *ReplyHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReplyHandler{store: st, generator: gen, logger: logger}
}

type replyRequest struct {
	PropertyID         string         `json:"property_id"`
	ConversationID     string         `json:"conversation_id"`
	Messages           []chat.Message `json:"messages,omitempty"`
	CustomInstructions string         `json:"custom_instructions,omitempty"`
	IsReservation      bool           `json:"is_reservation,omitempty"`
}

// Generate handles one reply request. Messages supplied inline (sandbox
// mode) skip the store fetch.
func (h *ReplyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PropertyID == "" || req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "property_id and conversation_id are required")
		return
	}

	ctx := r.Context()
	property, err := h.store.FetchProperty(ctx, req.PropertyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "property not found")
			return
		}
		h.logger.Error("property fetch failed", "property_id", req.PropertyID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "failed to load property",
			"details": err.Error(),
		})
		return
	}

	history := req.Messages
	if history == nil {
		history, err = h.store.FetchMessages(ctx, req.ConversationID, false)
		if err != nil {
			h.logger.Error("message fetch failed", "conversation_id", req.ConversationID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "failed to load messages",
				"details": err.Error(),
			})
			return
		}
		if len(history) == 0 {
			h.logger.Warn("no messages found for conversation", "conversation_id", req.ConversationID)
		}
	}

	grounded := prompt.Build(prompt.Input{
		Property:           *property,
		Messages:           history,
		CustomInstructions: req.CustomInstructions,
		IsReservation:      req.IsReservation,
	})

	response, err := h.generator.Generate(ctx, grounded, history)
	if err != nil {
		var authErr *reply.AuthenticationError
		if errors.As(err, &authErr) {
			h.logger.Error("provider authentication failed", "provider", authErr.Provider, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "provider authentication failed",
				"details": authErr.Error(),
			})
			return
		}
		h.logger.Error("reply generation failed", "conversation_id", req.ConversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "reply generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": response})
}
