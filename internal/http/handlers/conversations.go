package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lmercier/hosting-ai-platform/internal/msgsync"
	"github.com/lmercier/hosting-ai-platform/pkg/logging"
)

// ConversationsHandler exposes the live synchronized message view.
type ConversationsHandler struct {
	manager *msgsync.Manager
	logger  *logging.Logger
}

func NewConversationsHandler(manager *msgsync.Manager, logger *logging.Logger) *ConversationsHandler {
	if manager == nil {
		panic("handlers: manager cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ConversationsHandler{manager: manager, logger: logger}
}

// Messages serves GET /api/conversations/{id}/messages with the current
// merged snapshot, opening the engine on first access.
func (h *ConversationsHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "conversation id is required")
		return
	}
	eng := h.manager.Open(r.Context(), id)
	writeJSON(w, http.StatusOK, eng.Snapshot())
}

// Refresh serves POST /api/conversations/{id}/refresh: a forced reload,
// then the fresh snapshot.
func (h *ConversationsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "conversation id is required")
		return
	}
	eng := h.manager.Open(r.Context(), id)
	if err := eng.ForceRefresh(r.Context()); err != nil {
		h.logger.Error("force refresh failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, eng.Snapshot())
}

// Close serves DELETE /admin/conversations/{id}: full engine teardown.
func (h *ConversationsHandler) Close(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "conversation id is required")
		return
	}
	if !h.manager.Close(id) {
		writeError(w, http.StatusNotFound, "conversation not open")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
