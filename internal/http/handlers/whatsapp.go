package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lmercier/hosting-ai-platform/internal/store"
	"github.com/lmercier/hosting-ai-platform/internal/whatsapp"
	"github.com/lmercier/hosting-ai-platform/pkg/logging"
)

// configStore supplies the freshest WhatsApp credentials for each dispatch.
type configStore interface {
	LatestWhatsAppConfig(ctx context.Context) (*store.WhatsAppConfig, error)
}

// templateSender issues one template send.
type templateSender interface {
	SendTemplate(ctx context.Context, creds whatsapp.Credentials, req whatsapp.TemplateRequest) (whatsapp.SendResult, error)
}

// WhatsAppHandler serves POST /admin/whatsapp/template.
type WhatsAppHandler struct {
	store  configStore
	sender templateSender
	logger *logging.Logger
}

func NewWhatsAppHandler(st configStore, sender templateSender, logger *logging.Logger) *WhatsAppHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WhatsAppHandler{store: st, sender: sender, logger: logger}
}

type templateRequestBody struct {
	To           string `json:"to"`
	TemplateName string `json:"template_name"`
	Language     string `json:"language"`
}

// SendTemplate loads the latest provider credentials, issues exactly one
// send, and relays the provider's status and raw body to the caller.
func (h *WhatsAppHandler) SendTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.To == "" {
		writeError(w, http.StatusBadRequest, "to is required")
		return
	}

	ctx := r.Context()
	cfg, err := h.store.LatestWhatsAppConfig(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "no WhatsApp configuration found")
			return
		}
		h.logger.Error("whatsapp config fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load WhatsApp configuration")
		return
	}
	if cfg.Token == "" || cfg.PhoneNumberID == "" {
		writeError(w, http.StatusInternalServerError, "incomplete WhatsApp configuration")
		return
	}

	result, err := h.sender.SendTemplate(ctx,
		whatsapp.Credentials{Token: cfg.Token, PhoneNumberID: cfg.PhoneNumberID},
		whatsapp.TemplateRequest{To: req.To, TemplateName: req.TemplateName, Language: req.Language},
	)
	if err != nil {
		h.logger.Error("template dispatch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "template dispatch failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.StatusCode)
	_, _ = w.Write(result.Body)
}
