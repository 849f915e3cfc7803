// Package whatsapp dispatches pre-approved template messages through the
// Meta Graph API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lmercier/hosting-ai-platform/pkg/logging"
)

var tracer = otel.Tracer("host.internal.whatsapp")

const (
	// DefaultGraphBaseURL targets the current Graph API version.
	DefaultGraphBaseURL = "https://graph.facebook.com/v22.0"
	// DefaultTemplateName is sent when the caller names no template.
	DefaultTemplateName = "hello_world"
	// DefaultLanguage is sent when the caller names no language.
	DefaultLanguage = "en_US"
)

// Credentials identify the business phone number the template is sent from.
type Credentials struct {
	Token         string
	PhoneNumberID string
}

// TemplateRequest names one template dispatch.
type TemplateRequest struct {
	To           string
	TemplateName string
	Language     string
}

// SendResult carries the provider's verbatim answer. The raw body is
// relayed so callers can inspect provider error details without this
// package modeling them.
type SendResult struct {
	StatusCode int
	Body       json.RawMessage
}

// Sender issues template sends. Exactly one HTTP attempt per call; outcome
// interpretation is the caller's concern.
type Sender struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
}

// NewSender builds a sender against a Graph API base URL. An empty baseURL
// uses the default; a nil httpClient gets a 15s-timeout client.
func NewSender(baseURL string, httpClient *http.Client, logger *logging.Logger) *Sender {
	if baseURL == "" {
		baseURL = DefaultGraphBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sender{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

type templatePayload struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Template         templateSpec `json:"template"`
}

type templateSpec struct {
	Name     string           `json:"name"`
	Language templateLanguage `json:"language"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

// SendTemplate issues one template send and relays the provider's status
// and body. A non-2xx provider answer is not an error here.
func (s *Sender) SendTemplate(ctx context.Context, creds Credentials, req TemplateRequest) (SendResult, error) {
	ctx, span := tracer.Start(ctx, "whatsapp.send_template")
	defer span.End()

	if creds.Token == "" || creds.PhoneNumberID == "" {
		return SendResult{}, errors.New("whatsapp: missing credentials")
	}
	if req.To == "" {
		return SendResult{}, errors.New("whatsapp: recipient is required")
	}
	if req.TemplateName == "" {
		req.TemplateName = DefaultTemplateName
	}
	if req.Language == "" {
		req.Language = DefaultLanguage
	}
	span.SetAttributes(
		attribute.String("host.template", req.TemplateName),
		attribute.String("host.language", req.Language),
	)

	payload, err := json.Marshal(templatePayload{
		MessagingProduct: "whatsapp",
		To:               req.To,
		Type:             "template",
		Template: templateSpec{
			Name:     req.TemplateName,
			Language: templateLanguage{Code: req.Language},
		},
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("whatsapp: failed to encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.baseURL, creds.PhoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return SendResult{}, fmt.Errorf("whatsapp: failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+creds.Token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return SendResult{}, fmt.Errorf("whatsapp: template send failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SendResult{}, fmt.Errorf("whatsapp: failed to read response: %w", err)
	}

	s.logger.Info("whatsapp template dispatched",
		"template", req.TemplateName,
		"language", req.Language,
		"status", resp.StatusCode,
	)
	return SendResult{StatusCode: resp.StatusCode, Body: body}, nil
}
