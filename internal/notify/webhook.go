package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"alertflow/internal/domain"
)

// webhookPayload is JSON body posted by webhook channels.
type webhookPayload struct {
	AlertID     string          `json:"alert_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    domain.Severity `json:"severity"`
	Source      string          `json:"source"`
	Timestamp   time.Time       `json:"timestamp"`
	Tags        []string        `json:"tags"`
	Metadata    map[string]any  `json:"metadata"`
	Status      domain.Status   `json:"status"`
	AssignedTo  string          `json:"assigned_to,omitempty"`
}

// WebhookSender posts alert JSON to configured HTTP endpoint.
// Params: channel config keys url, method, headers, dry_run.
// Returns: webhook channel sender.
type WebhookSender struct {
	client *http.Client
	logger *slog.Logger
}

// NewWebhookSender creates generic HTTP sender.
// Params: optional HTTP client and logger.
// Returns: initialized sender; per-send timeout comes from ctx.
func NewWebhookSender(client *http.Client, logger *slog.Logger) *WebhookSender {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WebhookSender{client: client, logger: logger}
}

// Type returns sender channel type.
// Params: none.
// Returns: webhook type.
func (s *WebhookSender) Type() domain.ChannelType {
	return domain.ChannelTypeWebhook
}

// Send delivers alert JSON to endpoint.
// Params: bounded context, alert, and channel config.
// Returns: true on 2xx response, error otherwise.
func (s *WebhookSender) Send(ctx context.Context, alert *domain.Alert, cfg domain.ChannelConfig) (bool, error) {
	url := strings.TrimSpace(cfg.String("url", ""))
	if cfg.Bool("dry_run", false) {
		s.logger.Info("webhook notification dry-run", "alert_id", alert.ID, "url", url)
		return true, nil
	}
	if url == "" {
		return false, errors.New("webhook url is required")
	}

	body, err := json.Marshal(newWebhookPayload(alert))
	if err != nil {
		return false, fmt.Errorf("encode webhook payload: %w", err)
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.String("method", "")))
	if method == "" {
		method = http.MethodPost
	}
	request, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build webhook request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	for key, value := range cfg.StringMap("headers") {
		request.Header.Set(key, value)
	}

	if err := doJSON(s.client, request, "webhook", nil); err != nil {
		return false, err
	}
	s.logger.Info("webhook notification sent", "alert_id", alert.ID, "url", url)
	return true, nil
}

func newWebhookPayload(alert *domain.Alert) webhookPayload {
	tags := alert.Tags
	if tags == nil {
		tags = []string{}
	}
	metadata := alert.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return webhookPayload{
		AlertID:     alert.ID,
		Title:       alert.Title,
		Description: alert.Description,
		Severity:    alert.Severity,
		Source:      alert.Source,
		Timestamp:   alert.Timestamp,
		Tags:        tags,
		Metadata:    metadata,
		Status:      alert.Status,
		AssignedTo:  alert.AssignedTo,
	}
}

// doJSON executes request and decodes optional JSON response.
// Params: HTTP client, prepared request, error prefix, and optional decode target.
// Returns: transport, status, or decode error.
func doJSON(client *http.Client, request *http.Request, prefix string, out any) error {
	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("%s send: %w", prefix, err)
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return unexpectedHTTPStatusError(prefix, response)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", prefix, err)
	}
	return nil
}

// unexpectedHTTPStatusError formats non-2xx HTTP response with optional body.
// Params: sender prefix label and HTTP response pointer.
// Returns: status-only or status+body error.
func unexpectedHTTPStatusError(prefix string, response *http.Response) error {
	if response == nil {
		return fmt.Errorf("%s status=0", prefix)
	}
	rawBody, readErr := io.ReadAll(io.LimitReader(response.Body, 4096))
	if readErr != nil {
		return fmt.Errorf("%s status=%d (read body error: %w)", prefix, response.StatusCode, readErr)
	}
	trimmedBody := strings.TrimSpace(string(rawBody))
	if trimmedBody == "" {
		return fmt.Errorf("%s status=%d", prefix, response.StatusCode)
	}
	return fmt.Errorf("%s status=%d body=%s", prefix, response.StatusCode, trimmedBody)
}
