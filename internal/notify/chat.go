package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"alertflow/internal/domain"

	tgbot "github.com/go-telegram/bot"
)

const (
	// ChatProviderSlack posts attachments to an incoming webhook.
	ChatProviderSlack = "slack"
	// ChatProviderMattermost posts to Mattermost API v4.
	ChatProviderMattermost = "mattermost"
	// ChatProviderTelegram posts through Telegram Bot API.
	ChatProviderTelegram = "telegram"
)

// ChatSender delivers alerts to chat platforms selected by config key provider.
// Params: channel config keys provider, message_template, dry_run, plus provider keys.
// Returns: chat channel sender.
type ChatSender struct {
	client *http.Client
	logger *slog.Logger

	mu   sync.Mutex
	bots map[string]*tgbot.Bot
}

// NewChatSender creates chat sender.
// Params: optional HTTP client and logger.
// Returns: initialized sender.
func NewChatSender(client *http.Client, logger *slog.Logger) *ChatSender {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ChatSender{
		client: client,
		logger: logger,
		bots:   make(map[string]*tgbot.Bot),
	}
}

// Type returns sender channel type.
// Params: none.
// Returns: chat type.
func (s *ChatSender) Type() domain.ChannelType {
	return domain.ChannelTypeChat
}

// Send renders chat message and posts it to configured provider.
// Params: bounded context, alert, and channel config.
// Returns: true when provider accepted the message, error otherwise.
func (s *ChatSender) Send(ctx context.Context, alert *domain.Alert, cfg domain.ChannelConfig) (bool, error) {
	provider := strings.ToLower(cfg.String("provider", ChatProviderSlack))
	message, err := renderTemplate(cfg, "message_template", defaultChatTemplate, alert)
	if err != nil {
		return false, err
	}

	if cfg.Bool("dry_run", false) {
		s.logger.Info("chat notification dry-run", "alert_id", alert.ID, "provider", provider, "message", message)
		return true, nil
	}

	switch provider {
	case ChatProviderSlack:
		err = s.sendSlack(ctx, alert, cfg)
	case ChatProviderMattermost:
		err = s.sendMattermost(ctx, message, cfg)
	case ChatProviderTelegram:
		err = s.sendTelegram(ctx, message, cfg)
	default:
		err = fmt.Errorf("unsupported chat provider %q", provider)
	}
	if err != nil {
		return false, err
	}
	s.logger.Info("chat notification sent", "alert_id", alert.ID, "provider", provider)
	return true, nil
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer,omitempty"`
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

// sendSlack posts one colored attachment to incoming webhook.
func (s *ChatSender) sendSlack(ctx context.Context, alert *domain.Alert, cfg domain.ChannelConfig) error {
	webhookURL := strings.TrimSpace(cfg.String("webhook_url", ""))
	if webhookURL == "" {
		return errors.New("slack webhook_url is required")
	}

	fields := []slackField{
		{Title: "Source", Value: alert.Source, Short: true},
		{Title: "Time", Value: formatTimestamp(alert.Timestamp), Short: true},
		{Title: "Alert ID", Value: alert.ID, Short: true},
	}
	if len(alert.Tags) > 0 {
		fields = append(fields, slackField{Title: "Tags", Value: joinTags(alert.Tags), Short: false})
	}
	if alert.AssignedTo != "" {
		fields = append(fields, slackField{Title: "Assigned To", Value: alert.AssignedTo, Short: true})
	}

	payload := slackMessage{
		Channel:  cfg.String("channel", ""),
		Username: cfg.String("username", "alertflow"),
		Attachments: []slackAttachment{{
			Color:  SeverityColor(alert.Severity),
			Title:  fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title),
			Text:   alert.Description,
			Fields: fields,
			Footer: "alertflow",
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	return doJSON(s.client, request, "slack", nil)
}

// sendMattermost posts rendered message to Mattermost channel.
func (s *ChatSender) sendMattermost(ctx context.Context, message string, cfg domain.ChannelConfig) error {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.String("base_url", "")), "/")
	channelID := strings.TrimSpace(cfg.String("channel_id", ""))
	if baseURL == "" || channelID == "" {
		return errors.New("mattermost base_url and channel_id are required")
	}

	payload := struct {
		ChannelID string `json:"channel_id"`
		Message   string `json:"message"`
	}{
		ChannelID: channelID,
		Message:   message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode mattermost payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v4/posts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mattermost request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+strings.TrimSpace(cfg.String("bot_token", "")))

	var decoded struct {
		ID string `json:"id"`
	}
	if err := doJSON(s.client, request, "mattermost", &decoded); err != nil {
		return err
	}
	if strings.TrimSpace(decoded.ID) == "" {
		return errors.New("mattermost response missing id")
	}
	return nil
}

// sendTelegram posts rendered message through cached bot client.
func (s *ChatSender) sendTelegram(ctx context.Context, message string, cfg domain.ChannelConfig) error {
	token := strings.TrimSpace(cfg.String("bot_token", ""))
	chatID := strings.TrimSpace(cfg.String("chat_id", ""))
	if token == "" {
		return errors.New("telegram bot_token is required")
	}
	if chatID == "" {
		return errors.New("telegram chat_id is required")
	}

	client, err := s.telegramBot(token, cfg.String("api_base", ""))
	if err != nil {
		return err
	}
	sent, err := client.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: normalizeChatID(chatID),
		Text:   message,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if sent == nil || sent.ID <= 0 {
		return errors.New("telegram send returned empty message id")
	}
	return nil
}

// telegramBot returns bot client for token and API base, creating it once.
func (s *ChatSender) telegramBot(token, apiBase string) (*tgbot.Bot, error) {
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	key := apiBase + "|" + token

	s.mu.Lock()
	defer s.mu.Unlock()
	if client, ok := s.bots[key]; ok {
		return client, nil
	}

	options := []tgbot.Option{tgbot.WithSkipGetMe()}
	if apiBase != "" {
		options = append(options, tgbot.WithServerURL(apiBase))
	}
	client, err := tgbot.New(token, options...)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	s.bots[key] = client
	return client, nil
}

// normalizeChatID converts numeric chat IDs to int64 and keeps non-numeric IDs as string.
// Params: configured chat ID value.
// Returns: Telegram API chat id union value.
func normalizeChatID(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if numeric, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return numeric
	}
	return trimmed
}
