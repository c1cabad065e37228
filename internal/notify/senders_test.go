package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"alertflow/internal/domain"

	"github.com/emersion/go-smtp"
)

func TestWebhookSenderSend(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received webhookPayload
		method   string
		header   string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		header = r.Header.Get("X-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := NewWebhookSender(server.Client(), nil)
	alert := testAlert()
	alert.AssignedTo = "dba_team"
	delivered, err := sender.Send(context.Background(), alert, domain.ChannelConfig{
		"url":     server.URL,
		"method":  "put",
		"headers": map[string]any{"X-Token": "secret"},
	})
	if err != nil || !delivered {
		t.Fatalf("send failed: delivered=%v err=%v", delivered, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut || header != "secret" {
		t.Fatalf("unexpected request method=%s header=%s", method, header)
	}
	if received.AlertID != alert.ID || received.Title != "Database down" || received.Severity != domain.SeverityCritical {
		t.Fatalf("unexpected payload: %+v", received)
	}
	if received.AssignedTo != "dba_team" || received.Status != domain.StatusNew || len(received.Tags) != 1 {
		t.Fatalf("unexpected payload: %+v", received)
	}
}

func TestWebhookSenderStatusErrorIncludesBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "pager quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	delivered, err := NewWebhookSender(server.Client(), nil).Send(context.Background(), testAlert(), domain.ChannelConfig{"url": server.URL})
	if delivered || err == nil {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(err.Error(), "status=429") || !strings.Contains(err.Error(), "pager quota exceeded") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWebhookSenderDryRunSkipsNetwork(t *testing.T) {
	t.Parallel()

	delivered, err := NewWebhookSender(nil, nil).Send(context.Background(), testAlert(), domain.ChannelConfig{"dry_run": true})
	if err != nil || !delivered {
		t.Fatalf("dry-run failed: delivered=%v err=%v", delivered, err)
	}
}

func TestWebhookSenderRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := NewWebhookSender(nil, nil).Send(context.Background(), testAlert(), domain.ChannelConfig{}); err == nil {
		t.Fatalf("expected missing url error")
	}
}

func TestChatSenderSlackAttachment(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received slackMessage
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	delivered, err := NewChatSender(server.Client(), nil).Send(context.Background(), testAlert(), domain.ChannelConfig{
		"webhook_url": server.URL,
		"channel":     "#alerts",
	})
	if err != nil || !delivered {
		t.Fatalf("send failed: delivered=%v err=%v", delivered, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if received.Channel != "#alerts" || len(received.Attachments) != 1 {
		t.Fatalf("unexpected message: %+v", received)
	}
	attachment := received.Attachments[0]
	if attachment.Color != "#FF0000" || attachment.Title != "[CRITICAL] Database down" {
		t.Fatalf("unexpected attachment: %+v", attachment)
	}
	titles := make([]string, 0, len(attachment.Fields))
	for _, field := range attachment.Fields {
		titles = append(titles, field.Title)
	}
	if strings.Join(titles, ",") != "Source,Time,Alert ID,Tags" {
		t.Fatalf("unexpected fields: %v", titles)
	}
}

func TestChatSenderMattermost(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		payload map[string]string
		auth    string
		path    string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"post-1"}`)
	}))
	defer server.Close()

	delivered, err := NewChatSender(server.Client(), nil).Send(context.Background(), testAlert(), domain.ChannelConfig{
		"provider":   "mattermost",
		"base_url":   server.URL + "/",
		"bot_token":  "token",
		"channel_id": "town-square",
	})
	if err != nil || !delivered {
		t.Fatalf("send failed: delivered=%v err=%v", delivered, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if path != "/api/v4/posts" || auth != "Bearer token" {
		t.Fatalf("unexpected request path=%s auth=%s", path, auth)
	}
	if payload["channel_id"] != "town-square" || !strings.HasPrefix(payload["message"], "[CRITICAL] Database down") {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestChatSenderMattermostRequiresPostID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	_, err := NewChatSender(server.Client(), nil).Send(context.Background(), testAlert(), domain.ChannelConfig{
		"provider":   "mattermost",
		"base_url":   server.URL,
		"channel_id": "town-square",
	})
	if err == nil || !strings.Contains(err.Error(), "missing id") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChatSenderTelegram(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		chatID string
		text   string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/sendMessage" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(2 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		mu.Lock()
		chatID = r.FormValue("chat_id")
		text = r.FormValue("text")
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":1,"chat":{"id":42,"type":"private"}}}`)
	}))
	defer server.Close()

	sender := NewChatSender(nil, nil)
	cfg := domain.ChannelConfig{
		"provider":  "telegram",
		"bot_token": "token",
		"chat_id":   "42",
		"api_base":  server.URL,
	}
	for range 2 {
		delivered, err := sender.Send(context.Background(), testAlert(), cfg)
		if err != nil || !delivered {
			t.Fatalf("send failed: delivered=%v err=%v", delivered, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if chatID != "42" || !strings.Contains(text, "Database down") {
		t.Fatalf("unexpected request chat_id=%s text=%q", chatID, text)
	}
	if len(sender.bots) != 1 {
		t.Fatalf("expected cached bot client, got %d", len(sender.bots))
	}
}

func TestChatSenderRejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := NewChatSender(nil, nil).Send(context.Background(), testAlert(), domain.ChannelConfig{"provider": "irc"})
	if err == nil || !strings.Contains(err.Error(), "unsupported chat provider") {
		t.Fatalf("unexpected error: %v", err)
	}
}

type capturedMail struct {
	from       string
	recipients []string
	data       string
}

type mailBackend struct {
	mu       sync.Mutex
	messages []capturedMail
}

func (b *mailBackend) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &mailSession{backend: b}, nil
}

func (b *mailBackend) received() []capturedMail {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]capturedMail(nil), b.messages...)
}

type mailSession struct {
	backend *mailBackend
	current capturedMail
}

func (s *mailSession) Mail(from string, _ *smtp.MailOptions) error {
	s.current.from = from
	return nil
}

func (s *mailSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.current.recipients = append(s.current.recipients, to)
	return nil
}

func (s *mailSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.data = string(raw)
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, s.current)
	s.backend.mu.Unlock()
	return nil
}

func (s *mailSession) Reset() {
	s.current = capturedMail{}
}

func (s *mailSession) Logout() error {
	return nil
}

func startSMTPServer(t *testing.T, backend smtp.Backend) (string, int) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := smtp.NewServer(backend)
	server.Domain = "localhost"
	server.ReadTimeout = 5 * time.Second
	server.WriteTimeout = 5 * time.Second
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(func() {
		_ = server.Close()
	})

	addr := listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestEmailSenderDeliversOverSMTP(t *testing.T) {
	t.Parallel()

	backend := &mailBackend{}
	host, port := startSMTPServer(t, backend)

	alert := testAlert()
	delivered, err := NewEmailSender(nil).Send(context.Background(), alert, domain.ChannelConfig{
		"smtp_server": host,
		"smtp_port":   int64(port),
		"sender":      "Alertflow <alerts@example.com>",
		"recipients":  []any{"oncall@example.com", "dba@example.com"},
	})
	if err != nil || !delivered {
		t.Fatalf("send failed: delivered=%v err=%v", delivered, err)
	}

	messages := backend.received()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	message := messages[0]
	if message.from != "alerts@example.com" {
		t.Fatalf("unexpected envelope from %q", message.from)
	}
	if strings.Join(message.recipients, ",") != "oncall@example.com,dba@example.com" {
		t.Fatalf("unexpected recipients %v", message.recipients)
	}
	for _, fragment := range []string{
		"Subject: [CRITICAL] Database down",
		"Title: Database down",
		"Severity: CRITICAL",
		"Time: 2026-03-01 10:00:00",
		"Assigned To: Unassigned",
		fmt.Sprintf("Alert ID: %s", alert.ID),
	} {
		if !strings.Contains(message.data, fragment) {
			t.Fatalf("message missing %q:\n%s", fragment, message.data)
		}
	}
}

func TestEmailSenderCustomTemplates(t *testing.T) {
	t.Parallel()

	backend := &mailBackend{}
	host, port := startSMTPServer(t, backend)

	_, err := NewEmailSender(nil).Send(context.Background(), testAlert(), domain.ChannelConfig{
		"smtp_server":      host,
		"smtp_port":        port,
		"recipients":       "oncall@example.com",
		"subject_template": "ALERT {{ .ID }}",
		"body_template":    "{{ .Source }} is in trouble",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	messages := backend.received()
	if len(messages) != 1 || !strings.Contains(messages[0].data, "Subject: ALERT abc123def456") || !strings.Contains(messages[0].data, "database is in trouble") {
		t.Fatalf("unexpected messages: %+v", messages)
	}
}

func TestEmailSenderDialFailure(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()

	delivered, err := NewEmailSender(nil).Send(context.Background(), testAlert(), domain.ChannelConfig{
		"smtp_server": "127.0.0.1",
		"smtp_port":   port,
		"recipients":  "oncall@example.com",
	})
	if delivered || err == nil {
		t.Fatalf("expected dial failure")
	}
}

func TestEmailSenderValidatesConfig(t *testing.T) {
	t.Parallel()

	sender := NewEmailSender(nil)
	if _, err := sender.Send(context.Background(), testAlert(), domain.ChannelConfig{"smtp_server": "localhost"}); err == nil {
		t.Fatalf("expected recipients error")
	}
	if _, err := sender.Send(context.Background(), testAlert(), domain.ChannelConfig{"recipients": "a@example.com"}); err == nil {
		t.Fatalf("expected smtp_server error")
	}
	delivered, err := sender.Send(context.Background(), testAlert(), domain.ChannelConfig{"recipients": "a@example.com", "dry_run": true})
	if err != nil || !delivered {
		t.Fatalf("dry-run failed: delivered=%v err=%v", delivered, err)
	}
}

func TestEmailSenderDryRunWithoutRecipients(t *testing.T) {
	t.Parallel()

	delivered, err := NewEmailSender(nil).Send(context.Background(), testAlert(), domain.ChannelConfig{"dry_run": true})
	if err != nil || !delivered {
		t.Fatalf("dry-run placeholder channel must succeed: delivered=%v err=%v", delivered, err)
	}
}

func TestBuildMailMessageKeepsHeadersOnOneLine(t *testing.T) {
	t.Parallel()

	alert := testAlert()
	alert.Title = "disk full\r\nBcc: attacker@evil.example"
	subject, err := renderTemplate(domain.ChannelConfig{}, "subject_template", defaultSubjectTemplate, alert)
	if err != nil {
		t.Fatalf("render subject: %v", err)
	}

	message := string(buildMailMessage("Alerts\n<alerts@example.com>", []string{"oncall@example.com\r\nCc: x@evil.example"}, subject, "line one\r\nline two\nline three"))
	headers, body, found := strings.Cut(message, "\r\n\r\n")
	if !found {
		t.Fatalf("message has no header/body separator: %q", message)
	}
	for _, line := range strings.Split(headers, "\r\n") {
		if strings.HasPrefix(line, "Bcc:") || strings.HasPrefix(line, "Cc:") {
			t.Fatalf("injected header line %q in %q", line, headers)
		}
		if strings.ContainsAny(line, "\r\n") {
			t.Fatalf("header line carries stray line break: %q", line)
		}
	}
	if !strings.Contains(headers, "Subject: [CRITICAL] disk full Bcc: attacker@evil.example") {
		t.Fatalf("unexpected subject header in %q", headers)
	}
	if body != "line one\r\nline two\r\nline three" {
		t.Fatalf("unexpected body line endings %q", body)
	}
}
