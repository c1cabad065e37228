package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"alertflow/internal/domain"
)

const defaultSMTPPort = 587

// EmailSender delivers alerts as plain-text mail over SMTP.
// Params: channel config keys smtp_server, smtp_port, sender, recipients, username, password,
// subject_template, body_template, disable_starttls, dry_run.
// Returns: email channel sender.
type EmailSender struct {
	logger *slog.Logger
	dialer net.Dialer
}

// NewEmailSender creates SMTP sender.
// Params: optional logger.
// Returns: initialized sender.
func NewEmailSender(logger *slog.Logger) *EmailSender {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EmailSender{logger: logger}
}

// Type returns sender channel type.
// Params: none.
// Returns: email type.
func (s *EmailSender) Type() domain.ChannelType {
	return domain.ChannelTypeEmail
}

// Send renders and submits one message.
// Params: bounded context, alert, and channel config.
// Returns: true when the server accepted the message, error otherwise.
func (s *EmailSender) Send(ctx context.Context, alert *domain.Alert, cfg domain.ChannelConfig) (bool, error) {
	from := cfg.String("sender", "alerts@localhost")
	recipients := cfg.Strings("recipients")

	subject, err := renderTemplate(cfg, "subject_template", defaultSubjectTemplate, alert)
	if err != nil {
		return false, err
	}
	body, err := renderTemplate(cfg, "body_template", defaultEmailTemplate, alert)
	if err != nil {
		return false, err
	}

	if cfg.Bool("dry_run", false) {
		s.logger.Info("email notification dry-run", "alert_id", alert.ID, "recipients", strings.Join(recipients, ","), "subject", headerValue(subject))
		return true, nil
	}

	if len(recipients) == 0 {
		return false, errors.New("email recipients are required")
	}
	message := buildMailMessage(from, recipients, subject, body)

	host := cfg.String("smtp_server", "")
	if host == "" {
		return false, errors.New("email smtp_server is required")
	}
	port := cfg.Int("smtp_port", defaultSMTPPort)
	if err := s.submit(ctx, cfg, host, port, from, recipients, message); err != nil {
		return false, err
	}
	s.logger.Info("email notification sent", "alert_id", alert.ID, "recipients", len(recipients))
	return true, nil
}

// submit runs one SMTP transaction bounded by ctx deadline.
// Params: context, config, server address parts, envelope, and message bytes.
// Returns: SMTP or transport error.
func (s *EmailSender) submit(ctx context.Context, cfg domain.ChannelConfig, host string, port int, from string, recipients []string, message []byte) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok && !cfg.Bool("disable_starttls", false) {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if username := cfg.String("username", ""); username != "" {
		auth := smtp.PlainAuth("", username, cfg.String("password", ""), host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(extractAddress(from)); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, recipient := range recipients {
		if err := client.Rcpt(extractAddress(recipient)); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", recipient, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write(message); err != nil {
		_ = writer.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}
	return client.Quit()
}

// headerLineBreaks folds CR and LF so rendered values stay on one header line.
var headerLineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// buildMailMessage assembles RFC 5322 plain-text message.
// Params: envelope sender, recipients, rendered subject and body.
// Returns: message bytes with single-line headers and CRLF body lines.
func buildMailMessage(from string, recipients []string, subject, body string) []byte {
	to := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		to = append(to, headerValue(recipient))
	}

	var msg strings.Builder
	msg.WriteString("From: " + headerValue(from) + "\r\n")
	msg.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	msg.WriteString("Subject: " + headerValue(subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(msg.String())
}

func headerValue(value string) string {
	return strings.TrimSpace(headerLineBreaks.Replace(value))
}

// extractAddress strips display name from "Name <addr>" form.
func extractAddress(value string) string {
	start := strings.LastIndex(value, "<")
	end := strings.LastIndex(value, ">")
	if start >= 0 && end > start {
		return strings.TrimSpace(value[start+1 : end])
	}
	return strings.TrimSpace(value)
}
