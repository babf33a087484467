// Package mailer sends transactional email. SendGrid is used when an API key
// is configured; otherwise messages are only logged.
package mailer

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/config"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
)

// Message is a single transactional email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type sender interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (statusCode int, body string, err error)
}

type sendgridSender struct {
	client *sendgrid.Client
}

func (s sendgridSender) SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (int, string, error) {
	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, resp.Body, nil
}

// SendGrid delivers mail through the SendGrid v3 API.
type SendGrid struct {
	client sender
	from   *sgmail.Email
	logg   *logger.Logger
}

// New picks the SendGrid mailer when configured, else a log-only mailer.
func New(cfg config.SendgridConfig, logg *logger.Logger) Mailer {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &LogMailer{logg: logg}
	}
	return &SendGrid{
		client: sendgridSender{client: sendgrid.NewSendClient(cfg.APIKey)},
		from:   sgmail.NewEmail(cfg.FromName, cfg.DefaultFrom),
		logg:   logg,
	}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	to := sgmail.NewEmail(msg.ToName, msg.To)
	html := msg.HTML
	if html == "" {
		html = textToHTML(msg.Text)
	}
	email := sgmail.NewSingleEmail(s.from, msg.Subject, to, msg.Text, html)

	status, body, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if status >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", status, body)
	}
	if s.logg != nil {
		s.logg.Debug(s.logg.WithField(ctx, "subject", msg.Subject), "mailer.sent")
	}
	return nil
}

// LogMailer records messages instead of sending them.
type LogMailer struct {
	logg *logger.Logger
}

func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	if l.logg != nil {
		ctx = l.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
		l.logg.Info(ctx, "mailer.skipped_unconfigured")
	}
	return nil
}

func validate(msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mailer: recipient required")
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("mailer: invalid recipient %q: %w", msg.To, err)
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("mailer: subject required")
	}
	return nil
}

func textToHTML(text string) string {
	escaped := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(text)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}
