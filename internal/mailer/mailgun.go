package mailer

import (
	"context"
	"errors"
	"strings"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	"github.com/campus-nfc/card-service/internal/config"
)

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Mailgun sends through the Mailgun HTTP API.
type Mailgun struct {
	client mg.Mailgun
	sender string
}

// NewMailgun validates the configuration and builds the client.
func NewMailgun(cfg config.MailgunConfig) (*Mailgun, error) {
	if strings.TrimSpace(cfg.Domain) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("mailgun domain and api key are required")
	}
	if strings.TrimSpace(cfg.Sender) == "" {
		return nil, errors.New("mailgun sender is required")
	}
	return &Mailgun{client: mg.NewMailgun(cfg.Domain, cfg.APIKey), sender: cfg.Sender}, nil
}

// Send sends an email via Mailgun. html is optional.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}
