// Package notify delivers staff notifications by email, directly or through
// the transactional outbox.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"

	"valour-site/internal/config"
	"valour-site/internal/logger"
)

// SendRequest is one outgoing email.
type SendRequest struct {
	From    string
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// SendResult identifies a delivered email.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// NewSender builds the configured provider.
func NewSender(cfg config.EmailConfig, log logger.Logger) (Sender, error) {
	switch cfg.Provider {
	case "resend":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("email.api_key is required for the resend provider")
		}
		return NewResendSender(cfg.APIKey, cfg.From, log), nil
	case "", "noop":
		return NewNoopSender(log), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
}

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	log    logger.Logger
}

// NewResendSender creates a new ResendSender with the given API key and default from address.
func NewResendSender(apiKey, from string, log logger.Logger) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
		log:    log,
	}
}

// Send sends a single email via Resend.
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	from := req.From
	if from == "" {
		from = s.from
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
	}
	if req.ReplyTo != "" {
		params.ReplyTo = req.ReplyTo
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.log.With(map[string]interface{}{"subject": req.Subject}).Error(err, "resend send failed")
		return SendResult{}, fmt.Errorf("resend send failed: %w", err)
	}

	s.log.With(map[string]interface{}{"message_id": sent.Id, "subject": req.Subject}).Info("email sent")
	return SendResult{MessageID: sent.Id, SentAt: time.Now()}, nil
}

// NoopSender logs instead of sending. It is the development default.
type NoopSender struct {
	log logger.Logger
}

// NewNoopSender creates a NoopSender.
func NewNoopSender(log logger.Logger) *NoopSender {
	return &NoopSender{log: log}
}

// Send logs the request and returns a synthetic message id.
func (s *NoopSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	id := "noop-" + uuid.NewString()
	s.log.With(map[string]interface{}{"message_id": id, "to": req.To, "subject": req.Subject}).Info("email not sent (noop provider)")
	return SendResult{MessageID: id, SentAt: time.Now()}, nil
}
