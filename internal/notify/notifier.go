package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"valour-site/internal/logger"
)

// ErrNoRecipients is returned when no staff address is configured.
var ErrNoRecipients = errors.New("no notification recipients configured")

// Notifier emails staff about new waivers.
type Notifier struct {
	sender Sender
	from   string
	to     []string
	log    logger.Logger
	now    func() time.Time
}

// NewNotifier creates a Notifier sending from `from` to every address in to.
func NewNotifier(sender Sender, from string, to []string, log logger.Logger) *Notifier {
	return &Notifier{sender: sender, from: from, to: to, log: log, now: time.Now}
}

// SendWaiver emails the configured recipients and returns the provider message id.
// It is synchronous and never retries.
func (n *Notifier) SendWaiver(ctx context.Context, p WaiverPayload) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if len(n.to) == 0 {
		return "", ErrNoRecipients
	}
	body, err := RenderWaiverEmail(p, n.now())
	if err != nil {
		return "", fmt.Errorf("failed to render waiver email: %w", err)
	}
	res, err := n.sender.Send(ctx, SendRequest{
		From:    n.from,
		To:      n.to,
		Subject: p.Subject(),
		HTML:    body,
		ReplyTo: p.Email,
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// Execute runs an outbox waiver_notification entry.
func (n *Notifier) Execute(ctx context.Context, payload string) (string, error) {
	var p WaiverPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("invalid waiver payload: %w", err)
	}
	return n.SendWaiver(ctx, p)
}
