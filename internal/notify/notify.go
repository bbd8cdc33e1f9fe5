package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"autolot/internal/domain"
	applog "autolot/internal/log"
)

// Notifier is told about every persisted submission. Callers treat errors as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, s domain.Submission) error
}

// LogNotifier writes one info line per submission.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, s domain.Submission) error {
	applog.Info(nil, "submission.received", map[string]any{
		"id":    s.ID,
		"type":  s.Type,
		"email": s.Email,
	})
	return nil
}

// WebhookNotifier POSTs the submission as JSON to URL.
type WebhookNotifier struct {
	URL     string
	Timeout time.Duration
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{URL: url, Timeout: timeout}
}

type webhookEvent struct {
	Event      string            `json:"event"`
	Submission domain.Submission `json:"submission"`
}

func (w *WebhookNotifier) Notify(ctx context.Context, s domain.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a := fiber.Post(w.URL)
	a.JSON(webhookEvent{Event: "submission.created", Submission: s})
	a.Timeout(w.Timeout)
	if err := a.Parse(); err != nil {
		return fmt.Errorf("webhook %s: %w", w.URL, err)
	}
	code, _, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook %s: %w", w.URL, errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("webhook %s: unexpected status %d", w.URL, code)
	}
	return nil
}

// Multi fans out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, s domain.Submission) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
