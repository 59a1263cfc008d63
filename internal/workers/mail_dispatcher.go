package workers

import (
	"context"
	"log/slog"

	"github.com/sand/crypto-wallet-admin/backend/internal/core/ports"
	"github.com/sand/crypto-wallet-admin/backend/internal/usecases"
)

// MailDispatcher drains the notification queue and delivers emails.
// Delivery is strictly best-effort: failures are logged and the message is
// discarded, never retried and never reported back to the request that
// queued it.
type MailDispatcher struct {
	logger *slog.Logger
	sender ports.MailSender
	queue  <-chan usecases.MailMessage
}

// NewMailDispatcher creates a new mail dispatcher worker.
func NewMailDispatcher(logger *slog.Logger, sender ports.MailSender, queue <-chan usecases.MailMessage) *MailDispatcher {
	return &MailDispatcher{
		logger: logger,
		sender: sender,
		queue:  queue,
	}
}

// Start consumes the queue until the context is cancelled.
func (d *MailDispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting mail dispatcher worker")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Mail dispatcher worker stopped")
			return
		case msg := <-d.queue:
			if err := d.sender.Send(msg.To, msg.Subject, msg.Body); err != nil {
				d.logger.Error("Failed to send notification email",
					"to", msg.To,
					"subject", msg.Subject,
					"error", err,
				)
				continue
			}
			d.logger.Debug("Notification email sent", "to", msg.To, "subject", msg.Subject)
		}
	}
}
