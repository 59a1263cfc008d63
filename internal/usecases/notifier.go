package usecases

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
)

// MailMessage is one queued notification email.
type MailMessage struct {
	To      string
	Subject string
	Body    string
}

// NotifierService queues best-effort notification emails. Enqueueing never
// blocks: when the queue is full the message is dropped and logged. The
// mail dispatcher worker drains the queue and performs the actual SMTP
// delivery, so callers are fully decoupled from delivery outcomes.
type NotifierService struct {
	logger *slog.Logger
	queue  chan MailMessage
}

func NewNotifierService(logger *slog.Logger, queueSize int) *NotifierService {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &NotifierService{
		logger: logger,
		queue:  make(chan MailMessage, queueSize),
	}
}

// Queue exposes the message queue to the mail dispatcher worker.
func (s *NotifierService) Queue() <-chan MailMessage {
	return s.queue
}

// NotifyDepositCreated queues the deposit confirmation email.
func (s *NotifierService) NotifyDepositCreated(user *entities.User, deposit *entities.Deposit, newBalance decimal.Decimal) {
	body := fmt.Sprintf(
		"<p>Hello %s,</p>"+
			"<p>Your wallet has been credited with <b>%s %s</b> (%s network).</p>"+
			"<p>New balance: <b>%s</b></p>",
		user.FullName,
		deposit.Amount.String(), deposit.Currency, deposit.Network,
		newBalance.String(),
	)

	s.enqueue(MailMessage{
		To:      user.Email,
		Subject: "Deposit credited to your wallet",
		Body:    body,
	})
}

// NotifyDepositCancelled queues the cancellation email.
func (s *NotifierService) NotifyDepositCancelled(user *entities.User, deposit *entities.Deposit, reason string) {
	body := fmt.Sprintf(
		"<p>Hello %s,</p>"+
			"<p>Your deposit of <b>%s %s</b> has been cancelled.</p>"+
			"<p>Reason: %s</p>",
		user.FullName,
		deposit.Amount.String(), deposit.Currency,
		reason,
	)

	s.enqueue(MailMessage{
		To:      user.Email,
		Subject: "Deposit cancelled",
		Body:    body,
	})
}

func (s *NotifierService) enqueue(msg MailMessage) {
	select {
	case s.queue <- msg:
	default:
		s.logger.Error("Notification queue full, dropping message", "to", msg.To, "subject", msg.Subject)
	}
}
