package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spotsapp/spots-api/internal/metrics"
)

// Notifier dispatches account mails without blocking the caller.
type Notifier interface {
	Verification(msg MailMessage)
	PasswordReset(msg MailMessage)
}

// EmailNotifier sends every mail on its own goroutine with a bounded timeout.
// Delivery errors are logged and dropped.
type EmailNotifier struct {
	mailer  Mailer
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewEmailNotifier wraps mailer. A non-positive timeout falls back to 20 seconds.
func NewEmailNotifier(mailer Mailer, timeout time.Duration, log *zap.Logger) (*EmailNotifier, error) {
	if mailer == nil {
		return nil, fmt.Errorf("Mailer is required for EmailNotifier")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailNotifier{mailer: mailer, timeout: timeout, log: log}, nil
}

func (n *EmailNotifier) Verification(msg MailMessage) {
	n.dispatch("verification", msg, n.mailer.SendVerificationEmail)
}

func (n *EmailNotifier) PasswordReset(msg MailMessage) {
	n.dispatch("reset", msg, n.mailer.SendResetEmail)
}

// Wait blocks until every dispatched mail has finished.
func (n *EmailNotifier) Wait() {
	n.wg.Wait()
}

func (n *EmailNotifier) dispatch(kind string, msg MailMessage, send func(context.Context, MailMessage) error) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				n.log.Error("mail dispatch panicked", zap.String("kind", kind), zap.Any("panic", r))
				metrics.MailDispatches.WithLabelValues(kind, metrics.ResultError).Inc()
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := send(ctx, msg); err != nil {
			n.log.Warn("mail delivery failed",
				zap.String("kind", kind),
				zap.String("to", msg.Email),
				zap.Error(err))
			metrics.MailDispatches.WithLabelValues(kind, metrics.ResultError).Inc()
			return
		}
		metrics.MailDispatches.WithLabelValues(kind, metrics.ResultSuccess).Inc()
	}()
}
