package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// MailMessage is what both account mails need: who to greet and which code to show.
type MailMessage struct {
	Email string
	Name  string
	Code  int
}

// Mailer delivers the account lifecycle mails.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, msg MailMessage) error
	SendResetEmail(ctx context.Context, msg MailMessage) error
}

// NoopMailer is used when no mail provider is configured.
type NoopMailer struct {
	log *zap.Logger
}

// NewNoopMailer creates a mailer that only logs.
func NewNoopMailer(log *zap.Logger) *NoopMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoopMailer{log: log}
}

func (m *NoopMailer) SendVerificationEmail(ctx context.Context, msg MailMessage) error {
	m.log.Info("noop verification mail", zap.String("to", msg.Email))
	return nil
}

func (m *NoopMailer) SendResetEmail(ctx context.Context, msg MailMessage) error {
	m.log.Info("noop password reset mail", zap.String("to", msg.Email))
	return nil
}

// resendSender is the part of the Resend client the mailer uses.
type resendSender interface {
	SendWithOptions(ctx context.Context, params *resend.SendEmailRequest, options *resend.SendEmailOptions) (*resend.SendEmailResponse, error)
}

// ResendMailer sends mail through the Resend REST API.
type ResendMailer struct {
	from    string
	product string
	sender  resendSender
	retries int
}

// NewResendMailer creates a Resend backed mailer.
func NewResendMailer(apiKey, from, product string) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return newResendMailer(resend.NewClient(apiKey).Emails, from, product), nil
}

func newResendMailer(sender resendSender, from, product string) *ResendMailer {
	if product == "" {
		product = "Petra"
	}
	return &ResendMailer{from: from, product: product, sender: sender, retries: 3}
}

func (m *ResendMailer) SendVerificationEmail(ctx context.Context, msg MailMessage) error {
	return m.send(ctx, "verification", fmt.Sprintf("Successful %s Registration", m.product), verificationTemplate, msg)
}

func (m *ResendMailer) SendResetEmail(ctx context.Context, msg MailMessage) error {
	return m.send(ctx, "reset", "Password Reset Request", resetTemplate, msg)
}

func (m *ResendMailer) send(ctx context.Context, kind, subject string, tmpl *template.Template, msg MailMessage) error {
	if msg.Email == "" || msg.Code == 0 {
		return fmt.Errorf("recipient email and code are required")
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, mailView{To: msg.Name, Code: msg.Code, Product: m.product}); err != nil {
		return fmt.Errorf("render %s mail: %w", kind, err)
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.Email},
		Subject: subject,
		Html:    body.String(),
		Text:    fmt.Sprintf("Your %s code is %d. It expires in 5 minutes.", kind, msg.Code),
	}
	options := &resend.SendEmailOptions{
		IdempotencyKey: fmt.Sprintf("%s-%s-%d", kind, strings.ToLower(msg.Email), msg.Code),
	}

	var lastErr error
	for attempt := 0; attempt < m.retries; attempt++ {
		_, err := m.sender.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}

type mailView struct {
	To      string
	Code    int
	Product string
}

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Verify Your Email Address</title>
  </head>
  <body>
    <h1>Verify Your Email Address</h1>
    <p>Dear {{.To}},</p>
    <p>Thank you for creating an account with us! To keep your account secure, every user has to verify their email address.</p>
    <p>Please use the code below to verify your email address:</p>
    <h3>{{.Code}}</h3>
    <p>This code expires in 5 minutes. If you did not register for an account with us, please disregard this email.</p>
    <p>Thank you for choosing {{.Product}}.</p>
  </body>
</html>
`))

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Reset Your Password</title>
  </head>
  <body>
    <h1>Reset Your Password</h1>
    <p>Dear {{.To}},</p>
    <p>We received a request to reset the password of your {{.Product}} account. If you did not request a password reset, please ignore this email.</p>
    <p>To reset your password, enter the five-digit code below on the password reset page:</p>
    <h3>{{.Code}}</h3>
    <p>This code expires in 5 minutes.</p>
    <p>Thank you for using {{.Product}}.</p>
  </body>
</html>
`))
