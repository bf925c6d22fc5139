// Package mail implements the email delivery collaborator over SMTP.
package mail

import (
	"context"
	"fmt"
	"time"

	"publicfeed/internal/config"
	"publicfeed/internal/observability"

	"gopkg.in/gomail.v2"
)

// sendTimeout bounds a single SMTP delivery attempt. A timed-out send is
// reported as a delivery failure to the caller.
const sendTimeout = 10 * time.Second

// Mailer delivers transactional email. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// SMTPMailer sends mail through a configured SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a Mailer from the application configuration.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.SMTPFrom,
	}
}

// Send delivers a message with both plain-text and HTML bodies. The attempt
// is bounded by sendTimeout and by ctx.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, text, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	if html != "" {
		msg.AddAlternative("text/html", html)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s failed: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s timed out: %w", to, ctx.Err())
	}
}

// recordOutcome tracks delivery attempts for the emails-sent metric.
func recordOutcome(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.EmailsSent.WithLabelValues(kind, outcome).Inc()
}

// SendOTP emails the plaintext one-time code for signup verification.
func SendOTP(ctx context.Context, m Mailer, to, firstName, otp string) error {
	text := fmt.Sprintf("Your OTP code is %s. It expires in 5 minutes.", otp)
	html := fmt.Sprintf(
		`<div style="font-family:sans-serif;font-size:16px">`+
			`<p>Welcome to <b>PublicFeed</b>, %s!</p>`+
			`<p>Your verification code is:</p>`+
			`<h2 style="letter-spacing:4px">%s</h2>`+
			`<p>This code expires in 5 minutes.</p></div>`,
		firstName, otp)

	err := m.Send(ctx, to, "Your PublicFeed Verification Code", text, html)
	recordOutcome("otp", err)
	return err
}

// SendPasswordReset emails the reset link containing the plaintext token.
func SendPasswordReset(ctx context.Context, m Mailer, to, resetURL string) error {
	text := fmt.Sprintf("Reset your password: %s", resetURL)
	html := fmt.Sprintf(
		`<p>You requested a password reset for PublicFeed.</p>`+
			`<p>Click <a href="%s">here</a> to reset your password. This link expires in 1 hour.</p>`+
			`<p>If you didn't request this, ignore this email.</p>`,
		resetURL)

	err := m.Send(ctx, to, "PublicFeed Password Reset", text, html)
	recordOutcome("password_reset", err)
	return err
}
