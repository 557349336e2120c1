// Package mailer implements an SMTP email sender over gomail.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned by Send when no SMTP transport is configured.
// No delivery is attempted in that case.
var ErrNotConfigured = errors.New("mailer: SMTP transport is not configured")

// defaultSendTimeout bounds a single dial-and-send so a hung SMTP server
// cannot hold a request handler indefinitely.
const defaultSendTimeout = 10 * time.Second

// Mailer represents an email sender. The zero value is unusable; construct
// it with NewMailer and inject it where email dispatch is needed.
type Mailer struct {
	config     *mailerConfig
	dialer     *gomail.Dialer
	configured bool
	timeout    time.Duration
}

// NewMailer creates a new Mailer instance from SMTP_* environment variables.
// An incomplete configuration is not fatal: the Mailer is returned in an
// unconfigured state and every Send fails fast with ErrNotConfigured.
func NewMailer(logger *zerolog.Logger) *Mailer {
	cfg := newMailerConfig(logger)

	m := &Mailer{
		config:  cfg,
		timeout: defaultSendTimeout,
	}
	if cfg.SendTimeout > 0 {
		m.timeout = cfg.SendTimeout
	}

	if err := cfg.validate(); err != nil {
		logger.Warn().Err(err).Msg("mail transport not configured; email dispatch disabled")
		return m
	}

	m.dialer = gomail.NewDialer(
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
	)
	m.configured = true

	return m
}

// Send dispatches a single email with a plain-text body and an optional HTML
// alternative. The call is bounded by the configured timeout; on timeout or
// transport failure the error is returned to the caller so it can roll back
// whatever state the email was meant to confirm.
func (m *Mailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	if !m.configured {
		return ErrNotConfigured
	}
	if to == "" {
		return fmt.Errorf("no recipient specified")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)

	if htmlBody != "" {
		msg.SetBody("text/html", htmlBody)
		if textBody != "" {
			msg.AddAlternative("text/plain", textBody)
		}
	} else {
		msg.SetBody("text/plain", textBody)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// gomail has no context support, so the dial-and-send runs in its own
	// goroutine and the handler observes the deadline.
	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("mail dispatch aborted: %w", ctx.Err())
	}
}

// mailerConfig holds SMTP configuration for sending emails.
type mailerConfig struct {
	Host        string        `env:"SMTP_HOST"`
	Port        int           `env:"SMTP_PORT"`
	Username    string        `env:"SMTP_USERNAME"`
	Password    string        `env:"SMTP_PASSWORD"`
	From        string        `env:"SMTP_FROM"`
	SendTimeout time.Duration `env:"SMTP_SEND_TIMEOUT"`
}

// newMailerConfig creates a mailerConfig instance from environment variables.
func newMailerConfig(logger *zerolog.Logger) *mailerConfig {
	cfg, err := env.ParseAs[mailerConfig]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	return &cfg
}

// validate checks if the Mailer configuration is complete.
func (c *mailerConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.Username == "" {
		return fmt.Errorf("missing SMTP_USERNAME environment variable")
	}
	if c.Password == "" {
		return fmt.Errorf("missing SMTP_PASSWORD environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}

	return nil
}
