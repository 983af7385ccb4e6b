package email

import (
	"context"
	"fmt"

	"clinichealth-notifier/internal/config"

	"gopkg.in/gomail.v2"
)

// dialSender is the part of gomail.Dialer the service needs.
type dialSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailService struct {
	from   string
	dialer dialSender
}

// NewEmailService builds the SMTP channel authenticated with the clinic
// account from cfg.
func NewEmailService(cfg *config.Config) (*EmailService, error) {
	if cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
		return nil, fmt.Errorf("SMTP credentials not configured")
	}

	dialer := gomail.NewDialer(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUsername,
		cfg.SMTPPassword,
	)

	return &EmailService{
		from:   fmt.Sprintf("%s <%s>", cfg.SMTPFromName, cfg.SMTPFromEmail),
		dialer: dialer,
	}, nil
}

// Send delivers one HTML message. gomail has no context support; ctx is only
// checked before dialing.
func (s *EmailService) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
