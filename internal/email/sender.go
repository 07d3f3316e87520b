// Package email renders and delivers transactional mail.
package email

import (
	"context"

	"dim_dashboard_backend/platform/config"
)

// WelcomeEmail carries what the onboarding mail shows.
type WelcomeEmail struct {
	ToEmail        string
	Name           string
	SetPasswordURL string
	DashboardURL   string
}

type Sender interface {
	SendWelcomeEmail(ctx context.Context, mail WelcomeEmail) error
}

type NoopSender struct{}

func (NoopSender) SendWelcomeEmail(context.Context, WelcomeEmail) error {
	return nil
}

// NewSender returns an SMTP sender when email is enabled, a no-op otherwise.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
