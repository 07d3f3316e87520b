package email

import (
	"context"
	"strings"
	"testing"
)

type stubEmailConfig struct {
	enabled bool
	host    string
}

func (s stubEmailConfig) GetEmailEnabled() bool       { return s.enabled }
func (s stubEmailConfig) GetSMTPHost() string         { return s.host }
func (s stubEmailConfig) GetSMTPPort() int            { return 465 }
func (s stubEmailConfig) GetSMTPUsername() string     { return "" }
func (s stubEmailConfig) GetSMTPPassword() string     { return "" }
func (s stubEmailConfig) GetEmailFromName() string    { return "DIM Dashboard" }
func (s stubEmailConfig) GetEmailFromAddress() string { return "no-reply@dim.com" }

func TestRenderWelcome(t *testing.T) {
	html, err := renderWelcome(WelcomeEmail{
		ToEmail:        "ana@example.com",
		Name:           "Ana <script>",
		SetPasswordURL: "https://auth.example.com/reset?oobCode=abc",
		DashboardURL:   "https://dashboard.example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(html, "oobCode=abc") {
		t.Fatalf("expected reset link in body")
	}
	if !strings.Contains(html, "https://dashboard.example.com") {
		t.Fatalf("expected dashboard link in body")
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("expected name to be escaped")
	}
}

func TestNewSenderDisabledIsNoop(t *testing.T) {
	sender := NewSender(stubEmailConfig{enabled: false, host: "smtp.example.com"})
	if _, ok := sender.(NoopSender); !ok {
		t.Fatalf("expected NoopSender, got %T", sender)
	}
	if err := sender.SendWelcomeEmail(context.Background(), WelcomeEmail{ToEmail: "a@b.c"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := NewSender(stubEmailConfig{enabled: true, host: "smtp.example.com"}).(*SMTPSender); !ok {
		t.Fatalf("expected SMTPSender when enabled")
	}
}
