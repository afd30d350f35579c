package resendinfra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/auth-actions/internal/config"
	"github.com/auth-actions/internal/domain"
	"github.com/resend/resend-go/v3"
)

// emailSender is the part of the Resend emails service the mailer uses.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Mailer delivers HTML emails through the Resend API.
type Mailer struct {
	emails emailSender
	from   string
}

// NewMailer returns a Resend-backed mailer. A missing API key or sender address
// is reported on every send as a configuration error.
func NewMailer(cfg *config.Config) *Mailer {
	m := &Mailer{from: cfg.SMTPFrom}
	if cfg.SMTPFrom != "" && cfg.AppName != "" {
		m.from = fmt.Sprintf("%s <%s>", cfg.AppName, cfg.SMTPFrom)
	}
	if cfg.ResendAPIKey != "" {
		m.emails = resend.NewClient(cfg.ResendAPIKey).Emails
	}
	return m
}

func (m *Mailer) SendEmail(ctx context.Context, to, subject, html string) error {
	if m.emails == nil || m.from == "" {
		slog.Error("missing resend configuration", "api_key_present", m.emails != nil, "from_present", m.from != "")
		return domain.ErrMissingMailCreds
	}
	sent, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		slog.Error("resend send failed", "to", to, "err", err)
		return fmt.Errorf("send email: %w", err)
	}
	slog.Info("email sent", "to", to, "subject", subject, "resend_id", sent.Id)
	return nil
}
