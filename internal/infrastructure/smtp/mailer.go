package smtp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"strings"
	"time"

	"github.com/auth-actions/internal/config"
	"github.com/auth-actions/internal/domain"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
)

// Mailer sends HTML emails.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// sendFunc matches gosmtp.SendMail so tests can capture the outgoing message.
type sendFunc func(addr string, a sasl.Client, from string, to []string, r io.Reader) error

type mailer struct {
	host     string
	port     string
	from     string
	fromName string
	username string
	password string
	send     sendFunc
}

// NewMailer builds an SMTP mailer authenticating with the Gmail account and
// application password from cfg. Credentials are checked on every send, not here.
func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		fromName: cfg.AppName,
		username: cfg.GmailUser,
		password: cfg.GmailAppPassword,
		send:     gosmtp.SendMail,
	}
}

func (m *mailer) SendEmail(ctx context.Context, to, subject, html string) error {
	if m.username == "" || m.password == "" {
		slog.Error("missing smtp credentials",
			"user_present", m.username != "", "password_present", m.password != "")
		return domain.ErrMissingMailCreds
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	from := m.from
	if from == "" {
		from = m.username
	}

	msg := buildMessage(m.fromName, from, to, subject, html, time.Now())
	auth := sasl.NewPlainClient("", m.username, m.password)
	addr := net.JoinHostPort(m.host, m.port)
	if err := m.send(addr, auth, from, []string{to}, strings.NewReader(msg)); err != nil {
		slog.Error("smtp send failed", "to", to, "err", err)
		return fmt.Errorf("send email: %w", err)
	}
	slog.Info("email sent", "to", to, "subject", subject)
	return nil
}

// buildMessage renders an RFC 5322 message with a single text/html part.
func buildMessage(fromName, from, to, subject, html string, now time.Time) string {
	var sb strings.Builder
	if fromName != "" {
		fmt.Fprintf(&sb, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", fromName), from)
	} else {
		fmt.Fprintf(&sb, "From: %s\r\n", from)
	}
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&sb, "Date: %s\r\n", now.Format(time.RFC1123Z))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(html)
	return sb.String()
}
