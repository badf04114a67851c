package infra

import (
	"errors"
	"fmt"
	"net/smtp"

	"github.com/isaqueitalo/restaurante-1.0/internal/config"

	"github.com/jordan-wright/email"
)

// ErrMailerDisabled is returned when SMTP_HOST is not configured.
var ErrMailerDisabled = errors.New("mailer: SMTP_HOST not configured")

// Mailer wraps SMTP configuration for sending emails with PDF attachments.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Send mails body to every recipient, attaching the file at attachmentPath
// when it is not empty.
func (m *Mailer) Send(to []string, subject, body, attachmentPath string) error {
	if m.host == "" {
		return ErrMailerDisabled
	}
	if len(to) == 0 {
		return errors.New("mailer: no recipients")
	}

	e := email.NewEmail()
	e.From = m.user
	e.To = to
	e.Subject = subject
	e.Text = []byte(body)

	if attachmentPath != "" {
		if _, err := e.AttachFile(attachmentPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
