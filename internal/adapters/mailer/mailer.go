// Package mailer delivers reset and verification links. The transport is a
// plain SMTP client behind a one-method interface; non-production
// environments bypass it entirely and the caller echoes the token instead.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/amida-tech/amida-auth-microservice/config"
)

type Mailer interface {
	Send(to, subject, text string) error
}

type smtpMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func New(cfg *config.Config) Mailer {
	var auth smtp.Auth
	if cfg.MailerUser != "" {
		auth = smtp.PlainAuth("", cfg.MailerUser, cfg.MailerPassword, cfg.MailerHost)
	}
	return &smtpMailer{
		addr: cfg.MailerHost + ":" + cfg.MailerPort,
		auth: auth,
		from: cfg.MailerFromAddress,
	}
}

func (m *smtpMailer) Send(to, subject, text string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		text,
	}, "\r\n")
	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg))
}

// GenerateLink appends the token as the final path segment of the
// caller-supplied page URL.
func GenerateLink(pageURL, token string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(pageURL, "/"), token)
}

// Domain extracts the bare host from a page URL for use in message text.
func Domain(pageURL string) string {
	trimmed := pageURL
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}
