// Package mailer delivers transactional email over SMTP. Delivery is best
// effort everywhere it is used: callers log a failed send and move on.
package mailer

import (
	"fmt"
	"net/smtp"
	"strconv"

	"saazebharat/internal/config"
)

type Sender interface {
	Send(to, subject, htmlBody string) error
}

type Mailer struct {
	addr string
	host string
	from string
	auth smtp.Auth
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	m := &Mailer{
		addr: cfg.Host + ":" + strconv.Itoa(cfg.Port),
		host: cfg.Host,
		from: cfg.From,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m
}

// Send delivers a single HTML email.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	msg := "From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		htmlBody

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}
