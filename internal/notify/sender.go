package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/obs"
)

// SMTPSender delivers mail over plain SMTP with optional auth.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Send implements common.EmailSender.
func (s SMTPSender) Send(to, subject, html string) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		html,
	}, "\r\n")
	if err := smtp.SendMail(addr, auth, s.From, []string{to}, []byte(msg)); err != nil {
		obs.ObserveEmailDelivery("error")
		return fmt.Errorf("smtp send: %w", err)
	}
	obs.ObserveEmailDelivery("ok")
	return nil
}

// LogSender writes mail to the log instead of delivering it. Used in
// development when no SMTP host is configured.
type LogSender struct{}

// Send implements common.EmailSender.
func (LogSender) Send(to, subject, _ string) error {
	log.Info().Str("to", to).Str("subject", subject).Msg("email suppressed (log sender)")
	obs.ObserveEmailDelivery("ok")
	return nil
}
