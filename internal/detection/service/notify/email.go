package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPEmail delivers notifications through a plain SMTP relay.
type SMTPEmail struct {
	addr string // host:port
	from string
}

func NewSMTPEmail(addr, from string) *SMTPEmail {
	return &SMTPEmail{addr: addr, from: from}
}

func (s *SMTPEmail) Send(_ context.Context, recipients []string, subject, body string) error {
	if s.addr == "" {
		return fmt.Errorf("smtp relay not configured")
	}
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + strings.Join(recipients, ", "),
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(s.addr, nil, s.from, recipients, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
