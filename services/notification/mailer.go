package notification

import (
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers one email, optionally carrying an ICS calendar attachment.
type Mailer interface {
	Send(to, subject, body string, ics []byte) error
}

// SMTPConfig holds mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through a plain-auth SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer builds a mailer for the given relay.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp mailer initialization error: host and from address are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}, nil
}

// Send delivers one message. When ics is non-nil it is attached as a
// text/calendar invite.
func (m *SMTPMailer) Send(to, subject, body string, ics []byte) error {
	var msg strings.Builder
	boundary := "schedly-mail-boundary"

	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")

	if ics == nil {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		msg.WriteString(body)
	} else {
		fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)

		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		msg.WriteString(body)
		msg.WriteString("\r\n")

		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		msg.WriteString("Content-Type: text/calendar; method=REQUEST; charset=UTF-8\r\n")
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString("Content-Disposition: attachment; filename=invite.ics\r\n\r\n")
		msg.WriteString(base64.StdEncoding.EncodeToString(ics))
		msg.WriteString("\r\n")

		fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to, err)
	}
	return nil
}
