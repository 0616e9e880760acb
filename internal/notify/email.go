// Package notify sends transactional email through the venue's SMTP
// relay.  Delivery is best-effort; failures are returned to the
// consumer, which logs and drops rather than blocking the queue.
package notify

import (
	"crypto/tls"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Mailer wraps the SMTP relay configuration.  A nil Mailer is valid
// and sends nothing, so environments without SMTP still consume the
// notification queue cleanly.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
	log  *zap.Logger
}

// NewMailer builds a Mailer.  An empty host disables outgoing mail
// (NewMailer returns nil).
func NewMailer(host string, port int, user, pass, from string, log *zap.Logger) *Mailer {
	if host == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from, log: log}
}

// Send delivers one plain-text message.
func (m *Mailer) Send(to, subject, body string) error {
	if m == nil {
		return nil
	}
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.user),
		mail.WithPassword(m.pass),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTLSConfig(&tls.Config{ServerName: m.host}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
