package mail

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"workshop-tickets/internal/config"
)

// Mailer delivers rendered ticket mails over SMTP. It reports only
// success or failure; retries and bounce handling are the relay's
// problem.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func New(cfg config.EmailConfig) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.FromAddress,
	}
}

func (m *Mailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
