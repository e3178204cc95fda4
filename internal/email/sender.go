package email

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type Config struct {
	SMTPHost  string
	SMTPPort  int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// Sender delivers transactional mail. The reconciler uses it best-effort:
// a delivery failure is logged, never propagated into payment state.
type Sender interface {
	SendPaymentCompleted(to, name, amount, transactionID, propertyTitle string) error
	SendSubscriptionExtended(to, name string, expires time.Time) error
}

type GomailSender struct {
	cfg    Config
	dialer *gomail.Dialer
}

func NewGomailSender(cfg Config) *GomailSender {
	return &GomailSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password),
	}
}

func (s *GomailSender) SendPaymentCompleted(to, name, amount, transactionID, propertyTitle string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.FromEmail, s.cfg.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Payment received")

	body := fmt.Sprintf(
		"Hello %s,\n\nYour payment of %s has been received.\nTransaction: %s\n",
		name, amount, transactionID,
	)
	if propertyTitle != "" {
		body += fmt.Sprintf("Property: %s\n", propertyTitle)
	}
	body += "\nThank you."
	m.SetBody("text/plain", body)

	return s.dialer.DialAndSend(m)
}

func (s *GomailSender) SendSubscriptionExtended(to, name string, expires time.Time) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.FromEmail, s.cfg.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Subscription extended")

	body := fmt.Sprintf(
		"Hello %s,\n\nYour agent subscription has been extended.\nNew expiry date: %s\n\nThank you.",
		name, expires.Format("2006-01-02"),
	)
	m.SetBody("text/plain", body)

	return s.dialer.DialAndSend(m)
}

// NoopSender is wired when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendPaymentCompleted(to, name, amount, transactionID, propertyTitle string) error {
	return nil
}

func (NoopSender) SendSubscriptionExtended(to, name string, expires time.Time) error {
	return nil
}
