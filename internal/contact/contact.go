// Package contact mails contact form submissions to the site owner.
package contact

import (
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/smtp"
	"strings"
)

// ErrNotConfigured is returned when no SMTP credentials are set.
var ErrNotConfigured = errors.New("SMTP credentials not configured")

// Message is one form submission.
type Message struct {
	Name  string
	Email string
	Body  string
}

// Validate checks the fields a visitor must fill in.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("name is required")
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return fmt.Errorf("invalid email address %q", m.Email)
	}
	if strings.TrimSpace(m.Body) == "" {
		return errors.New("message is required")
	}
	return nil
}

// SendFunc has the signature of smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers messages over SMTP.
type Mailer struct {
	Host string
	Port string
	User string
	Pass string
	To   string // defaults to User

	Send   SendFunc
	Logger *slog.Logger
}

// Deliver formats m and hands it to the SMTP server.
func (ml *Mailer) Deliver(m Message) error {
	if ml.User == "" || ml.Pass == "" {
		return ErrNotConfigured
	}
	if err := m.Validate(); err != nil {
		return err
	}
	to := ml.To
	if to == "" {
		to = ml.User
	}
	send := ml.Send
	if send == nil {
		send = smtp.SendMail
	}
	log := ml.Logger
	if log == nil {
		log = slog.Default()
	}

	auth := smtp.PlainAuth("", ml.User, ml.Pass, ml.Host)
	if err := send(ml.Host+":"+ml.Port, auth, ml.User, []string{to}, compose(ml.User, to, m)); err != nil {
		log.Error("sending contact email failed", "error", err)
		return fmt.Errorf("sending mail: %w", err)
	}
	log.Info("contact email sent", "from", m.Email)
	return nil
}

func compose(from, to string, m Message) []byte {
	// Header values come from the form; keep them on one line.
	name := oneLine(m.Name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, name, m.Email, m.Body)

	return []byte("To: " + to + "\r\n" +
		"Subject: Portfolio Contact: " + name + "\r\n" +
		"From: " + from + "\r\n" +
		"Reply-To: " + oneLine(m.Email) + "\r\n" +
		"\r\n" +
		body + "\r\n")
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(strings.TrimSpace(s))
}
