package config

import (
	"crypto/tls"
	"errors"
	"os"
	"strconv"
	"time"

	mail "github.com/go-mail/mail/v2"
)

// ErrMailerNotConfigured is returned when SMTP_HOST or SMTP_FROM is missing.
var ErrMailerNotConfigured = errors.New("smtp not configured (SMTP_HOST/SMTP_FROM)")

// Mailer sends HTML mail through an SMTP relay.
type Mailer struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string // e.g. "Formdrop <no-reply@your.org>"
	SkipTLSVerify bool
	Timeout       time.Duration
}

// LoadMailer reads SMTP_* variables from the environment.
func LoadMailer() *Mailer {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}
	return &Mailer{
		Host:          os.Getenv("SMTP_HOST"),
		Port:          port,
		User:          os.Getenv("SMTP_USER"),
		Pass:          os.Getenv("SMTP_PASS"),
		From:          os.Getenv("SMTP_FROM"),
		SkipTLSVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1",
		Timeout:       10 * time.Second,
	}
}

// Configured reports whether the mailer can send at all.
func (m *Mailer) Configured() bool {
	return m != nil && m.Host != "" && m.From != ""
}

// SendMail delivers one HTML message.
func (m *Mailer) SendMail(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if !m.Configured() {
		return ErrMailerNotConfigured
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	d := mail.NewDialer(m.Host, m.Port, m.User, m.Pass)
	d.Timeout = m.Timeout

	// Relays on 587 must upgrade with STARTTLS.
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         m.Host,
		InsecureSkipVerify: m.SkipTLSVerify, // dev only
	}

	return d.DialAndSend(msg)
}
