package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// Sender delivers a single plain-text message.
type Sender interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Noop is the default sender when SMTP is not configured. Notifications are
// still recorded in the database; only the email leg is dropped.
type Noop struct{}

func (Noop) Send(ctx context.Context, from, to, subject, body string) error { return nil }

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	// UseTLS opens an implicit-TLS connection (port 465 style) instead of
	// relying on opportunistic STARTTLS.
	UseTLS bool
}

func NewSMTP(host string, port int, username, password string, useTLS bool) *SMTP {
	return &SMTP{Host: host, Port: port, Username: username, Password: password, UseTLS: useTLS}
}

func (s *SMTP) Send(ctx context.Context, from, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	if s.UseTLS {
		return s.sendTLS(addr, auth, from, to, msg.String())
	}
	return smtp.SendMail(addr, auth, from, []string{to}, []byte(msg.String()))
}

func (s *SMTP) sendTLS(addr string, auth smtp.Auth, from, to, msg string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.Host})
	if err != nil {
		return fmt.Errorf("smtp tls dial: %w", err)
	}
	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
