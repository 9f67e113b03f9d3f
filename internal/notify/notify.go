// Package notify delivers customer emails as a best-effort side effect.
// Senders never block request handling: messages go through a bounded
// dispatcher and failures are logged, not propagated.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"github.com/artetradicao/storefront/internal/config"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers one message synchronously. Implementations must honor the
// context deadline across the whole delivery, not just connection setup.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type smtpSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) Sender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.cfg.From, msg.To, msg.Subject, msg.Body)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("notify: failed to dial %s: %w", addr, err)
	}
	defer conn.Close()

	// The deadline must cover the whole SMTP conversation. A peer that
	// accepts the connection but never answers would otherwise block the
	// dispatcher worker forever.
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("notify: failed to set connection deadline: %w", err)
		}
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("notify: failed to open smtp session with %s: %w", addr, err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("notify: starttls with %s failed: %w", addr, err)
		}
	}
	if s.cfg.User != "" {
		auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("notify: smtp auth with %s failed: %w", addr, err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("notify: sender %s rejected: %w", s.cfg.From, err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("notify: recipient %s rejected: %w", msg.To, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("notify: data command failed: %w", err)
	}
	if _, err := w.Write([]byte(payload)); err != nil {
		return fmt.Errorf("notify: failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("notify: failed to finish message body: %w", err)
	}

	return client.Quit()
}
