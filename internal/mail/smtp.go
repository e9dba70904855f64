package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds SMTP server credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPTransport delivers mail over an SMTP session. The TCP connection is
// dialled here rather than by gomail's Dialer so that Close can tear it down
// without waiting for a QUIT round-trip to a stalled server.
type SMTPTransport struct {
	cfg    SMTPConfig
	dialer net.Dialer
}

// NewSMTPTransport creates an SMTPTransport.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

func (t *SMTPTransport) Name() string { return "smtp" }

// Dial connects, negotiates TLS and authenticates.
func (t *SMTPTransport) Dial(ctx context.Context) (Conn, error) {
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	raw, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}

	tlsConfig := &tls.Config{ServerName: t.cfg.Host}
	netConn := raw
	if t.cfg.Port == 465 {
		netConn = tls.Client(raw, tlsConfig)
	}

	client, err := smtp.NewClient(netConn, t.cfg.Host)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	if t.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				_ = raw.Close()
				return nil, fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if t.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)); err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	return &smtpConn{raw: raw, client: client}, nil
}

type smtpConn struct {
	raw    net.Conn
	client *smtp.Client
}

func (c *smtpConn) Send(ctx context.Context, msg *Message) (string, error) {
	if err := c.client.Mail(msg.From); err != nil {
		return "", fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := c.client.Rcpt(msg.To); err != nil {
		return "", fmt.Errorf("RCPT TO: %w", err)
	}
	w, err := c.client.Data()
	if err != nil {
		return "", fmt.Errorf("DATA: %w", err)
	}
	if _, err := composeMIME(msg).WriteTo(w); err != nil {
		return "", fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("end data: %w", err)
	}
	_ = c.client.Quit()
	return msg.ID, nil
}

// Close drops the TCP connection immediately.
func (c *smtpConn) Close() error {
	return c.raw.Close()
}

// composeMIME builds the multipart/alternative body with gomail.
func composeMIME(msg *Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.From, msg.FromName)
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	if msg.ID != "" {
		m.SetHeader("Message-ID", "<"+msg.ID+">")
	}
	m.SetDateHeader("Date", now())
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return m
}
