// Package mail sends the transactional emails triggered by contact submissions.
//
// A Sender owns the timeout and retry policy; a Transport only knows how to
// open a connection and hand a message to the provider. Transports:
//
//	smtp   - direct SMTP session (STARTTLS or implicit TLS on 465)
//	resend - Resend HTTP API
//	log    - writes the message to the log and reports a synthetic id
package mail

import (
	"context"
	"fmt"
	"net/mail"
)

// Message is a single outbound email.
type Message struct {
	ID       string // Message-ID without angle brackets
	From     string
	FromName string
	To       string
	ReplyTo  string
	Subject  string
	HTML     string
	Text     string
}

// FromHeader renders From as an RFC 5322 address.
func (m *Message) FromHeader() string {
	return (&mail.Address{Name: m.FromName, Address: m.From}).String()
}

// Transport opens connections to a mail provider.
type Transport interface {
	Name() string
	Dial(ctx context.Context) (Conn, error)
}

// Conn is an open provider connection. Close must release the underlying
// resource promptly even while Send is blocked.
type Conn interface {
	Send(ctx context.Context, msg *Message) (string, error)
	Close() error
}

// NewTransport returns the transport selected by name.
func NewTransport(name string, smtp SMTPConfig, resendAPIKey string) (Transport, error) {
	switch name {
	case "smtp":
		return NewSMTPTransport(smtp), nil
	case "resend":
		if resendAPIKey == "" {
			return nil, fmt.Errorf("mail: resend transport requires RESEND_API_KEY")
		}
		return NewResendTransport(resendAPIKey), nil
	case "log", "":
		return NewLogTransport(nil), nil
	default:
		return nil, fmt.Errorf("mail: unknown transport %q", name)
	}
}
