package mail

import (
	"context"

	"github.com/resend/resend-go/v2"
)

// ResendTransport delivers mail through the Resend HTTP API.
type ResendTransport struct {
	client *resend.Client
}

// NewResendTransport creates a ResendTransport authenticated with apiKey.
func NewResendTransport(apiKey string) *ResendTransport {
	return &ResendTransport{client: resend.NewClient(apiKey)}
}

func (t *ResendTransport) Name() string { return "resend" }

// Dial is free: each Send is an independent HTTPS request bound to ctx.
func (t *ResendTransport) Dial(ctx context.Context) (Conn, error) {
	return &resendConn{client: t.client}, nil
}

type resendConn struct {
	client *resend.Client
}

func (c *resendConn) Send(ctx context.Context, msg *Message) (string, error) {
	resp, err := c.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.FromHeader(),
		To:      []string{msg.To},
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		Headers: map[string]string{"Message-ID": "<" + msg.ID + ">"},
	})
	if err != nil {
		return "", err
	}
	return resp.Id, nil
}

// Close is a no-op; cancelling the request context aborts in-flight calls.
func (c *resendConn) Close() error { return nil }
