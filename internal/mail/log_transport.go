package mail

import (
	"context"
	"log/slog"
)

// LogTransport performs no delivery. It logs each message and reports it as
// accepted, for local development and demos.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a LogTransport. A nil logger means slog.Default().
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Name() string { return "log" }

func (t *LogTransport) Dial(ctx context.Context) (Conn, error) {
	return &logConn{logger: t.logger}, nil
}

type logConn struct {
	logger *slog.Logger
}

func (c *logConn) Send(ctx context.Context, msg *Message) (string, error) {
	c.logger.InfoContext(ctx, "mail not delivered (log transport)",
		"message_id", msg.ID,
		"to", msg.To,
		"subject", msg.Subject,
		"text_bytes", len(msg.Text),
		"html_bytes", len(msg.HTML),
	)
	return msg.ID, nil
}

func (c *logConn) Close() error { return nil }
