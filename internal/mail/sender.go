package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lumiere-studio/backend/internal/model"
)

// ErrTimeout is reported when an attempt exceeds the configured timeout.
var ErrTimeout = errors.New("mail: send timed out")

var now = time.Now

// Options configures a Sender.
type Options struct {
	From          string
	FromName      string
	AdminEmail    string
	Timeout       time.Duration // per attempt
	MaxAttempts   int           // 1 disables retries
	RetryBackoff  time.Duration
	DefaultLocale string
	SiteURL       string
	Logger        *slog.Logger
}

// Sender delivers transactional email with a bounded time per attempt.
// Send never returns an error value or panics; every outcome is an EmailResult.
type Sender struct {
	transport Transport
	opts      Options
	logger    *slog.Logger
}

// NewSender creates a Sender on top of transport.
func NewSender(transport Transport, opts Options) *Sender {
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.DefaultLocale == "" {
		opts.DefaultLocale = "fr"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{transport: transport, opts: opts, logger: logger.With("component", "mail", "transport", transport.Name())}
}

// Send delivers msg, retrying up to MaxAttempts times. From and Message-ID
// are filled in from the sender configuration when empty.
func (s *Sender) Send(ctx context.Context, msg Message) model.EmailResult {
	start := now()
	if msg.From == "" {
		msg.From = s.opts.From
		msg.FromName = s.opts.FromName
	}
	if msg.ID == "" {
		msg.ID = newMessageID(msg.From)
	}

	var (
		lastErr  error
		attempts int
	)
	for attempts = 1; attempts <= s.opts.MaxAttempts; attempts++ {
		id, err := s.attempt(ctx, &msg)
		if err == nil {
			res := model.EmailResult{
				Success:   true,
				MessageID: id,
				Details:   s.details(start, attempts, false),
			}
			s.logger.Info("email sent",
				"to", msg.To, "subject", msg.Subject, "message_id", id,
				"attempts", attempts, "duration_ms", res.Details.DurationMs)
			return res
		}
		lastErr = err
		if attempts == s.opts.MaxAttempts || ctx.Err() != nil {
			break
		}
		s.logger.Warn("email attempt failed, retrying",
			"to", msg.To, "attempt", attempts, "error", err, "backoff", s.opts.RetryBackoff)
		if !sleep(ctx, s.opts.RetryBackoff) {
			break
		}
	}
	res := model.EmailResult{
		Success: false,
		Error:   lastErr.Error(),
		Details: s.details(start, attempts, errors.Is(lastErr, ErrTimeout)),
	}
	s.logger.Error("email failed",
		"to", msg.To, "subject", msg.Subject, "attempts", attempts,
		"duration_ms", res.Details.DurationMs, "timed_out", res.Details.TimedOut, "error", lastErr)
	return res
}

type sendOutcome struct {
	id  string
	err error
}

// attempt runs one dial+send under the per-attempt timeout. On expiry the
// connection is closed before returning, whatever the transport is doing.
func (s *Sender) attempt(parent context.Context, msg *Message) (string, error) {
	ctx, cancel := context.WithTimeout(parent, s.opts.Timeout)
	defer cancel()

	h := &connHandle{}
	done := make(chan sendOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.release()
				done <- sendOutcome{err: fmt.Errorf("mail: transport panic: %v", r)}
			}
		}()
		conn, err := s.transport.Dial(ctx)
		if err != nil {
			done <- sendOutcome{err: fmt.Errorf("dial %s: %w", s.transport.Name(), err)}
			return
		}
		if !h.attach(conn) {
			done <- sendOutcome{err: ErrTimeout}
			return
		}
		id, err := conn.Send(ctx, msg)
		h.release()
		done <- sendOutcome{id: id, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
			return "", fmt.Errorf("%w after %s: %v", ErrTimeout, s.opts.Timeout, out.err)
		}
		return out.id, out.err
	case <-ctx.Done():
		h.release()
		if parent.Err() != nil {
			return "", fmt.Errorf("mail: send cancelled: %w", parent.Err())
		}
		return "", fmt.Errorf("%w after %s", ErrTimeout, s.opts.Timeout)
	}
}

func (s *Sender) details(start time.Time, attempts int, timedOut bool) model.EmailDetails {
	return model.EmailDetails{
		Method:     s.transport.Name(),
		DurationMs: now().Sub(start).Milliseconds(),
		Attempts:   attempts,
		TimedOut:   timedOut,
	}
}

// connHandle makes sure a connection is closed exactly once, whether by the
// sending goroutine or by the timeout path.
type connHandle struct {
	mu       sync.Mutex
	conn     Conn
	released bool
}

// attach records conn. If the handle was already released the connection is
// closed immediately and attach reports false.
func (h *connHandle) attach(conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		_ = conn.Close()
		return false
	}
	h.conn = conn
	return true
}

func (h *connHandle) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	if h.conn != nil {
		_ = h.conn.Close()
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func newMessageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return uuid.NewString() + "@" + domain
}
