package push

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/lumiere-studio/backend/internal/model"
)

// Client delivers one encrypted payload to one subscription.
// The returned status is the push service's HTTP status (0 if none was received).
type Client interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload []byte) (int, error)
}

// DeliveryError describes a push service rejection.
type DeliveryError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("push: %s rejected with status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Gone reports whether the push service says the subscription no longer exists.
func (e *DeliveryError) Gone() bool {
	return isGone(e.StatusCode)
}

func isGone(status int) bool {
	return status == http.StatusNotFound || status == http.StatusGone
}

// VAPIDConfig holds the application server keys and contact.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	// Subscriber is the contact email (with or without "mailto:") or an https URL.
	Subscriber string
	TTL        int
}

// WebPushClient implements Client with the Web Push protocol (RFC 8030/8291/8292).
type WebPushClient struct {
	cfg  VAPIDConfig
	http *http.Client
}

// NewWebPushClient creates a WebPushClient.
func NewWebPushClient(cfg VAPIDConfig, timeout time.Duration) *WebPushClient {
	cfg.Subscriber = strings.TrimPrefix(cfg.Subscriber, "mailto:")
	if cfg.TTL <= 0 {
		cfg.TTL = 3600
	}
	return &WebPushClient{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// PublicKey returns the VAPID public key browsers need to subscribe.
func (c *WebPushClient) PublicKey() string {
	return c.cfg.PublicKey
}

func (c *WebPushClient) Send(ctx context.Context, sub *model.PushSubscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      c.http,
		Subscriber:      c.cfg.Subscriber,
		VAPIDPublicKey:  c.cfg.PublicKey,
		VAPIDPrivateKey: c.cfg.PrivateKey,
		TTL:             c.cfg.TTL,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, &DeliveryError{
			Endpoint:   sub.Endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return resp.StatusCode, nil
}

// GenerateVAPIDKeys returns a new (public, private) VAPID keypair.
func GenerateVAPIDKeys() (string, string, error) {
	private, public, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", err
	}
	return public, private, nil
}
