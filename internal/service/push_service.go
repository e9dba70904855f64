package service

import (
	"context"

	"github.com/lumiere-studio/backend/internal/model"
	"github.com/lumiere-studio/backend/internal/push"
)

// PushService manages admin browser subscriptions.
type PushService interface {
	Subscribe(ctx context.Context, adminID string, sub model.PushSubscription) error
	Unsubscribe(ctx context.Context, adminID string) error
	// PublicKey returns the VAPID public key, or "" when push is not configured.
	PublicKey() string
	// SendTest pushes a test notification to every subscribed admin.
	SendTest(ctx context.Context, adminID string) push.FanoutReport
}

type pushServiceImpl struct {
	notifier  *push.Notifier
	publicKey string
}

// NewPushService creates a PushService on top of notifier.
func NewPushService(notifier *push.Notifier, publicKey string) PushService {
	return &pushServiceImpl{notifier: notifier, publicKey: publicKey}
}

func (s *pushServiceImpl) Subscribe(ctx context.Context, adminID string, sub model.PushSubscription) error {
	return s.notifier.Registry().Subscribe(ctx, adminID, sub)
}

func (s *pushServiceImpl) Unsubscribe(ctx context.Context, adminID string) error {
	return s.notifier.Registry().Unsubscribe(ctx, adminID)
}

func (s *pushServiceImpl) PublicKey() string {
	return s.publicKey
}

func (s *pushServiceImpl) SendTest(ctx context.Context, adminID string) push.FanoutReport {
	return s.notifier.NotifyAdmins(ctx, model.PushPayload{
		Title: "Notification de test",
		Body:  "Les notifications push sont actives.",
		Type:  "test",
		Data:  map[string]any{"requested_by": adminID},
	})
}
