package push

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lumiere-studio/backend/internal/model"
	"golang.org/x/sync/errgroup"
)

// FanoutReport summarises one NotifyAdmins call.
type FanoutReport struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Pruned    int `json:"pruned"`
	Failed    int `json:"failed"`
}

// Notifier broadcasts a payload to every registered admin subscription.
type Notifier struct {
	registry    *Registry
	client      Client
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// NewNotifier creates a Notifier. A nil client disables delivery: NotifyAdmins
// then only logs.
func NewNotifier(registry *Registry, client Client, concurrency int, timeout time.Duration, logger *slog.Logger) *Notifier {
	if concurrency < 1 {
		concurrency = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		registry:    registry,
		client:      client,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      logger.With("component", "push"),
	}
}

// Registry returns the subscription registry the notifier fans out over.
func (n *Notifier) Registry() *Registry {
	return n.registry
}

// NotifyAdmins sends payload to all subscriptions. Each subscriber is
// independent: failures are logged and counted, and subscriptions the push
// service reports as gone (404/410) are pruned.
func (n *Notifier) NotifyAdmins(ctx context.Context, payload model.PushPayload) FanoutReport {
	var report FanoutReport
	if n.client == nil {
		n.logger.Info("push disabled, notification skipped", "type", payload.Type)
		return report
	}

	subs := n.registry.Snapshot(ctx)
	if len(subs) == 0 {
		n.logger.Info("no admin push subscriptions, nothing to send", "type", payload.Type)
		return report
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("encode push payload", "error", err)
		return report
	}

	var mu sync.Mutex
	record := func(f func(r *FanoutReport)) {
		mu.Lock()
		f(&report)
		mu.Unlock()
	}

	g := new(errgroup.Group)
	g.SetLimit(n.concurrency)
	for _, sub := range subs {
		g.Go(func() error {
			record(func(r *FanoutReport) { r.Attempted++ })
			status, err := n.deliver(ctx, sub, body)
			switch {
			case err == nil:
				record(func(r *FanoutReport) { r.Delivered++ })
			case isGone(status):
				if perr := n.registry.Prune(ctx, sub.Endpoint); perr != nil {
					n.logger.Error("prune push subscription", "admin_id", sub.AdminID, "error", perr)
				}
				n.logger.Info("push subscription gone, removed", "admin_id", sub.AdminID, "status", status)
				record(func(r *FanoutReport) { r.Pruned++ })
			default:
				n.logger.Warn("push delivery failed", "admin_id", sub.AdminID, "status", status, "error", err)
				record(func(r *FanoutReport) { r.Failed++ })
			}
			return nil
		})
	}
	_ = g.Wait()

	n.logger.Info("push fan-out finished",
		"type", payload.Type,
		"attempted", report.Attempted,
		"delivered", report.Delivered,
		"pruned", report.Pruned,
		"failed", report.Failed,
	)
	return report
}

func (n *Notifier) deliver(ctx context.Context, sub *model.PushSubscription, body []byte) (status int, err error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("push: client panic")
		}
	}()
	return n.client.Send(ctx, sub, body)
}
