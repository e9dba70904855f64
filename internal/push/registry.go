// Package push delivers Web Push notifications to admin browsers.
package push

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/lumiere-studio/backend/internal/model"
)

// ErrInvalidSubscription is returned when a subscription lacks an endpoint or keys.
var ErrInvalidSubscription = errors.New("push: invalid subscription")

// Store is the shared, persistent registry backing a Registry.
type Store interface {
	Save(ctx context.Context, sub *model.PushSubscription) error
	Delete(ctx context.Context, adminID string) error
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	List(ctx context.Context) ([]*model.PushSubscription, error)
}

// Registry tracks admin subscriptions. The store is the source of truth; the
// in-process map is a cache that is refreshed on every Snapshot and used
// only when the store cannot be read.
type Registry struct {
	store  Store
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*model.PushSubscription // admin id -> subscription
}

// NewRegistry creates a Registry backed by store.
func NewRegistry(store Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  store,
		logger: logger,
		cache:  make(map[string]*model.PushSubscription),
	}
}

// Subscribe registers (or replaces) the admin's browser subscription.
func (r *Registry) Subscribe(ctx context.Context, adminID string, sub model.PushSubscription) error {
	if adminID == "" || sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return ErrInvalidSubscription
	}
	sub.AdminID = adminID
	if err := r.store.Save(ctx, &sub); err != nil {
		return err
	}

	r.mu.Lock()
	for id, cached := range r.cache {
		if cached.Endpoint == sub.Endpoint && id != adminID {
			delete(r.cache, id)
		}
	}
	r.cache[adminID] = &sub
	r.mu.Unlock()
	return nil
}

// Unsubscribe removes the admin's subscription.
func (r *Registry) Unsubscribe(ctx context.Context, adminID string) error {
	if err := r.store.Delete(ctx, adminID); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.cache, adminID)
	r.mu.Unlock()
	return nil
}

// Prune removes the subscription that owns endpoint.
func (r *Registry) Prune(ctx context.Context, endpoint string) error {
	r.mu.Lock()
	for id, cached := range r.cache {
		if cached.Endpoint == endpoint {
			delete(r.cache, id)
		}
	}
	r.mu.Unlock()
	return r.store.DeleteByEndpoint(ctx, endpoint)
}

// Snapshot returns the current subscriptions, reloading them from the store.
// If the store fails the last cached set is returned.
func (r *Registry) Snapshot(ctx context.Context) []*model.PushSubscription {
	subs, err := r.store.List(ctx)
	if err != nil {
		r.logger.Warn("push store unavailable, using cached subscriptions", "error", err)
		return r.cached()
	}

	fresh := make(map[string]*model.PushSubscription, len(subs))
	for _, s := range subs {
		fresh[s.AdminID] = s
	}
	r.mu.Lock()
	r.cache = fresh
	r.mu.Unlock()
	return subs
}

// Len reports the number of cached subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Registry) cached() []*model.PushSubscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.PushSubscription, 0, len(r.cache))
	for _, s := range r.cache {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdminID < out[j].AdminID })
	return out
}
