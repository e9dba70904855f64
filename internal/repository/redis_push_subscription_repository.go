package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/lumiere-studio/backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// DefaultPushSubscriptionKey is the redis hash holding admin_id -> subscription JSON.
const DefaultPushSubscriptionKey = "push:subscriptions"

// RedisPushSubscriptionRepository keeps push subscriptions in a single redis
// hash. Used when deployments run without Postgres access from every instance.
type RedisPushSubscriptionRepository struct {
	client *redis.Client
	key    string
}

// NewRedisPushSubscriptionRepository creates a repository on the given client.
// An empty key falls back to DefaultPushSubscriptionKey.
func NewRedisPushSubscriptionRepository(client *redis.Client, key string) *RedisPushSubscriptionRepository {
	if key == "" {
		key = DefaultPushSubscriptionKey
	}
	return &RedisPushSubscriptionRepository{client: client, key: key}
}

var _ PushSubscriptionRepository = (*RedisPushSubscriptionRepository)(nil)

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Save stores the admin's subscription, releasing the endpoint from any other admin.
func (r *RedisPushSubscriptionRepository) Save(ctx context.Context, sub *model.PushSubscription) error {
	if err := r.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
		return err
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.key, sub.AdminID, data).Err()
}

// Delete removes the admin's subscription.
func (r *RedisPushSubscriptionRepository) Delete(ctx context.Context, adminID string) error {
	return r.client.HDel(ctx, r.key, adminID).Err()
}

// DeleteByEndpoint removes whichever subscription owns endpoint.
func (r *RedisPushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	subs, err := r.List(ctx)
	if err != nil {
		return err
	}
	var owners []string
	for _, s := range subs {
		if s.Endpoint == endpoint {
			owners = append(owners, s.AdminID)
		}
	}
	if len(owners) == 0 {
		return nil
	}
	return r.client.HDel(ctx, r.key, owners...).Err()
}

// List returns all subscriptions, oldest first. Undecodable entries are skipped.
func (r *RedisPushSubscriptionRepository) List(ctx context.Context) ([]*model.PushSubscription, error) {
	entries, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	subs := decodeSubscriptions(entries)
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.Before(subs[j].CreatedAt) })
	return subs, nil
}

func decodeSubscriptions(entries map[string]string) []*model.PushSubscription {
	subs := make([]*model.PushSubscription, 0, len(entries))
	for adminID, raw := range entries {
		var s model.PushSubscription
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			continue
		}
		s.AdminID = adminID
		subs = append(subs, &s)
	}
	return subs
}
