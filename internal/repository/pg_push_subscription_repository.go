package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumiere-studio/backend/internal/model"
)

// PgPushSubscriptionRepository stores admin push subscriptions in the
// push_subscriptions table so every server instance sees the same set.
type PgPushSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewPgPushSubscriptionRepository creates a PgPushSubscriptionRepository backed by the given pool.
func NewPgPushSubscriptionRepository(pool *pgxpool.Pool) *PgPushSubscriptionRepository {
	return &PgPushSubscriptionRepository{pool: pool}
}

var _ PushSubscriptionRepository = (*PgPushSubscriptionRepository)(nil)

// Save upserts the admin's subscription. An endpoint belongs to one admin
// only, so any other admin row holding the same endpoint is dropped first.
func (r *PgPushSubscriptionRepository) Save(ctx context.Context, sub *model.PushSubscription) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = $1 AND admin_id <> $2`,
		sub.Endpoint, sub.AdminID,
	); err != nil {
		return fmt.Errorf("release endpoint: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO push_subscriptions (admin_id, endpoint, p256dh, auth)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (admin_id) DO UPDATE
		   SET endpoint = EXCLUDED.endpoint, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth, updated_at = NOW()
		 RETURNING created_at`,
		sub.AdminID, sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth,
	).Scan(&sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert push subscription: %w", err)
	}
	return tx.Commit(ctx)
}

// Delete removes the admin's subscription. Deleting a missing row is not an error.
func (r *PgPushSubscriptionRepository) Delete(ctx context.Context, adminID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE admin_id = $1`, adminID)
	return err
}

// DeleteByEndpoint removes whichever subscription owns endpoint.
func (r *PgPushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return err
}

// List returns all registered subscriptions.
func (r *PgPushSubscriptionRepository) List(ctx context.Context) ([]*model.PushSubscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT admin_id, endpoint, p256dh, auth, created_at FROM push_subscriptions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*model.PushSubscription
	for rows.Next() {
		var s model.PushSubscription
		if err := rows.Scan(&s.AdminID, &s.Endpoint, &s.Keys.P256dh, &s.Keys.Auth, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, &s)
	}
	return subs, rows.Err()
}
