package repository

import (
	"context"

	"github.com/lumiere-studio/backend/internal/model"
)

// DB は DB 接続の生存確認を行うインターフェース
type DB interface {
	Ping(ctx context.Context) error
}

// SubmissionRepository persists contact submissions.
// Rows are never hard-deleted; Trash only sets deleted_at.
type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.Submission) error
	Get(ctx context.Context, id string) (*model.Submission, error)
	List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdatePriority(ctx context.Context, id, priority string) error
	Trash(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

// PushSubscriptionRepository is the shared registry of admin browser push
// subscriptions, keyed by admin id. One subscription per admin.
type PushSubscriptionRepository interface {
	Save(ctx context.Context, sub *model.PushSubscription) error
	Delete(ctx context.Context, adminID string) error
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	List(ctx context.Context) ([]*model.PushSubscription, error)
}
