package service

import (
	"context"

	"github.com/lumiere-studio/backend/internal/model"
	"github.com/lumiere-studio/backend/internal/push"
)

// SubmissionService is the contact pipeline plus the admin operations on
// stored submissions.
type SubmissionService interface {
	// Submit validates and stores a contact request, then notifies the
	// submitter and the admins. Only *ValidationError and *PersistenceError
	// are returned; notification failures are logged.
	Submit(ctx context.Context, in model.SubmissionInput) (*model.Submission, error)

	List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error)
	Get(ctx context.Context, id string) (*model.Submission, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdatePriority(ctx context.Context, id, priority string) error
	Trash(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

// Mailer sends the two transactional emails of a submission.
type Mailer interface {
	SendUserConfirmation(ctx context.Context, sub *model.Submission) model.EmailResult
	SendAdminNotification(ctx context.Context, sub *model.Submission) model.EmailResult
}

// AdminNotifier pushes a notification to every subscribed admin browser.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, payload model.PushPayload) push.FanoutReport
}
