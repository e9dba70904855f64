package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lumiere-studio/backend/internal/model"
	"github.com/lumiere-studio/backend/internal/repository"
)

const (
	maxMessageLength = 5000
	maxFieldLength   = 200
)

// submissionServiceImpl is the production implementation of SubmissionService.
type submissionServiceImpl struct {
	repo          repository.SubmissionRepository
	mailer        Mailer
	notifier      AdminNotifier
	notifyTimeout time.Duration
	logger        *slog.Logger
}

// NewSubmissionService creates a SubmissionService. notifyTimeout bounds the
// whole notification phase (both emails and the push fan-out).
func NewSubmissionService(repo repository.SubmissionRepository, mailer Mailer, notifier AdminNotifier, notifyTimeout time.Duration, logger *slog.Logger) SubmissionService {
	if notifyTimeout <= 0 {
		notifyTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &submissionServiceImpl{
		repo:          repo,
		mailer:        mailer,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		logger:        logger.With("component", "submission"),
	}
}

// Submit runs validate -> persist -> notify. The notification phase starts
// only after the row is stored and its outcome never reaches the caller.
func (s *submissionServiceImpl) Submit(ctx context.Context, in model.SubmissionInput) (*model.Submission, error) {
	sub, err := newSubmission(in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		s.logger.Error("submission not stored", "email", sub.Email, "error", err)
		return nil, &PersistenceError{Err: err}
	}
	s.logger.Info("submission stored", "submission_id", sub.ID, "email", sub.Email)

	// The client may disconnect once the row exists; notifications still go out.
	s.notify(context.WithoutCancel(ctx), sub)
	return sub, nil
}

// notify sends both emails and the admin push concurrently and waits for all
// three, bounded by notifyTimeout.
func (s *submissionServiceImpl) notify(ctx context.Context, sub *model.Submission) {
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	start := time.Now()

	var (
		wg           sync.WaitGroup
		confirmation model.EmailResult
		admin        model.EmailResult
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		confirmation = s.mailer.SendUserConfirmation(ctx, sub)
	}()
	go func() {
		defer wg.Done()
		admin = s.mailer.SendAdminNotification(ctx, sub)
	}()
	go func() {
		defer wg.Done()
		s.notifier.NotifyAdmins(ctx, pushPayloadFor(sub))
	}()
	wg.Wait()

	s.logger.Info("submission notifications finished",
		"submission_id", sub.ID,
		"confirmation_sent", confirmation.Success,
		"confirmation_error", confirmation.Error,
		"admin_sent", admin.Success,
		"admin_error", admin.Error,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func pushPayloadFor(sub *model.Submission) model.PushPayload {
	body := sub.Name
	if sub.Company != "" {
		body += " (" + sub.Company + ")"
	}
	if sub.ProjectType != "" {
		body += ": " + sub.ProjectType
	}
	return model.PushPayload{
		Title: "Nouvelle demande de contact",
		Body:  body,
		Type:  "contact_submission",
		URL:   "/admin/submissions/" + sub.ID,
		Data: map[string]any{
			"submission_id": sub.ID,
			"email":         sub.Email,
		},
	}
}

// newSubmission trims and validates the form input.
func newSubmission(in model.SubmissionInput) (*model.Submission, error) {
	sub := &model.Submission{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		Message:     strings.TrimSpace(in.Message),
		Phone:       strings.TrimSpace(in.Phone),
		Company:     strings.TrimSpace(in.Company),
		ProjectType: strings.TrimSpace(in.ProjectType),
		Budget:      strings.TrimSpace(in.Budget),
		Timeline:    strings.TrimSpace(in.Timeline),
		Locale:      normalizeLocale(in.Locale),
		Status:      model.StatusNew,
		Priority:    model.PriorityMedium,
	}

	switch {
	case sub.Name == "":
		return nil, &ValidationError{Field: "name", Code: "name_required"}
	case sub.Email == "":
		return nil, &ValidationError{Field: "email", Code: "email_required"}
	case sub.Message == "":
		return nil, &ValidationError{Field: "message", Code: "message_required"}
	}

	addr, err := mail.ParseAddress(sub.Email)
	if err != nil || addr.Address != sub.Email {
		return nil, &ValidationError{Field: "email", Code: "invalid_email"}
	}
	if len([]rune(sub.Message)) > maxMessageLength {
		return nil, &ValidationError{Field: "message", Code: "message_too_long"}
	}
	for field, v := range map[string]string{
		"name": sub.Name, "phone": sub.Phone, "company": sub.Company,
		"project_type": sub.ProjectType, "budget": sub.Budget, "timeline": sub.Timeline,
	} {
		if len([]rune(v)) > maxFieldLength {
			return nil, &ValidationError{Field: field, Code: field + "_too_long"}
		}
	}
	return sub, nil
}

func normalizeLocale(l string) string {
	l = strings.ToLower(strings.TrimSpace(l))
	if len(l) > 2 {
		l = l[:2]
	}
	switch l {
	case "fr", "en", "ru":
		return l
	}
	return ""
}

// List returns submissions for the admin views.
func (s *submissionServiceImpl) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return s.repo.List(ctx, opts)
}

// Get returns one submission. Malformed ids are reported as not found.
func (s *submissionServiceImpl) Get(ctx context.Context, id string) (*model.Submission, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// UpdateStatus changes the lifecycle status. Setting "trash" soft-deletes.
func (s *submissionServiceImpl) UpdateStatus(ctx context.Context, id, status string) error {
	if !model.ValidStatus(status) {
		return &ValidationError{Field: "status", Code: "invalid_status"}
	}
	if !validID(id) {
		return repository.ErrNotFound
	}
	if status == model.StatusTrash {
		return s.repo.Trash(ctx, id)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update status of %s: %w", id, err)
	}
	return nil
}

// UpdatePriority changes the priority of an active submission.
func (s *submissionServiceImpl) UpdatePriority(ctx context.Context, id, priority string) error {
	if !model.ValidPriority(priority) {
		return &ValidationError{Field: "priority", Code: "invalid_priority"}
	}
	if !validID(id) {
		return repository.ErrNotFound
	}
	if err := s.repo.UpdatePriority(ctx, id, priority); err != nil {
		return fmt.Errorf("update priority of %s: %w", id, err)
	}
	return nil
}

// Trash soft-deletes a submission.
func (s *submissionServiceImpl) Trash(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	return s.repo.Trash(ctx, id)
}

// Restore moves a trashed submission back to the active view.
func (s *submissionServiceImpl) Restore(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	return s.repo.Restore(ctx, id)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
