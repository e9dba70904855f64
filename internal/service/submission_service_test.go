package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lumiere-studio/backend/internal/model"
	"github.com/lumiere-studio/backend/internal/push"
	"github.com/lumiere-studio/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// mocks
// ---------------------------------------------------------------------------

type mockSubmissionRepository struct {
	createFunc         func(ctx context.Context, sub *model.Submission) error
	getFunc            func(ctx context.Context, id string) (*model.Submission, error)
	listFunc           func(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error)
	updateStatusFunc   func(ctx context.Context, id, status string) error
	updatePriorityFunc func(ctx context.Context, id, priority string) error
	trashFunc          func(ctx context.Context, id string) error
	restoreFunc        func(ctx context.Context, id string) error

	creates int
}

func (m *mockSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	m.creates++
	if m.createFunc != nil {
		return m.createFunc(ctx, sub)
	}
	sub.ID = "9b2f6c1e-5a4d-4c3b-8e7f-1a2b3c4d5e6f"
	sub.CreatedAt = time.Now()
	return nil
}

func (m *mockSubmissionRepository) Get(ctx context.Context, id string) (*model.Submission, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &model.Submission{ID: id}, nil
}

func (m *mockSubmissionRepository) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, opts)
	}
	return nil, nil
}

func (m *mockSubmissionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockSubmissionRepository) UpdatePriority(ctx context.Context, id, priority string) error {
	if m.updatePriorityFunc != nil {
		return m.updatePriorityFunc(ctx, id, priority)
	}
	return nil
}

func (m *mockSubmissionRepository) Trash(ctx context.Context, id string) error {
	if m.trashFunc != nil {
		return m.trashFunc(ctx, id)
	}
	return nil
}

func (m *mockSubmissionRepository) Restore(ctx context.Context, id string) error {
	if m.restoreFunc != nil {
		return m.restoreFunc(ctx, id)
	}
	return nil
}

type mockMailer struct {
	confirmFunc func(ctx context.Context, sub *model.Submission) model.EmailResult
	adminFunc   func(ctx context.Context, sub *model.Submission) model.EmailResult

	mu           sync.Mutex
	confirmedTo  []string
	adminCalls   int
	ctxCancelled bool
}

func (m *mockMailer) SendUserConfirmation(ctx context.Context, sub *model.Submission) model.EmailResult {
	m.mu.Lock()
	m.confirmedTo = append(m.confirmedTo, sub.Email)
	if ctx.Err() != nil {
		m.ctxCancelled = true
	}
	m.mu.Unlock()
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, sub)
	}
	return model.EmailResult{Success: true, MessageID: "confirm-1"}
}

func (m *mockMailer) SendAdminNotification(ctx context.Context, sub *model.Submission) model.EmailResult {
	m.mu.Lock()
	m.adminCalls++
	m.mu.Unlock()
	if m.adminFunc != nil {
		return m.adminFunc(ctx, sub)
	}
	return model.EmailResult{Success: true, MessageID: "admin-1"}
}

func (m *mockMailer) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.confirmedTo) + m.adminCalls
}

type mockNotifier struct {
	mu       sync.Mutex
	payloads []model.PushPayload
}

func (m *mockNotifier) NotifyAdmins(ctx context.Context, payload model.PushPayload) push.FanoutReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return push.FanoutReport{Attempted: 1, Delivered: 1}
}

func (m *mockNotifier) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validInput() model.SubmissionInput {
	return model.SubmissionInput{Name: "Jane Doe", Email: "jane@example.com", Message: "Need a quote"}
}

// ---------------------------------------------------------------------------
// Submit
// ---------------------------------------------------------------------------

func TestSubmissionService_Submit_PersistsAndNotifies(t *testing.T) {
	var saved *model.Submission
	repo := &mockSubmissionRepository{}
	repo.createFunc = func(ctx context.Context, sub *model.Submission) error {
		saved = sub
		sub.ID = "9b2f6c1e-5a4d-4c3b-8e7f-1a2b3c4d5e6f"
		return nil
	}
	mailer := &mockMailer{}
	notifier := &mockNotifier{}
	svc := NewSubmissionService(repo, mailer, notifier, time.Second, quietLogger())

	sub, err := svc.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.creates != 1 {
		t.Errorf("expected exactly one Create, got %d", repo.creates)
	}
	if saved.Status != model.StatusNew {
		t.Errorf("expected status=new, got %q", saved.Status)
	}
	if saved.Priority != model.PriorityMedium {
		t.Errorf("expected priority=medium, got %q", saved.Priority)
	}
	if saved.Name != "Jane Doe" || saved.Email != "jane@example.com" || saved.Message != "Need a quote" {
		t.Errorf("fields not persisted as given: %+v", saved)
	}
	if sub.ID == "" {
		t.Error("expected generated id on returned submission")
	}
	if len(mailer.confirmedTo) != 1 || mailer.confirmedTo[0] != "jane@example.com" {
		t.Errorf("expected confirmation to jane@example.com, got %v", mailer.confirmedTo)
	}
	if mailer.adminCalls != 1 {
		t.Errorf("expected one admin notification, got %d", mailer.adminCalls)
	}
	if notifier.calls() != 1 {
		t.Fatalf("expected one push fan-out, got %d", notifier.calls())
	}
	if notifier.payloads[0].Data["submission_id"] != sub.ID {
		t.Errorf("push payload should reference the stored submission, got %v", notifier.payloads[0].Data)
	}
}

func TestSubmissionService_Submit_ValidationFailuresHaveNoSideEffects(t *testing.T) {
	cases := []struct {
		name string
		in   model.SubmissionInput
		code string
	}{
		{"missing name", model.SubmissionInput{Email: "a@b.com", Message: "hi"}, "name_required"},
		{"blank name", model.SubmissionInput{Name: "   ", Email: "a@b.com", Message: "hi"}, "name_required"},
		{"missing email", model.SubmissionInput{Name: "A", Message: "hi"}, "email_required"},
		{"missing message", model.SubmissionInput{Name: "A", Email: "a@b.com"}, "message_required"},
		{"bad email", model.SubmissionInput{Name: "A", Email: "not-an-email", Message: "hi"}, "invalid_email"},
		{"display-name email", model.SubmissionInput{Name: "A", Email: "Bob <a@b.com>", Message: "hi"}, "invalid_email"},
		{"message too long", model.SubmissionInput{Name: "A", Email: "a@b.com", Message: strings.Repeat("x", 5001)}, "message_too_long"},
		{"company too long", model.SubmissionInput{Name: "A", Email: "a@b.com", Message: "hi", Company: strings.Repeat("c", 201)}, "company_too_long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockSubmissionRepository{}
			mailer := &mockMailer{}
			notifier := &mockNotifier{}
			svc := NewSubmissionService(repo, mailer, notifier, time.Second, quietLogger())

			_, err := svc.Submit(context.Background(), tc.in)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Code != tc.code {
				t.Errorf("expected code %q, got %q", tc.code, verr.Code)
			}
			if repo.creates != 0 || mailer.calls() != 0 || notifier.calls() != 0 {
				t.Errorf("expected no side effects, got creates=%d mails=%d pushes=%d",
					repo.creates, mailer.calls(), notifier.calls())
			}
		})
	}
}

func TestSubmissionService_Submit_PersistenceFailureSkipsNotifications(t *testing.T) {
	repo := &mockSubmissionRepository{
		createFunc: func(ctx context.Context, sub *model.Submission) error {
			return errors.New("connection refused")
		},
	}
	mailer := &mockMailer{}
	notifier := &mockNotifier{}
	svc := NewSubmissionService(repo, mailer, notifier, time.Second, quietLogger())

	sub, err := svc.Submit(context.Background(), validInput())

	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if sub != nil {
		t.Error("expected nil submission on persistence failure")
	}
	if mailer.calls() != 0 {
		t.Errorf("no email may be sent before persistence succeeds, got %d", mailer.calls())
	}
	if notifier.calls() != 0 {
		t.Errorf("no push may be sent before persistence succeeds, got %d", notifier.calls())
	}
}

func TestSubmissionService_Submit_EmailFailuresDoNotFailRequest(t *testing.T) {
	failed := func(ctx context.Context, sub *model.Submission) model.EmailResult {
		return model.EmailResult{Success: false, Error: "dial smtp: connection refused"}
	}
	mailer := &mockMailer{confirmFunc: failed, adminFunc: failed}
	notifier := &mockNotifier{}
	svc := NewSubmissionService(&mockSubmissionRepository{}, mailer, notifier, time.Second, quietLogger())

	sub, err := svc.Submit(context.Background(), validInput())

	if err != nil {
		t.Fatalf("email failures must not surface, got %v", err)
	}
	if sub == nil || sub.ID == "" {
		t.Fatal("expected stored submission in result")
	}
	if notifier.calls() != 1 {
		t.Errorf("push fan-out should still run, got %d calls", notifier.calls())
	}
}

func TestSubmissionService_Submit_NotificationPhaseIsBounded(t *testing.T) {
	hang := func(ctx context.Context, sub *model.Submission) model.EmailResult {
		<-ctx.Done()
		return model.EmailResult{Success: false, Error: ctx.Err().Error()}
	}
	mailer := &mockMailer{confirmFunc: hang, adminFunc: hang}
	svc := NewSubmissionService(&mockSubmissionRepository{}, mailer, &mockNotifier{}, 50*time.Millisecond, quietLogger())

	start := time.Now()
	_, err := svc.Submit(context.Background(), validInput())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("notification phase should stop near the 50ms bound, took %v", elapsed)
	}
}

func TestSubmissionService_Submit_ClientCancellationDoesNotAbortNotifications(t *testing.T) {
	mailer := &mockMailer{}
	svc := NewSubmissionService(&mockSubmissionRepository{}, mailer, &mockNotifier{}, time.Second, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Submit(ctx, validInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mailer.ctxCancelled {
		t.Error("notification context should be detached from the request")
	}
}

func TestSubmissionService_Submit_NormalizesOptionalFields(t *testing.T) {
	var saved *model.Submission
	repo := &mockSubmissionRepository{}
	repo.createFunc = func(ctx context.Context, sub *model.Submission) error {
		saved = sub
		sub.ID = "9b2f6c1e-5a4d-4c3b-8e7f-1a2b3c4d5e6f"
		return nil
	}
	svc := NewSubmissionService(repo, &mockMailer{}, &mockNotifier{}, time.Second, quietLogger())

	in := validInput()
	in.Company = "  Acme  "
	in.Locale = "RU-ru"
	if _, err := svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Company != "Acme" {
		t.Errorf("expected trimmed company, got %q", saved.Company)
	}
	if saved.Locale != "ru" {
		t.Errorf("expected locale ru, got %q", saved.Locale)
	}
}

// ---------------------------------------------------------------------------
// admin operations
// ---------------------------------------------------------------------------

const validUUID = "9b2f6c1e-5a4d-4c3b-8e7f-1a2b3c4d5e6f"

func TestSubmissionService_UpdateStatus(t *testing.T) {
	var gotStatus string
	trashed := false
	repo := &mockSubmissionRepository{
		updateStatusFunc: func(ctx context.Context, id, status string) error {
			gotStatus = status
			return nil
		},
		trashFunc: func(ctx context.Context, id string) error {
			trashed = true
			return nil
		},
	}
	svc := NewSubmissionService(repo, &mockMailer{}, &mockNotifier{}, time.Second, quietLogger())
	ctx := context.Background()

	if err := svc.UpdateStatus(ctx, validUUID, model.StatusContacted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotStatus != model.StatusContacted {
		t.Errorf("expected contacted forwarded, got %q", gotStatus)
	}

	if err := svc.UpdateStatus(ctx, validUUID, model.StatusTrash); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !trashed {
		t.Error("status=trash should soft-delete")
	}

	var verr *ValidationError
	if err := svc.UpdateStatus(ctx, validUUID, "spam"); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for unknown status, got %v", err)
	}
	if err := svc.UpdateStatus(ctx, "not-a-uuid", model.StatusNew); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestSubmissionService_UpdateStatus_NotFoundIsWrapped(t *testing.T) {
	repo := &mockSubmissionRepository{
		updateStatusFunc: func(ctx context.Context, id, status string) error {
			return repository.ErrNotFound
		},
	}
	svc := NewSubmissionService(repo, &mockMailer{}, &mockNotifier{}, time.Second, quietLogger())

	err := svc.UpdateStatus(context.Background(), validUUID, model.StatusArchived)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound through wrapping, got %v", err)
	}
}

func TestSubmissionService_UpdatePriority_Validates(t *testing.T) {
	svc := NewSubmissionService(&mockSubmissionRepository{}, &mockMailer{}, &mockNotifier{}, time.Second, quietLogger())

	var verr *ValidationError
	if err := svc.UpdatePriority(context.Background(), validUUID, "critical"); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	if err := svc.UpdatePriority(context.Background(), validUUID, model.PriorityHigh); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSubmissionService_List_ClampsPagination(t *testing.T) {
	var captured model.SubmissionListOptions
	repo := &mockSubmissionRepository{
		listFunc: func(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error) {
			captured = opts
			return nil, nil
		},
	}
	svc := NewSubmissionService(repo, &mockMailer{}, &mockNotifier{}, time.Second, quietLogger())

	_, _ = svc.List(context.Background(), model.SubmissionListOptions{Limit: 1000, Offset: -5, Trash: true})

	if captured.Limit != 20 || captured.Offset != 0 {
		t.Errorf("expected limit=20 offset=0, got %d/%d", captured.Limit, captured.Offset)
	}
	if !captured.Trash {
		t.Error("trash flag should be forwarded")
	}
}

func TestSubmissionService_TrashRestore_MalformedID(t *testing.T) {
	svc := NewSubmissionService(&mockSubmissionRepository{}, &mockMailer{}, &mockNotifier{}, time.Second, quietLogger())

	if err := svc.Trash(context.Background(), "42"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Restore(context.Background(), "42"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "42"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
