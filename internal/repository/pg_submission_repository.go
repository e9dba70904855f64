package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumiere-studio/backend/internal/model"
)

// PgSubmissionRepository is the PostgreSQL implementation of SubmissionRepository.
type PgSubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewPgSubmissionRepository creates a PgSubmissionRepository backed by the given pool.
func NewPgSubmissionRepository(pool *pgxpool.Pool) *PgSubmissionRepository {
	return &PgSubmissionRepository{pool: pool}
}

var _ SubmissionRepository = (*PgSubmissionRepository)(nil)

const submissionColumns = `id, name, email, COALESCE(phone, ''), COALESCE(company, ''), message,
	COALESCE(project_type, ''), COALESCE(budget, ''), COALESCE(timeline, ''), COALESCE(locale, ''),
	status, priority, created_at, updated_at, deleted_at`

// Create inserts a new contact_submissions row and populates sub.ID and
// timestamps from the RETURNING clause. Status and priority default to
// "new" and "medium" when unset.
func (r *PgSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	if sub.Status == "" {
		sub.Status = model.StatusNew
	}
	if sub.Priority == "" {
		sub.Priority = model.PriorityMedium
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contact_submissions
		   (name, email, phone, company, message, project_type, budget, timeline, locale, status, priority)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, $11)
		 RETURNING id, created_at, updated_at`,
		sub.Name, sub.Email, sub.Phone, sub.Company, sub.Message,
		sub.ProjectType, sub.Budget, sub.Timeline, sub.Locale, sub.Status, sub.Priority,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert contact submission: %w", err)
	}
	return nil
}

// Get returns a single submission, trashed or not.
func (r *PgSubmissionRepository) Get(ctx context.Context, id string) (*model.Submission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM contact_submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// List returns submissions for the admin views, newest first.
func (r *PgSubmissionRepository) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error) {
	query, args := submissionListQuery(opts)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// submissionListQuery builds the SELECT for List. Trash selects soft-deleted
// rows; otherwise only active rows are returned. Status "" or "all" does not filter.
func submissionListQuery(opts model.SubmissionListOptions) (string, []any) {
	var conditions []string
	var args []any

	if opts.Trash {
		conditions = append(conditions, "deleted_at IS NOT NULL")
	} else {
		conditions = append(conditions, "deleted_at IS NULL")
	}

	status := strings.TrimSpace(opts.Status)
	if status != "" && status != "all" {
		args = append(args, status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}

	args = append(args, opts.Limit, opts.Offset)
	query := `SELECT ` + submissionColumns + `
	          FROM contact_submissions
	          WHERE ` + strings.Join(conditions, " AND ") + `
	          ORDER BY created_at DESC
	          LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	return query, args
}

// UpdateStatus changes the lifecycle status of an active submission.
func (r *PgSubmissionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.exec(ctx,
		`UPDATE contact_submissions SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id, status)
}

// UpdatePriority changes the priority of an active submission.
func (r *PgSubmissionRepository) UpdatePriority(ctx context.Context, id, priority string) error {
	return r.exec(ctx,
		`UPDATE contact_submissions SET priority = $2, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id, priority)
}

// Trash soft-deletes a submission.
func (r *PgSubmissionRepository) Trash(ctx context.Context, id string) error {
	return r.exec(ctx,
		`UPDATE contact_submissions SET deleted_at = NOW(), status = 'trash', updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
}

// Restore brings a trashed submission back into the active view as "new".
func (r *PgSubmissionRepository) Restore(ctx context.Context, id string) error {
	return r.exec(ctx,
		`UPDATE contact_submissions SET deleted_at = NULL, status = 'new', updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NOT NULL`, id)
}

// exec runs an UPDATE and maps zero affected rows to ErrNotFound.
func (r *PgSubmissionRepository) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	var s model.Submission
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Company, &s.Message,
		&s.ProjectType, &s.Budget, &s.Timeline, &s.Locale,
		&s.Status, &s.Priority, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
