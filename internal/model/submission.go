package model

import "time"

// Submission lifecycle statuses.
const (
	StatusNew        = "new"
	StatusContacted  = "contacted"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusArchived   = "archived"
	StatusTrash      = "trash"
)

// Submission priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Submission represents a contact request sent from the public site.
type Submission struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Company     string     `json:"company,omitempty"`
	Message     string     `json:"message"`
	ProjectType string     `json:"project_type,omitempty"`
	Budget      string     `json:"budget,omitempty"`
	Timeline    string     `json:"timeline,omitempty"`
	Locale      string     `json:"locale,omitempty"` // "fr" | "en" | "ru"
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// IsTrashed reports whether the submission has been soft-deleted.
func (s *Submission) IsTrashed() bool {
	return s.DeletedAt != nil
}

// SubmissionInput carries the fields accepted from the contact form.
type SubmissionInput struct {
	Name        string
	Email       string
	Message     string
	Phone       string
	Company     string
	ProjectType string
	Budget      string
	Timeline    string
	Locale      string
}

// SubmissionListOptions carries filter and pagination parameters for the admin listing.
type SubmissionListOptions struct {
	// Status filters by lifecycle status. Empty string and "all" return every status.
	Status string
	// Trash selects soft-deleted rows instead of active ones.
	Trash  bool
	Limit  int
	Offset int
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusContacted, StatusInProgress, StatusCompleted, StatusArchived, StatusTrash:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
