package model

// EmailDetails carries diagnostics about a send attempt.
type EmailDetails struct {
	Method     string `json:"method"`
	DurationMs int64  `json:"duration_ms"`
	Attempts   int    `json:"attempts"`
	TimedOut   bool   `json:"timed_out,omitempty"`
}

// EmailResult is the outcome of one transactional email send.
// It is built once per send and never mutated afterwards.
type EmailResult struct {
	Success   bool         `json:"success"`
	MessageID string       `json:"message_id,omitempty"`
	Error     string       `json:"error,omitempty"`
	Details   EmailDetails `json:"details"`
}
