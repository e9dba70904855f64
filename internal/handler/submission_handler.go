package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lumiere-studio/backend/internal/model"
	"github.com/lumiere-studio/backend/internal/repository"
	"github.com/lumiere-studio/backend/internal/service"
)

// maxBodyBytes bounds JSON request bodies; a 5000-rune message fits with room to spare.
const maxBodyBytes = 64 << 10

// SubmissionHandler serves the public contact endpoint and the admin
// submission management endpoints.
type SubmissionHandler struct {
	svc    service.SubmissionService
	logger *slog.Logger
}

// NewSubmissionHandler creates a SubmissionHandler with the given service.
func NewSubmissionHandler(svc service.SubmissionService, logger *slog.Logger) *SubmissionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionHandler{svc: svc, logger: logger}
}

// submitRequest is the expected JSON body for POST /api/contact.
type submitRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Message     string `json:"message"`
	Phone       string `json:"phone"`
	Company     string `json:"company"`
	ProjectType string `json:"projectType"`
	Budget      string `json:"budget"`
	Timeline    string `json:"timeline"`
	Locale      string `json:"locale"`
}

type submitResponse struct {
	Success    bool              `json:"success"`
	Submission *model.Submission `json:"submission"`
}

// Submit handles POST /api/contact.
// Responds 201 once the submission is stored, whatever the notification outcome.
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	sub, err := h.svc.Submit(r.Context(), model.SubmissionInput{
		Name:        req.Name,
		Email:       req.Email,
		Message:     req.Message,
		Phone:       req.Phone,
		Company:     req.Company,
		ProjectType: req.ProjectType,
		Budget:      req.Budget,
		Timeline:    req.Timeline,
		Locale:      req.Locale,
	})
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Code)
			return
		}
		h.logger.Error("contact submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "submit_failed")
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{Success: true, Submission: sub})
}

type adminListResponse struct {
	Submissions []*model.Submission `json:"submissions"`
}

// AdminList handles GET /api/admin/submissions.
// Query params: status, view (active|trash), limit, offset.
func (h *SubmissionHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := model.SubmissionListOptions{
		Status: q.Get("status"),
		Trash:  q.Get("view") == "trash",
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			opts.Limit = n
		}
	}
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	subs, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeServiceError(w, err, "list_failed")
		return
	}

	// Return [] not null for empty lists
	if subs == nil {
		subs = []*model.Submission{}
	}
	writeJSON(w, http.StatusOK, adminListResponse{Submissions: subs})
}

// Get handles GET /api/admin/submissions/{id}.
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "get_failed")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// UpdateStatus handles PATCH /api/admin/submissions/{id}/status.
func (h *SubmissionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := h.svc.UpdateStatus(r.Context(), r.PathValue("id"), body.Status); err != nil {
		h.writeServiceError(w, err, "update_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UpdatePriority handles PATCH /api/admin/submissions/{id}/priority.
func (h *SubmissionHandler) UpdatePriority(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Priority string `json:"priority"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := h.svc.UpdatePriority(r.Context(), r.PathValue("id"), body.Priority); err != nil {
		h.writeServiceError(w, err, "update_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Trash handles DELETE /api/admin/submissions/{id}. Rows are only soft-deleted.
func (h *SubmissionHandler) Trash(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Trash(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err, "trash_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore handles POST /api/admin/submissions/{id}/restore.
func (h *SubmissionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Restore(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err, "restore_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeServiceError maps admin service errors to responses; fallback is the
// code used for unexpected failures.
func (h *SubmissionHandler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Code)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	default:
		h.logger.Error("admin submission operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
