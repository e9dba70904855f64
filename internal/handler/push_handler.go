package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lumiere-studio/backend/internal/model"
	"github.com/lumiere-studio/backend/internal/push"
	"github.com/lumiere-studio/backend/internal/service"
	"github.com/lumiere-studio/backend/pkg/auth"
)

// PushHandler は管理者ブラウザの Web Push 購読を扱う
type PushHandler struct {
	svc    service.PushService
	logger *slog.Logger
}

// NewPushHandler は PushHandler を生成する
func NewPushHandler(svc service.PushService, logger *slog.Logger) *PushHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushHandler{svc: svc, logger: logger}
}

// subscribeRequest mirrors the browser's PushSubscription.toJSON().
type subscribeRequest struct {
	Endpoint string         `json:"endpoint"`
	Keys     model.PushKeys `json:"keys"`
}

// Subscribe は POST /api/admin/push/subscribe を処理する
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	adminID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	err := h.svc.Subscribe(r.Context(), adminID, model.PushSubscription{
		Endpoint: req.Endpoint,
		Keys:     req.Keys,
	})
	if errors.Is(err, push.ErrInvalidSubscription) {
		writeError(w, http.StatusBadRequest, "invalid_subscription")
		return
	}
	if err != nil {
		h.logger.Error("push subscribe failed", "admin_id", adminID, "error", err)
		writeError(w, http.StatusInternalServerError, "subscribe_failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

// Unsubscribe は DELETE /api/admin/push/subscribe を処理する
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	adminID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Unsubscribe(r.Context(), adminID); err != nil {
		h.logger.Error("push unsubscribe failed", "admin_id", adminID, "error", err)
		writeError(w, http.StatusInternalServerError, "unsubscribe_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VAPIDPublicKey は GET /api/admin/push/vapid-public-key を処理する
// Push が未設定の場合は 503 を返す
func (h *PushHandler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	key := h.svc.PublicKey()
	if key == "" {
		writeError(w, http.StatusServiceUnavailable, "push_disabled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": key})
}

// Test は POST /api/admin/push/test を処理する
func (h *PushHandler) Test(w http.ResponseWriter, r *http.Request) {
	adminID, _ := auth.UserIDFromContext(r.Context())
	if h.svc.PublicKey() == "" {
		writeError(w, http.StatusServiceUnavailable, "push_disabled")
		return
	}
	report := h.svc.SendTest(r.Context(), adminID)
	writeJSON(w, http.StatusOK, report)
}
