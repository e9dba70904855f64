package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"
)

type contextKey string

const (
	userIDKey  contextKey = "user_id"
	isAdminKey contextKey = "is_admin"
)

// UserIDFromContext は context から userID を取得する
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// WithUserID は context に userID をセットする
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithIsAdmin stores the admin flag in the context.
func WithIsAdmin(ctx context.Context, isAdmin bool) context.Context {
	return context.WithValue(ctx, isAdminKey, isAdmin)
}

// IsAdminFromContext returns whether the authenticated user is an admin.
// Returns false when not set.
func IsAdminFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(isAdminKey).(bool)
	return v
}

func writeAuthError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// RequireAdmin verifies the session cookie and lets the request through only
// when the user id is one of adminIDs. It sets userID and the admin flag.
func RequireAdmin(sessionSecret []byte, adminIDs []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName())
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			userID, err := VerifySessionToken(cookie.Value, sessionSecret, time.Now())
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid_session")
				return
			}

			if !slices.Contains(adminIDs, userID) {
				writeAuthError(w, http.StatusForbidden, "forbidden")
				return
			}

			ctx := WithIsAdmin(WithUserID(r.Context(), userID), true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevUserID は開発用のダミー userID（AUTH_REQUIRED=false 時に使用）
const DevUserID = "dev-admin"

// DevAuth は開発用ミドルウェア。ダミー管理者を context にセットする
func DevAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithIsAdmin(WithUserID(r.Context(), DevUserID), true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
