package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrSessionExpired is returned for a correctly signed token past its expiry.
var ErrSessionExpired = errors.New("session expired")

// CreateSessionToken は userID と有効期限から署名付きセッショントークンを生成する
func CreateSessionToken(userID string, secret []byte, expiresAt time.Time) string {
	payload := []byte(userID + "|" + strconv.FormatInt(expiresAt.Unix(), 10))
	return base64.URLEncoding.EncodeToString(payload) + "." + sign(payload, secret)
}

// VerifySessionToken はトークンを検証しユーザーIDを返す
func VerifySessionToken(token string, secret []byte, now time.Time) (string, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", errors.New("invalid token format")
	}
	payload, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", err
	}
	if !hmac.Equal([]byte(sign(payload, secret)), []byte(parts[1])) {
		return "", errors.New("invalid signature")
	}

	sep := strings.LastIndexByte(string(payload), '|')
	if sep <= 0 {
		return "", errors.New("invalid token payload")
	}
	exp, err := strconv.ParseInt(string(payload[sep+1:]), 10, 64)
	if err != nil {
		return "", errors.New("invalid token expiry")
	}
	if now.Unix() >= exp {
		return "", ErrSessionExpired
	}
	return string(payload[:sep]), nil
}

func sign(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

const sessionCookieName = "studio_admin_session"
const minSecretLen = 32

// SessionCookieName はセッションクッキー名
func SessionCookieName() string {
	return sessionCookieName
}

// SessionSecretBytes は文字列からセッション署名用のバイト列を生成する（最低32バイト）
func SessionSecretBytes(s string) []byte {
	b := []byte(s)
	if len(b) < minSecretLen {
		out := make([]byte, minSecretLen)
		copy(out, b)
		return out
	}
	return b
}
