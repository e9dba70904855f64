package model

import "time"

// PushKeys are the encryption keys a browser issues with a push subscription.
type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is an admin browser's Web Push delivery endpoint.
type PushSubscription struct {
	AdminID   string    `json:"admin_id"`
	Endpoint  string    `json:"endpoint"`
	Keys      PushKeys  `json:"keys"`
	CreatedAt time.Time `json:"created_at"`
}

// PushPayload is the JSON document delivered to admin browsers.
type PushPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Type  string         `json:"type"`
	URL   string         `json:"url,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}
