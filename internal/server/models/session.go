package models

import "time"

// Session binds a user to a token lineage. A new session is created on every
// registration and login; refresh extends ExpiresAt when the session is
// inside its last day.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
