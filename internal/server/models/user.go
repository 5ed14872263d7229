package models

import "time"

// User is an account record. PasswordHash holds the bcrypt hash of the
// password; the plaintext is never stored. The hash is excluded from JSON,
// and handlers additionally go through OmitPassword before responding.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// OmitPassword returns a copy of the user safe to hand to transport callers.
func (u User) OmitPassword() User {
	u.PasswordHash = ""
	return u
}
