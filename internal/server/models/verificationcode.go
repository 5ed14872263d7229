package models

import "time"

// VerificationCodeType enumerates the purposes a verification code can be
// issued for.
type VerificationCodeType string

const (
	VerificationEmail         VerificationCodeType = "email_verification"
	VerificationPasswordReset VerificationCodeType = "password_reset"
)

// VerificationCode is a single-use, typed, expiring code proving control of
// an email address. The code value handed to the user is the record id
// itself; a lookup must match id, type and an unexpired expiry at once.
type VerificationCode struct {
	ID        string
	UserID    string
	Type      VerificationCodeType
	CreatedAt time.Time
	ExpiresAt time.Time
}
