// Package auth implements the token codec (signing and verification of
// access and refresh JWTs) and password hashing.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quizzyapp/quizzy-backend/internal/common"
)

// TokenAudience tags every token this service signs. Verification requires
// it, so a token minted for any other purpose is rejected outright.
const TokenAudience = "user"

// AccessClaims is the payload of a short-lived access token: the owning
// user and the session it authorizes.
type AccessClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a long-lived refresh token. It names only
// the session; the owning user is resolved from the session record at
// refresh time.
type RefreshClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SignOptions select the secret and lifetime for a token class. Access and
// refresh tokens are signed with distinct secrets, so compromise of one
// class does not let an attacker forge the other.
type SignOptions struct {
	Secret []byte
	TTL    time.Duration
}

// SignAccessToken signs an HS256 access token for the given user and session.
func SignAccessToken(userID, sessionID string, opts SignOptions) (string, error) {
	claims := AccessClaims{
		UserID:           userID,
		SessionID:        sessionID,
		RegisteredClaims: registeredClaims(opts.TTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(opts.Secret)
}

// SignRefreshToken signs an HS256 refresh token bound to the given session.
func SignRefreshToken(sessionID string, opts SignOptions) (string, error) {
	claims := RefreshClaims{
		SessionID:        sessionID,
		RegisteredClaims: registeredClaims(opts.TTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(opts.Secret)
}

// ParseAccessToken verifies signature, expiry and audience against the
// access secret and returns the original claims. All failures (malformed
// token, expired, wrong audience, bad signature) come back as errors;
// nothing panics past this boundary.
func ParseAccessToken(tokenStr string, secret []byte) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parseToken(tokenStr, secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefreshToken verifies a refresh token against the refresh secret.
func ParseRefreshToken(tokenStr string, secret []byte) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parseToken(tokenStr, secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func parseToken(tokenStr string, secret []byte, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return err
	}
	if !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}

func registeredClaims(ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{TokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}
