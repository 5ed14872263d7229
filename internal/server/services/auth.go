// Package services contains server-side business logic. This file implements
// AuthService, which handles registration, login, logout, email verification
// and refresh-token rotation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/quizzyapp/quizzy-backend/internal/apperror"
	"github.com/quizzyapp/quizzy-backend/internal/common"
	"github.com/quizzyapp/quizzy-backend/internal/dbx"
	"github.com/quizzyapp/quizzy-backend/internal/logging"
	"github.com/quizzyapp/quizzy-backend/internal/server/auth"
	"github.com/quizzyapp/quizzy-backend/internal/server/config"
	"github.com/quizzyapp/quizzy-backend/internal/server/mail"
	"github.com/quizzyapp/quizzy-backend/internal/server/models"
	"github.com/quizzyapp/quizzy-backend/internal/server/repositories/repomanager"
)

const (
	// sessionRefreshThreshold is how close to expiry a session must be
	// before a refresh rotates the token and extends the session.
	sessionRefreshThreshold = 24 * time.Hour

	// verificationCodeTTL is how long an emailed verification link stays
	// usable.
	verificationCodeTTL = 365 * 24 * time.Hour

	// invalidCredentialsMessage is shared between the unknown-email and
	// wrong-password failures so a caller cannot probe which emails are
	// registered.
	invalidCredentialsMessage = "Invalid email or password"
)

// AuthResult is what a successful registration or login yields: the user
// record and a freshly minted token pair bound to a new session.
type AuthResult struct {
	User         models.User
	AccessToken  string
	RefreshToken string
}

// RefreshResult carries the outcome of a token refresh. RefreshToken is
// empty unless the session was close enough to expiry to rotate.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// AuthService implements the account lifecycle: Register, Login, Logout,
// RefreshAccessToken and VerifyEmail.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      mail.Mailer
	logger      logging.Logger

	appOrigin       string
	accessSecret    []byte
	refreshSecret   []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewAuthService constructs an AuthService using repositories, the outbound
// mailer and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, mailer mail.Mailer, logger logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		db:              db,
		repomanager:     m,
		mailer:          mailer,
		logger:          logger,
		appOrigin:       cfg.AppOrigin,
		accessSecret:    []byte(cfg.JWTSecret),
		refreshSecret:   []byte(cfg.JWTRefreshSecret),
		accessTokenTTL:  cfg.AccessTokenValidityDuration,
		refreshTokenTTL: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates a user, opens their first session, issues a token pair
// and emails a verification link. The email is best-effort: a delivery
// failure is logged and does not fail the registration.
func (s *AuthService) Register(ctx context.Context, email, password, userAgent string) (*AuthResult, error) {
	exists, err := s.repomanager.Users(s.db).ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if err := apperror.Assert(!exists, http.StatusConflict, "Email already in use"); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	var (
		user    *models.User
		session *models.Session
		code    *models.VerificationCode
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		now := time.Now()

		user, err = s.repomanager.Users(tx).Create(ctx, &models.User{Email: email, PasswordHash: hash})
		if err != nil {
			return err
		}

		code, err = s.repomanager.VerificationCodes(tx).Create(ctx, &models.VerificationCode{
			UserID:    user.ID,
			Type:      models.VerificationEmail,
			ExpiresAt: now.Add(verificationCodeTTL),
		})
		if err != nil {
			return fmt.Errorf("error creating verification code: %w", err)
		}

		session, err = s.repomanager.Sessions(tx).Create(ctx, &models.Session{
			UserID:    user.ID,
			UserAgent: userAgent,
			ExpiresAt: now.Add(s.refreshTokenTTL),
		})
		if err != nil {
			return fmt.Errorf("error creating session: %w", err)
		}
		return nil
	})
	// The precheck above does not close the race with a concurrent
	// registration; the unique constraint does.
	if assertErr := apperror.Assert(!errors.Is(err, common.ErrorAlreadyExists), http.StatusConflict, "Email already in use"); assertErr != nil {
		return nil, assertErr
	}
	if err != nil {
		return nil, fmt.Errorf("error registering user: %w", err)
	}

	s.sendVerificationEmail(ctx, user.Email, code.ID)

	pair, err := s.signTokenPair(user.ID, session.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user.OmitPassword(), AccessToken: pair.access, RefreshToken: pair.refresh}, nil
}

// Login verifies the credentials and, on success, opens a new session and
// returns a token pair. Every login gets its own session; earlier sessions
// stay valid until they expire or are logged out.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent string) (*AuthResult, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	if assertErr := apperror.Assert(err == nil && auth.CheckPassword(user.PasswordHash, password),
		http.StatusUnauthorized, invalidCredentialsMessage); assertErr != nil {
		return nil, assertErr
	}

	session, err := s.repomanager.Sessions(s.db).Create(ctx, &models.Session{
		UserID:    user.ID,
		UserAgent: userAgent,
		ExpiresAt: time.Now().Add(s.refreshTokenTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	pair, err := s.signTokenPair(user.ID, session.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user.OmitPassword(), AccessToken: pair.access, RefreshToken: pair.refresh}, nil
}

// Logout revokes the session named by the access token. It is best-effort:
// an unparseable token or a storage failure still yields success, since the
// caller's cookies are cleared either way.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := auth.ParseAccessToken(accessToken, s.accessSecret)
	if err != nil {
		return nil
	}
	if err := s.repomanager.Sessions(s.db).Delete(ctx, claims.SessionID); err != nil {
		s.logger.Warn(ctx, "error deleting session on logout", "session_id", claims.SessionID, "error", err)
	}
	return nil
}

// RefreshAccessToken verifies a refresh token against its session and mints
// a fresh access token. When the session is within sessionRefreshThreshold
// of expiry, the session is extended and a new refresh token is issued for
// it; otherwise RefreshToken stays empty and the caller keeps using the
// presented one.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := auth.ParseRefreshToken(refreshToken, s.refreshSecret)
	if assertErr := apperror.Assert(err == nil, http.StatusUnauthorized, "Invalid refresh token"); assertErr != nil {
		return nil, assertErr
	}

	now := time.Now()
	session, err := s.repomanager.Sessions(s.db).Get(ctx, claims.SessionID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error fetching session: %w", err)
	}
	// A revoked session and an expired one surface identically, but reach
	// this assert on separate paths so logs can tell them apart.
	if assertErr := apperror.Assert(err == nil && session.ExpiresAt.After(now),
		http.StatusUnauthorized, "Session expired"); assertErr != nil {
		return nil, assertErr
	}

	result := &RefreshResult{}
	if session.ExpiresAt.Sub(now) <= sessionRefreshThreshold {
		session, err = s.repomanager.Sessions(s.db).UpdateExpiry(ctx, session.ID, now.Add(s.refreshTokenTTL))
		if err != nil {
			return nil, fmt.Errorf("error extending session: %w", err)
		}
		result.RefreshToken, err = auth.SignRefreshToken(session.ID, auth.SignOptions{Secret: s.refreshSecret, TTL: s.refreshTokenTTL})
		if err != nil {
			return nil, fmt.Errorf("error signing refresh token: %w", err)
		}
	}

	result.AccessToken, err = auth.SignAccessToken(session.UserID, session.ID, auth.SignOptions{Secret: s.accessSecret, TTL: s.accessTokenTTL})
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}
	return result, nil
}

// VerifyEmail consumes a verification code and marks its user verified.
// The code lookup matches id, type and expiry at once, so an absent,
// expired or wrong-purpose code all fail the same way.
func (s *AuthService) VerifyEmail(ctx context.Context, codeID string) (*models.User, error) {
	code, err := s.repomanager.VerificationCodes(s.db).FindValid(ctx, codeID, models.VerificationEmail, time.Now())
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error fetching verification code: %w", err)
	}
	if assertErr := apperror.Assert(err == nil, http.StatusNotFound, "Invalid or expired verification code"); assertErr != nil {
		return nil, assertErr
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err = s.repomanager.Users(tx).SetVerified(ctx, code.UserID)
		if err != nil {
			return err
		}
		return s.repomanager.VerificationCodes(tx).Delete(ctx, code.ID)
	})
	if assertErr := apperror.Assert(err == nil, http.StatusInternalServerError, "Failed to verify email"); assertErr != nil {
		s.logger.Error(ctx, "error verifying email", "user_id", code.UserID, "error", err)
		return nil, assertErr
	}

	verified := user.OmitPassword()
	return &verified, nil
}

type tokenPair struct {
	access  string
	refresh string
}

func (s *AuthService) signTokenPair(userID, sessionID string) (*tokenPair, error) {
	access, err := auth.SignAccessToken(userID, sessionID, auth.SignOptions{Secret: s.accessSecret, TTL: s.accessTokenTTL})
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}
	refresh, err := auth.SignRefreshToken(sessionID, auth.SignOptions{Secret: s.refreshSecret, TTL: s.refreshTokenTTL})
	if err != nil {
		return nil, fmt.Errorf("error signing refresh token: %w", err)
	}
	return &tokenPair{access: access, refresh: refresh}, nil
}

func (s *AuthService) sendVerificationEmail(ctx context.Context, to, codeID string) {
	link := fmt.Sprintf("%s/email/verify/%s", s.appOrigin, codeID)
	if err := s.mailer.Send(ctx, to, mail.VerifyEmailMessage(link)); err != nil {
		s.logger.Error(ctx, "error sending verification email", "to", to, "error", err)
	}
}
