// Package httpserver is the HTTP boundary of the auth server: routing,
// request validation, cookie plumbing and error mapping. All business rules
// live in the service layer.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/quizzyapp/quizzy-backend/internal/logging"
	"github.com/quizzyapp/quizzy-backend/internal/server/config"
	"github.com/quizzyapp/quizzy-backend/internal/server/models"
	"github.com/quizzyapp/quizzy-backend/internal/server/services"
)

// AuthService is the service surface the handlers call.
type AuthService interface {
	Register(ctx context.Context, email, password, userAgent string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password, userAgent string) (*services.AuthResult, error)
	Logout(ctx context.Context, accessToken string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (*services.RefreshResult, error)
	VerifyEmail(ctx context.Context, code string) (*models.User, error)
}

// Server serves the auth API over HTTP.
type Server struct {
	auth   AuthService
	logger logging.Logger

	addr            string
	production      bool
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// New constructs a Server from the service layer and server config.
func New(auth AuthService, logger logging.Logger, cfg *config.Config) *Server {
	return &Server{
		auth:            auth,
		logger:          logger,
		addr:            cfg.EndpointAddr,
		production:      cfg.Production,
		accessTokenTTL:  cfg.AccessTokenValidityDuration,
		refreshTokenTTL: cfg.RefreshTokenValidityDuration,
	}
}

// Handler builds the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /auth/email/verify/{code}", s.handleVerifyEmail)

	mux.HandleFunc("GET /health", s.handleHealth)

	return withRecovery(withLogging(mux, s.logger), s.logger)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
