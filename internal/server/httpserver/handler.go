package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/quizzyapp/quizzy-backend/internal/apperror"
	"github.com/quizzyapp/quizzy-backend/internal/server/models"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		s.writeValidationError(w, fields)
		return
	}

	result, err := s.auth.Register(r.Context(), req.Email, req.Password, r.UserAgent())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.setAuthCookies(w, result.AccessToken, result.RefreshToken)
	s.writeJSON(w, http.StatusCreated, toUserResponse(result.User))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		s.writeValidationError(w, fields)
		return
	}

	result, err := s.auth.Login(r.Context(), req.Email, req.Password, r.UserAgent())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.setAuthCookies(w, result.AccessToken, result.RefreshToken)
	s.writeJSON(w, http.StatusOK, toUserResponse(result.User))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var accessToken string
	if c, err := r.Cookie(accessTokenCookie); err == nil {
		accessToken = c.Value
	}

	if err := s.auth.Logout(r.Context(), accessToken); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.clearAuthCookies(w)
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Logout successful"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(refreshTokenCookie)
	if err != nil {
		// A failed refresh means the cookies cannot represent a live
		// session; drop them either way.
		s.clearAuthCookies(w)
		s.writeError(w, http.StatusUnauthorized, "Missing refresh token", "")
		return
	}

	result, err := s.auth.RefreshAccessToken(r.Context(), c.Value)
	if err != nil {
		s.clearAuthCookies(w)
		s.writeServiceError(w, r, err)
		return
	}

	s.setAuthCookies(w, result.AccessToken, result.RefreshToken)
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Access token refreshed"})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.VerifyEmail(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(*user))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Verified:  user.Verified,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error(context.Background(), "error encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, code string) {
	s.writeJSON(w, status, errorResponse{Message: message, Code: code})
}

func (s *Server) writeValidationError(w http.ResponseWriter, fields map[string]string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid request", Errors: fields})
}

// writeServiceError maps a service failure onto the response. AppErrors
// carry their own status, message and code; anything else is an internal
// failure whose detail stays out of the response.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		s.writeError(w, appErr.Status, appErr.Message, string(appErr.Code))
		return
	}

	var validationErr *apperror.ValidationError
	if errors.As(err, &validationErr) {
		s.writeValidationError(w, validationErr.Fields)
		return
	}

	s.logger.Error(r.Context(), "unhandled service error", "method", r.Method, "path", r.URL.Path, "error", err)
	s.writeError(w, http.StatusInternalServerError, "Internal Server Error", "")
}
