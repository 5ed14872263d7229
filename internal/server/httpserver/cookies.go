package httpserver

import (
	"net/http"
	"time"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"

	// refreshPath scopes the access token cookie to the refresh endpoint.
	refreshPath = "/auth/refresh"
)

func (s *Server) baseCookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.production,
	}
}

// setAuthCookies attaches both token cookies. When refreshToken is empty
// (a refresh without rotation) the refresh cookie is left untouched.
func (s *Server) setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	access := s.baseCookie(accessTokenCookie, accessToken)
	access.Path = refreshPath
	access.Expires = time.Now().Add(s.accessTokenTTL)
	http.SetCookie(w, access)

	if refreshToken != "" {
		refresh := s.baseCookie(refreshTokenCookie, refreshToken)
		refresh.Expires = time.Now().Add(s.refreshTokenTTL)
		http.SetCookie(w, refresh)
	}
}

// clearAuthCookies expires both token cookies on the client.
func (s *Server) clearAuthCookies(w http.ResponseWriter) {
	access := s.baseCookie(accessTokenCookie, "")
	access.Path = refreshPath
	access.MaxAge = -1
	http.SetCookie(w, access)

	refresh := s.baseCookie(refreshTokenCookie, "")
	refresh.MaxAge = -1
	http.SetCookie(w, refresh)
}
