package http

import (
	"errors"
	"net/http"

	"anwarfarm/internal/auth"
	"anwarfarm/internal/core"
)

type sessionBody struct {
	Role core.Role `json:"role"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(sessionBody{Role: s.role(r)}).Write(w)
}

// handleLogin exchanges the shared passphrase for an admin session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		ErrorResponse(http.StatusForbidden, "login is disabled").Write(w)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	token, err := s.gate.Login(r.Context(), p.Get("passphrase"))
	switch {
	case errors.Is(err, auth.ErrAdminDisabled):
		ErrorResponse(http.StatusForbidden, "login is disabled").Write(w)
		return
	case errors.Is(err, auth.ErrInvalidPassphrase):
		s.security.rejectedLogins.Add(1)
		ErrorResponse(http.StatusUnauthorized, "Kata sandi salah").Write(w)
		return
	case err != nil:
		InternalServerError("login failed").Write(w)
		return
	}

	// Replace any previous session rather than stacking them.
	s.gate.Logout(auth.TokenFromRequest(r))
	auth.SetCookie(w, token, s.secureCookies)
	NewJSONResponse().Body(sessionBody{Role: core.Admin}).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.gate != nil {
		s.gate.Logout(auth.TokenFromRequest(r))
	}
	auth.ClearCookie(w)
	NewJSONResponse().Body(sessionBody{Role: core.Guest}).Write(w)
}
