package httpapi

import "net/http"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin implements "POST /api/auth/login" (spec §6).
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	if !checkCredentials(s.cfg, req.Username, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := setSessionCookie(w, s.cfg.AuthCookieSecret, s.cfg.Production); err != nil {
		s.log.Error("login: set session cookie failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleLogout implements "POST /api/auth/logout".
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w, s.cfg.Production)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleMe implements "GET /api/auth/me" — a liveness probe for the
// session, since requireAuth has already validated the cookie by the time
// this handler runs.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}
