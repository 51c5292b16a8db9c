package httpapi

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jcgurango/meremail/internal/config"
)

type contextKey int

const sessionIssuedAtKey contextKey = iota

// requireAuth gates every /api route except /api/auth/login behind a valid
// session cookie (spec §6 "All protected endpoints require a valid session
// cookie; unauthenticated requests receive 401").
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		issued, ok := verifySession(s.cfg.AuthCookieSecret, cookie.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		refreshSessionCookie(w, s.cfg.AuthCookieSecret, s.cfg.Production)
		ctx := context.WithValue(r.Context(), sessionIssuedAtKey, issued)
		next(w, r.WithContext(ctx))
	}
}

// checkCredentials compares the username in constant time and the password
// against its bcrypt hash (AUTH_PASSWORD holds the hash produced by
// `meremaild auth hash-password`, not the plaintext), adding a randomized
// 100-200ms delay on failure only (spec §6 "POST /api/auth/login").
func checkCredentials(cfg config.Config, username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.AuthUsername)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(cfg.AuthPassword), []byte(password)) == nil
	if userOK && passOK {
		return true
	}
	time.Sleep(randomDelay(100*time.Millisecond, 200*time.Millisecond))
	return false
}

func randomDelay(min, max time.Duration) time.Duration {
	span := max - min
	if span <= 0 {
		return min
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return min
	}
	n := binary.BigEndian.Uint64(b[:]) % uint64(span)
	return min + time.Duration(n)
}
