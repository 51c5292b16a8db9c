// Package httpapi implements the HTTP Surface and Auth components (spec
// §6): a thin JSON translation layer over Store/Importer/RuleEngine/
// SendQueue, gated by a signed session cookie.
package httpapi

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	sessionCookieName = "meremail_session"
	sessionMaxAge     = 30 * 24 * time.Hour
)

// signSession implements §6's exact cookie algorithm:
// <timestamp>:<hex16>:<hex-sha256(timestamp:hex16:secret)>.
func signSession(secret string, now time.Time) (string, error) {
	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	hexNonce := hex.EncodeToString(nonce)
	ts := strconv.FormatInt(now.Unix(), 10)
	return ts + ":" + hexNonce + ":" + signaturePart(ts, hexNonce, secret), nil
}

func signaturePart(ts, hexNonce, secret string) string {
	sum := sha256.Sum256([]byte(ts + ":" + hexNonce + ":" + secret))
	return hex.EncodeToString(sum[:])
}

// verifySession checks the signature and the sliding expiration window,
// returning the cookie's issue time on success.
func verifySession(secret, cookie string) (time.Time, bool) {
	parts := strings.SplitN(cookie, ":", 3)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	ts, hexNonce, sig := parts[0], parts[1], parts[2]

	unixTs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	issued := time.Unix(unixTs, 0).UTC()
	if time.Since(issued) > sessionMaxAge {
		return time.Time{}, false
	}

	expected := signaturePart(ts, hexNonce, secret)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) != 1 {
		return time.Time{}, false
	}
	return issued, true
}

func setSessionCookie(w http.ResponseWriter, secret string, production bool) error {
	value, err := signSession(secret, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("httpapi: sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge.Seconds()),
	})
	return nil
}

func clearSessionCookie(w http.ResponseWriter, production bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// refreshSessionCookie re-signs the cookie with a fresh timestamp,
// implementing the sliding-expiration behavior (spec §6).
func refreshSessionCookie(w http.ResponseWriter, secret string, production bool) {
	_ = setSessionCookie(w, secret, production)
}
