package session

import (
	"errors"
	"net/http"
)

// CookieName is the name of the session cookie.
const CookieName = "coupon_session"

// ErrNoSession is returned when a request carries no session id.
var ErrNoSession = errors.New("session not found")

// NewCookie creates a session cookie with security settings inferred from
// the request scheme: Secure+Strict over HTTPS, Lax over plain HTTP for
// local development.
func NewCookie(sessionID string, maxAge int, r *http.Request) *http.Cookie {
	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteStrictMode
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}

// DeleteCookie creates a cookie that removes the session cookie.
func DeleteCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// IDFromRequest extracts the session id from the request cookie.
func IDFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrNoSession
		}
		return "", err
	}
	if cookie.Value == "" {
		return "", ErrNoSession
	}
	return cookie.Value, nil
}
