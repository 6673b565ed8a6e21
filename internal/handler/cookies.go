package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// sessionCookie builds the cookie shape shared by both tokens.  Clearing
// uses the same attributes so browsers match and drop the stored cookie.
func sessionCookie(name, value string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func setSessionCookie(c echo.Context, name, value string, ttl time.Duration, secure bool) {
	c.SetCookie(sessionCookie(name, value, ttl, secure))
}

func clearSessionCookie(c echo.Context, name string, secure bool) {
	ck := sessionCookie(name, "", 0, secure)
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	c.SetCookie(ck)
}
