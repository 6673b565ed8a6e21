package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trades-marketplace/internal/utils"
)

// Session decodes the access cookie on every request.  It never rejects:
// a valid token attaches the identity, an expired one raises the expired
// flag, anything else is logged and the request continues anonymously.
func Session(secret string) echo.MiddlewareFunc {
	return sessionWithClock(secret, time.Now)
}

func sessionWithClock(secret string, now func() time.Time) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(AccessCookie)
			if err != nil || cookie.Value == "" {
				return next(c)
			}
			claims, err := utils.VerifyToken(secret, utils.AccessToken, cookie.Value, now())
			switch {
			case err == nil:
				setIdentity(c, claims.SessionClaim)
			case errors.Is(err, utils.ErrTokenExpired):
				c.Set(tokenExpiredKey, true)
			default:
				slog.Warn("session token rejected",
					"path", c.Request().URL.Path,
					"ip", c.RealIP(),
					"err", err)
			}
			return next(c)
		}
	}
}

// RequireAuth rejects the request with 401 unless a valid access token is
// present, either already attached by Session or sent as a Bearer header.
// Refresh tokens are never accepted here.
func RequireAuth(secret string) echo.MiddlewareFunc {
	return requireAuthWithClock(secret, time.Now)
}

func requireAuthWithClock(secret string, now func() time.Time) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := CurrentIdentity(c); ok {
				return next(c)
			}
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if raw, ok := strings.CutPrefix(auth, "Bearer "); ok && raw != "" {
				claims, err := utils.VerifyToken(secret, utils.AccessToken, strings.TrimSpace(raw), now())
				if err == nil {
					setIdentity(c, claims.SessionClaim)
					return next(c)
				}
				if errors.Is(err, utils.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			if TokenExpired(c) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
	}
}

// RequireRefresh verifies the refresh cookie and exposes its claim through
// RefreshIdentity.  Missing or invalid cookies answer 401.
func RequireRefresh(secret string) echo.MiddlewareFunc {
	return requireRefreshWithClock(secret, time.Now)
}

func requireRefreshWithClock(secret string, now func() time.Time) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(RefreshCookie)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "refresh token required")
			}
			claims, err := utils.VerifyToken(secret, utils.RefreshToken, cookie.Value, now())
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "refresh token expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
			}
			c.Set(refreshKey, claims.SessionClaim)
			return next(c)
		}
	}
}
