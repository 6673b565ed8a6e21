package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trades-marketplace/internal/model"
)

// RequireRole enforces that the current identity holds one of roles.  An
// absent identity is also forbidden; RequireAuth is expected to run first so
// that unauthenticated callers get 401 before reaching this guard.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claim, ok := CurrentIdentity(c)
			if !ok || !allowed[claim.Role] {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// RequireSelfOrAdmin lets the request through when the path parameter
// param names the current identity or when the identity is an admin.
func RequireSelfOrAdmin(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claim, ok := CurrentIdentity(c)
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			if claim.Role == model.RoleAdmin {
				return next(c)
			}
			id, err := strconv.ParseUint(c.Param(param), 10, 64)
			if err != nil || id != claim.AccountID {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
