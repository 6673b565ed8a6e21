package middleware

// identity.go holds the context keys shared by the session, guard, rate
// limit and cache middleware, plus the accessors handlers use to read them.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trades-marketplace/internal/utils"
)

// Cookie names carrying the access and refresh tokens.
const (
	AccessCookie  = "token"
	RefreshCookie = "refreshToken"
)

const (
	identityKey     = "identity"
	tokenExpiredKey = "token_expired"
	refreshKey      = "refresh_identity"
)

// CurrentIdentity returns the claim attached by Session or RequireAuth.
func CurrentIdentity(c echo.Context) (utils.SessionClaim, bool) {
	claim, ok := c.Get(identityKey).(utils.SessionClaim)
	return claim, ok
}

// TokenExpired reports whether Session saw an access cookie past its expiry.
func TokenExpired(c echo.Context) bool {
	v, _ := c.Get(tokenExpiredKey).(bool)
	return v
}

// RefreshIdentity returns the claim verified by RequireRefresh.
func RefreshIdentity(c echo.Context) (utils.SessionClaim, bool) {
	claim, ok := c.Get(refreshKey).(utils.SessionClaim)
	return claim, ok
}

func setIdentity(c echo.Context, claim utils.SessionClaim) {
	c.Set(identityKey, claim)
	c.Set(tokenExpiredKey, false)
}

// userID is the identity id as a string, or "anon" for anonymous requests.
func userID(c echo.Context) string {
	if claim, ok := CurrentIdentity(c); ok {
		return strconv.FormatUint(claim.AccountID, 10)
	}
	return "anon"
}
