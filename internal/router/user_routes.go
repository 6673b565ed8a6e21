package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trades-marketplace/internal/handler"
	"github.com/iliyamo/trades-marketplace/internal/middleware"
	"github.com/iliyamo/trades-marketplace/internal/model"
)

// RegisterUser registers /v1/user.  Directory listings are public and go
// through cache; profile mutations require the owner or an admin and
// ratings can only be cast by clients.
func RegisterUser(e *echo.Echo, h *handler.UserHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/user")
	g.GET("", h.List, cache)
	g.GET("/professionals", h.Professionals, cache)
	g.GET("/clients", h.Clients, cache)
	g.GET("/:id", h.Get, cache)

	auth := middleware.RequireAuth(jwtSecret)
	g.PUT("/rate/:id", h.Rate, auth, middleware.RequireRole(model.RoleClient))
	g.PUT("/:id", h.Update, auth, middleware.RequireSelfOrAdmin("id"))
	g.DELETE("/:id", h.Delete, auth, middleware.RequireSelfOrAdmin("id"))
}
