// Package router wires handlers and middleware onto the echo instance.
// Routes live under /v1; the session middleware is installed globally by
// main, so each group only adds the enforcing guards it needs.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/trades-marketplace/internal/handler"
	"github.com/iliyamo/trades-marketplace/internal/middleware"
)

// RegisterRoutes registers the unauthenticated infrastructure routes: the
// health check and the static mount serving stored uploads.
func RegisterRoutes(e *echo.Echo, db *sql.DB, rdb *redis.Client, uploadDir string) {
	e.GET("/healthz", handler.Health(db, rdb))
	e.Static("/uploads", uploadDir)
}

// RegisterAuth registers /v1/auth.  limit is applied to every auth route.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh, middleware.RequireRefresh(jwtSecret))
	g.GET("/status", a.Status)
	g.POST("/logout", a.Logout)
	g.PATCH("/request-reset-password", a.RequestPasswordReset)
	g.PATCH("/reset-password", a.ResetPassword)
}

// RegisterEmail registers the public contact form endpoint.
func RegisterEmail(e *echo.Echo, h *handler.EmailHandler, limit echo.MiddlewareFunc) {
	e.POST("/v1/email", h.Send, limit)
}
