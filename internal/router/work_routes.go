package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trades-marketplace/internal/handler"
	"github.com/iliyamo/trades-marketplace/internal/middleware"
	"github.com/iliyamo/trades-marketplace/internal/model"
)

// RegisterWork registers /v1/work.  Reading requires a session; creating,
// editing and deleting work orders is reserved to admins.
func RegisterWork(e *echo.Echo, h *handler.WorkHandler, jwtSecret string) {
	g := e.Group("/v1/work", middleware.RequireAuth(jwtSecret))
	g.GET("", h.List)
	g.GET("/client/:id", h.ByClient)
	g.GET("/professional/:id", h.ByProfessional)
	g.GET("/receipt/:id", h.Receipt)
	g.GET("/receipt/professional/:id", h.ReceiptsByProfessional)

	admin := middleware.RequireRole(model.RoleAdmin)
	g.POST("", h.Create, admin)
	g.PUT("/:id", h.Update, admin)
	g.DELETE("/:id", h.Delete, admin)
}
