package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/trades-marketplace/internal/handler"
	"github.com/iliyamo/trades-marketplace/internal/middleware"
)

// uploadBodyLimit fits ten 5 MiB photos plus multipart overhead.
const uploadBodyLimit = "52M"

// RegisterUpload registers /v1/upload.  Writes are limited to the account
// owner or an admin; the portfolio listing is public.
func RegisterUpload(e *echo.Echo, h *handler.UploadHandler, jwtSecret string) {
	g := e.Group("/v1/upload")
	g.GET("/work/:id", h.ListWorkPhotos)

	owner := []echo.MiddlewareFunc{
		middleware.RequireAuth(jwtSecret),
		middleware.RequireSelfOrAdmin("id"),
	}
	g.GET("/dni/:id", h.GetIdentityDocuments, owner...)

	w := g.Group("", echomw.BodyLimit(uploadBodyLimit))
	w.POST("/profile/:id", h.ProfilePicture, owner...)
	w.POST("/criminal-record/:id", h.CriminalRecord, owner...)
	w.POST("/dni/:id", h.IdentityDocuments, owner...)
	w.POST("/work/:id", h.WorkPhotos, owner...)
	w.DELETE("/:id/:filename", h.DeleteWorkPhoto, owner...)
}
