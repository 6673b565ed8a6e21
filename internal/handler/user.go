package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trades-marketplace/internal/middleware"
	"github.com/iliyamo/trades-marketplace/internal/service"
)

// UserHandler serves the account directory, profile updates and ratings.
type UserHandler struct {
	users   *service.UserService
	ratings *service.RatingService
	// changed runs after a successful account mutation, typically to
	// drop cached directory listings.
	changed func(ctx context.Context)
}

func NewUserHandler(users *service.UserService, ratings *service.RatingService, changed func(ctx context.Context)) *UserHandler {
	if changed == nil {
		changed = func(context.Context) {}
	}
	return &UserHandler{users: users, ratings: ratings, changed: changed}
}

// List returns every account.
func (h *UserHandler) List(c echo.Context) error {
	out, err := h.users.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Professionals returns the accounts holding a trade role.
func (h *UserHandler) Professionals(c echo.Context) error {
	out, err := h.users.Professionals(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Clients returns the client accounts.
func (h *UserHandler) Clients(c echo.Context) error {
	out, err := h.users.Clients(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	out, err := h.users.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Update applies a partial profile update.  Only admins may change roles.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	actor, ok := middleware.CurrentIdentity(c)
	if !ok {
		return service.Unauthorized("unauthorized")
	}
	var req updateUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	out, err := h.users.Update(c.Request().Context(), actor, id, req.input())
	if err != nil {
		return err
	}
	h.changed(c.Request().Context())
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	h.changed(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// Rate records the current client's vote for the professional :id.
func (h *UserHandler) Rate(c echo.Context) error {
	ratedID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	rater, ok := middleware.CurrentIdentity(c)
	if !ok {
		return service.Unauthorized("unauthorized")
	}
	var req rateReq
	if err := bind(c, &req); err != nil {
		return err
	}
	out, err := h.ratings.Rate(c.Request().Context(), rater.AccountID, ratedID, req.Rating)
	if err != nil {
		return err
	}
	h.changed(c.Request().Context())
	return c.JSON(http.StatusOK, out)
}
