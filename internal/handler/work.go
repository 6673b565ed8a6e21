package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trades-marketplace/internal/service"
)

// WorkHandler serves work orders and their receipts.
type WorkHandler struct {
	works *service.WorkService
}

func NewWorkHandler(works *service.WorkService) *WorkHandler {
	return &WorkHandler{works: works}
}

// Create registers a work order together with its receipt.
func (h *WorkHandler) Create(c echo.Context) error {
	var req createWorkReq
	if err := bind(c, &req); err != nil {
		return err
	}
	w, err := h.works.Create(c.Request().Context(), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *WorkHandler) List(c echo.Context) error {
	out, err := h.works.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WorkHandler) ByClient(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	out, err := h.works.ByClient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WorkHandler) ByProfessional(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	out, err := h.works.ByProfessional(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WorkHandler) Update(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req updateWorkReq
	if err := bind(c, &req); err != nil {
		return err
	}
	w, err := h.works.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

func (h *WorkHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.works.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Receipt returns the receipt of work :id.
func (h *WorkHandler) Receipt(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	r, err := h.works.Receipt(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// ReceiptsByProfessional lists the receipts of works led by professional :id.
func (h *WorkHandler) ReceiptsByProfessional(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	out, err := h.works.ReceiptsByProfessional(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
