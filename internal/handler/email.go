package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trades-marketplace/internal/service"
)

// EmailHandler serves the public contact form.
type EmailHandler struct {
	contact *service.ContactService
}

func NewEmailHandler(contact *service.ContactService) *EmailHandler {
	return &EmailHandler{contact: contact}
}

// Send queues the contact message for delivery to the site inbox.
func (h *EmailHandler) Send(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.contact.Send(c.Request().Context(), req.message()); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, messageResp{Message: "message sent"})
}
