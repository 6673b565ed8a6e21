package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trades-marketplace/internal/middleware"
	"github.com/iliyamo/trades-marketplace/internal/service"
)

var kindStatus = map[service.Kind]int{
	service.KindBadRequest:   http.StatusBadRequest,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindForbidden:    http.StatusForbidden,
	service.KindNotFound:     http.StatusNotFound,
	service.KindConflict:     http.StatusConflict,
	service.KindInternal:     http.StatusInternalServerError,
}

// StatusOf maps an error returned by a handler to its HTTP status and the
// message safe to show the client.
func StatusOf(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		if he.Code >= http.StatusInternalServerError {
			msg = "internal server error"
		}
		return he.Code, msg
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, verrs.Error()
	}
	var se *service.Error
	if errors.As(err, &se) {
		status, ok := kindStatus[se.Kind]
		if !ok || status == http.StatusInternalServerError {
			return http.StatusInternalServerError, "internal server error"
		}
		return status, se.Message
	}
	return http.StatusInternalServerError, "internal server error"
}

// HTTPErrorHandler is installed as echo's error handler.  Every failure is
// answered as {"error": message}; 5xx are logged and reported to Sentry and
// never expose the underlying error.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, msg := StatusOf(err)
	if status >= http.StatusInternalServerError {
		attrs := []any{
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"err", err,
		}
		if claim, ok := middleware.CurrentIdentity(c); ok {
			attrs = append(attrs, "user", claim.AccountID)
		}
		slog.Error("request failed", attrs...)
		sentry.CaptureException(err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, echo.Map{"error": msg})
	}
	if werr != nil {
		slog.Error("write error response", "err", werr)
	}
}
