package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trades-marketplace/internal/config"
	"github.com/iliyamo/trades-marketplace/internal/middleware"
	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/service"
	"github.com/iliyamo/trades-marketplace/internal/utils"
)

// AuthFlow is the part of service.AuthService the auth endpoints use.
type AuthFlow interface {
	Register(ctx context.Context, in service.RegisterInput) (service.Session, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	Refresh(ctx context.Context, claim utils.SessionClaim) (utils.SignedToken, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, password string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	cfg  config.AuthConfig
	auth AuthFlow
}

func NewAuthHandler(cfg config.AuthConfig, auth AuthFlow) *AuthHandler {
	return &AuthHandler{cfg: cfg, auth: auth}
}

// ----- responses -----

type sessionResp struct {
	User           model.PublicAccount `json:"user"`
	ExpiresIn      int64               `json:"expires_in"`
	ExpirationDate time.Time           `json:"expiration_date"`
}

type refreshResp struct {
	Token          string    `json:"token"`
	ExpirationDate time.Time `json:"expiration_date"`
}

type messageResp struct {
	Message string `json:"message"`
}

const opTimeout = 5 * time.Second

// startSession sets both cookies and answers with the public account and
// the access token expiry.
func (h *AuthHandler) startSession(c echo.Context, status int, s service.Session) error {
	setSessionCookie(c, middleware.AccessCookie, s.Access.Token, h.cfg.AccessTTL, h.cfg.CookieSecure)
	setSessionCookie(c, middleware.RefreshCookie, s.Refresh.Token, h.cfg.RefreshTTL, h.cfg.CookieSecure)
	return c.JSON(status, sessionResp{
		User:           s.Account,
		ExpiresIn:      int64(h.cfg.AccessTTL / time.Second),
		ExpirationDate: s.Access.Exp,
	})
}

// Register creates a client or professional account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	s, err := h.auth.Register(ctx, service.RegisterInput{
		Name:           req.Name,
		Lastname:       req.Lastname,
		Email:          req.Email,
		Password:       req.Password,
		Phone:          req.Phone,
		Role:           req.Role,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		return err
	}
	return h.startSession(c, http.StatusCreated, s)
}

// Login verifies the credentials and sets fresh session cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	s, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.startSession(c, http.StatusOK, s)
}

// Refresh issues a new access token for the identity of the verified
// refresh cookie.  The refresh token itself is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	claim, ok := middleware.RefreshIdentity(c)
	if !ok {
		return service.Unauthorized("refresh token required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	access, err := h.auth.Refresh(ctx, claim)
	if err != nil {
		return err
	}
	setSessionCookie(c, middleware.AccessCookie, access.Token, h.cfg.AccessTTL, h.cfg.CookieSecure)
	return c.JSON(http.StatusOK, refreshResp{Token: access.Token, ExpirationDate: access.Exp})
}

// Status reports the identity decoded by the session middleware.
func (h *AuthHandler) Status(c echo.Context) error {
	if middleware.TokenExpired(c) {
		return service.Unauthorized("token expired")
	}
	claim, ok := middleware.CurrentIdentity(c)
	if !ok {
		return service.Forbidden("not authenticated")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": claim})
}

// Logout expires both cookies.  It succeeds whether or not they were set.
func (h *AuthHandler) Logout(c echo.Context) error {
	clearSessionCookie(c, middleware.AccessCookie, h.cfg.CookieSecure)
	clearSessionCookie(c, middleware.RefreshCookie, h.cfg.CookieSecure)
	return c.JSON(http.StatusOK, messageResp{Message: "logged out successfully"})
}

// RequestPasswordReset mails a reset link to a registered address.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req requestResetReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	if err := h.auth.RequestPasswordReset(ctx, req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "password reset email sent"})
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	if err := h.auth.ConfirmPasswordReset(ctx, req.ResetPasswordToken, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "password updated"})
}
