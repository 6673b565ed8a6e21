package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/trades-marketplace/internal/config"
	"github.com/iliyamo/trades-marketplace/internal/middleware"
	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/service"
	"github.com/iliyamo/trades-marketplace/internal/utils"
)

const testSecret = "handler-secret"

var testCfg = config.AuthConfig{
	JWTSecret:  testSecret,
	AccessTTL:  15 * time.Minute,
	RefreshTTL: 7 * 24 * time.Hour,
	ResetTTL:   time.Hour,
}

// stubFlow answers every auth call with canned values.
type stubFlow struct {
	session  service.Session
	err      error
	register service.RegisterInput
	refresh  utils.SessionClaim
}

func (s *stubFlow) Register(_ context.Context, in service.RegisterInput) (service.Session, error) {
	s.register = in
	return s.session, s.err
}

func (s *stubFlow) Login(context.Context, string, string) (service.Session, error) {
	return s.session, s.err
}

func (s *stubFlow) Refresh(_ context.Context, claim utils.SessionClaim) (utils.SignedToken, error) {
	s.refresh = claim
	return s.session.Access, s.err
}

func (s *stubFlow) RequestPasswordReset(context.Context, string) error { return s.err }

func (s *stubFlow) ConfirmPasswordReset(context.Context, string, string) error { return s.err }

func newServer(h *AuthHandler) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Use(middleware.Session(testSecret))
	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)
	e.POST("/auth/refresh", h.Refresh, middleware.RequireRefresh(testSecret))
	e.GET("/auth/status", h.Status)
	e.POST("/auth/logout", h.Logout)
	e.PATCH("/auth/reset-password", h.ResetPassword)
	return e
}

func do(e *echo.Echo, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestRegisterSetsSessionCookies(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)
	flow := &stubFlow{session: service.Session{
		Account: model.PublicAccount{ID: 3, Name: "Ana", Email: "ana@example.com", Role: model.RoleClient},
		Access:  utils.SignedToken{Token: "access-token", Exp: exp},
		Refresh: utils.SignedToken{Token: "refresh-token", Exp: exp.Add(time.Hour)},
	}}
	e := newServer(NewAuthHandler(testCfg, flow))

	rec := do(e, http.MethodPost, "/auth/register",
		`{"name":"Ana","lastname":"Lopez","email":"ana@example.com","password":"  secret1  "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "secret1", flow.register.Password)

	access := cookieNamed(rec, middleware.AccessCookie)
	require.NotNil(t, access)
	assert.Equal(t, "access-token", access.Value)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, 900, access.MaxAge)

	refresh := cookieNamed(rec, middleware.RefreshCookie)
	require.NotNil(t, refresh)
	assert.Equal(t, 7*24*3600, refresh.MaxAge)

	var body sessionResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(3), body.User.ID)
	assert.Equal(t, int64(900), body.ExpiresIn)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterValidationAndConflict(t *testing.T) {
	flow := &stubFlow{}
	e := newServer(NewAuthHandler(testCfg, flow))

	rec := do(e, http.MethodPost, "/auth/register", `{"name":"Ana","lastname":"Lopez","email":"nope","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), "email")

	rec = do(e, http.MethodPost, "/auth/register", `{"name":"Ana","lastname":"Lopez","email":"a@b.co","password":"secret1","role":"wizard"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	flow.err = service.Conflict("email already registered")
	rec = do(e, http.MethodPost, "/auth/register", `{"name":"Ana","lastname":"Lopez","email":"a@b.co","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email already registered", errorBody(t, rec))
}

func TestStatusScenarios(t *testing.T) {
	e := newServer(NewAuthHandler(testCfg, &stubFlow{}))
	claim := utils.SessionClaim{AccountID: 9, Name: "Bo", Email: "bo@example.com", Role: model.RoleAdmin}

	expired, err := utils.IssueToken(testSecret, utils.AccessToken, claim, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	rec := do(e, http.MethodGet, "/auth/status", "", &http.Cookie{Name: middleware.AccessCookie, Value: expired.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token expired", errorBody(t, rec))

	rec = do(e, http.MethodGet, "/auth/status", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not authenticated", errorBody(t, rec))

	valid, err := utils.IssueToken(testSecret, utils.AccessToken, claim, time.Minute, time.Now())
	require.NoError(t, err)
	rec = do(e, http.MethodGet, "/auth/status", "", &http.Cookie{Name: middleware.AccessCookie, Value: valid.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		User utils.SessionClaim `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, claim, body.User)
}

func TestLogoutClearsCookies(t *testing.T) {
	e := newServer(NewAuthHandler(testCfg, &stubFlow{}))
	rec := do(e, http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	for _, name := range []string{middleware.AccessCookie, middleware.RefreshCookie} {
		ck := cookieNamed(rec, name)
		require.NotNil(t, ck, name)
		assert.Empty(t, ck.Value)
		assert.Equal(t, -1, ck.MaxAge)
		assert.Equal(t, "/", ck.Path)
		assert.True(t, ck.HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	}
}

func TestRefreshUsesRefreshCookie(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).UTC()
	flow := &stubFlow{session: service.Session{Access: utils.SignedToken{Token: "new-access", Exp: exp}}}
	e := newServer(NewAuthHandler(testCfg, flow))

	rec := do(e, http.MethodPost, "/auth/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	claim := utils.SessionClaim{AccountID: 4, Role: model.RoleCarpenter}
	refresh, err := utils.IssueToken(testSecret, utils.RefreshToken, claim, time.Hour, time.Now())
	require.NoError(t, err)
	rec = do(e, http.MethodPost, "/auth/refresh", "", &http.Cookie{Name: middleware.RefreshCookie, Value: refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(4), flow.refresh.AccountID)
	assert.Equal(t, "new-access", cookieNamed(rec, middleware.AccessCookie).Value)
	assert.Nil(t, cookieNamed(rec, middleware.RefreshCookie))

	var body refreshResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "new-access", body.Token)
}

func TestResetPasswordRequiresUUID(t *testing.T) {
	flow := &stubFlow{}
	e := newServer(NewAuthHandler(testCfg, flow))

	rec := do(e, http.MethodPatch, "/auth/reset-password", `{"reset_password_token":"abc","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	flow.err = service.NotFound("invalid or expired reset token")
	rec = do(e, http.MethodPatch, "/auth/reset-password",
		`{"reset_password_token":"0b5e6f1c-3a7d-4c4e-9f1e-2d3c4b5a6f70","password":"secret1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{service.BadRequest("bad"), http.StatusBadRequest, "bad"},
		{service.Unauthorized("who"), http.StatusUnauthorized, "who"},
		{service.Forbidden("you cannot rate yourself"), http.StatusForbidden, "you cannot rate yourself"},
		{service.NotFound("gone"), http.StatusNotFound, "gone"},
		{service.Conflict("dup"), http.StatusConflict, "dup"},
		{service.Internal("save", errors.New("dial tcp: secret host")), http.StatusInternalServerError, "internal server error"},
		{errors.New("raw driver failure"), http.StatusInternalServerError, "internal server error"},
		{echo.NewHTTPError(http.StatusForbidden, "forbidden"), http.StatusForbidden, "forbidden"},
		{echo.ErrNotFound, http.StatusNotFound, "Not Found"},
	}
	for _, tc := range cases {
		status, msg := StatusOf(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.msg, msg, tc.err.Error())
	}
}

func TestDTOValidation(t *testing.T) {
	ok := createWorkReq{
		Address: "Main St 1", Service: "roof", Description: "fix",
		PaymentMethod: model.PaymentCash, ClientID: 1, ProjectLeaderID: 2,
		BudgetNumber: new(uint32),
	}
	assert.NoError(t, ok.Validate())

	missing := ok
	missing.BudgetNumber = nil
	assert.Error(t, missing.Validate())

	badMethod := ok
	badMethod.PaymentMethod = "barter"
	assert.Error(t, badMethod.Validate())

	rate := rateReq{Rating: 6}
	assert.Error(t, rate.Validate())
	rate.Rating = 5
	assert.NoError(t, rate.Validate())

	role := model.Role("wizard")
	assert.Error(t, (&updateUserReq{Role: &role}).Validate())
	assert.NoError(t, (&updateUserReq{}).Validate())
}
