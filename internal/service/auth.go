package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/trades-marketplace/internal/config"
	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/repository"
	"github.com/iliyamo/trades-marketplace/internal/utils"
)

// AccountStore is the persistence the account flows need.  It is satisfied
// by *repository.AccountRepo.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByEmailWithSecret(ctx context.Context, email string) (*model.Account, error)
	FindByID(ctx context.Context, id uint64) (model.Account, error)
	FindByResetToken(ctx context.Context, token string) (model.Account, error)
	Create(ctx context.Context, a *model.Account) error
	Save(ctx context.Context, a *model.Account) error
	Delete(ctx context.Context, id uint64) error
}

// Mailer delivers outbound mail.  Failures are returned to the caller as is.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to model.PublicAccount, resetToken string) error
	SendContactMessage(ctx context.Context, msg ContactMessage) error
}

// AuthService runs registration, login, refresh and password reset.  It
// keeps no session state: a session is the pair of signed tokens it issues.
type AuthService struct {
	cfg      config.AuthConfig
	accounts AccountStore
	mailer   Mailer
	now      func() time.Time
	newToken func() string
}

func NewAuthService(cfg config.AuthConfig, accounts AccountStore, mailer Mailer) *AuthService {
	return &AuthService{
		cfg:      cfg,
		accounts: accounts,
		mailer:   mailer,
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

// WithClock replaces the time source used for token issuance and reset
// expiry.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// RegisterInput carries a new account's fields.  Role defaults to client.
type RegisterInput struct {
	Name           string
	Lastname       string
	Email          string
	Password       string
	Phone          string
	Role           model.Role
	ProfilePicture string
}

// Session is the result of a successful register or login.
type Session struct {
	Account model.PublicAccount
	Access  utils.SignedToken
	Refresh utils.SignedToken
}

// Register creates an account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Password = strings.TrimSpace(in.Password)
	if in.Password == "" {
		return Session{}, BadRequest("password is required")
	}
	if in.Role == "" {
		in.Role = model.RoleClient
	}
	if !in.Role.Valid() {
		return Session{}, BadRequest("invalid role")
	}
	if in.Role == model.RoleAdmin {
		return Session{}, Forbidden("admin accounts cannot self-register")
	}

	existing, err := s.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		return Session{}, Internal("find account", err)
	}
	if existing != nil {
		return Session{}, Conflict("email already registered")
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return Session{}, Internal("hash password", err)
	}
	acc := model.Account{
		Name:           strings.TrimSpace(in.Name),
		Lastname:       strings.TrimSpace(in.Lastname),
		Email:          repository.NormalizeEmail(in.Email),
		PasswordHash:   hash,
		Role:           in.Role,
		Phone:          strings.TrimSpace(in.Phone),
		ProfilePicture: in.ProfilePicture,
	}
	if err := s.accounts.Create(ctx, &acc); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, Conflict("email already registered")
		}
		return Session{}, Internal("create account", err)
	}
	return s.open(acc)
}

// Login checks an email and password pair.  Unknown emails and wrong
// passwords fail identically and cost the same bcrypt work.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	acc, err := s.accounts.FindByEmailWithSecret(ctx, email)
	if err != nil {
		return Session{}, Internal("find account", err)
	}
	if acc == nil {
		utils.DummyCompare(s.cfg.BcryptCost, password)
		return Session{}, Unauthorized("invalid credentials")
	}
	if !utils.VerifyPassword(acc.PasswordHash, password) {
		return Session{}, Unauthorized("invalid credentials")
	}
	return s.open(*acc)
}

func (s *AuthService) open(acc model.Account) (Session, error) {
	now := s.now()
	claim := utils.ClaimFor(acc)
	access, err := utils.IssueToken(s.cfg.JWTSecret, utils.AccessToken, claim, s.cfg.AccessTTL, now)
	if err != nil {
		return Session{}, Internal("issue access token", err)
	}
	refresh, err := utils.IssueToken(s.cfg.JWTSecret, utils.RefreshToken, claim, s.cfg.RefreshTTL, now)
	if err != nil {
		return Session{}, Internal("issue refresh token", err)
	}
	return Session{Account: acc.Public(), Access: access, Refresh: refresh}, nil
}

// Refresh issues a new access token for the holder of a verified refresh
// claim.  The account is reloaded so the new token carries current data; the
// refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, claim utils.SessionClaim) (utils.SignedToken, error) {
	acc, err := s.accounts.FindByID(ctx, claim.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.SignedToken{}, Unauthorized("invalid refresh token")
		}
		return utils.SignedToken{}, Internal("find account", err)
	}
	access, err := utils.IssueToken(s.cfg.JWTSecret, utils.AccessToken, utils.ClaimFor(acc), s.cfg.AccessTTL, s.now())
	if err != nil {
		return utils.SignedToken{}, Internal("issue access token", err)
	}
	return access, nil
}

// RequestPasswordReset stores a fresh reset token on the account and mails
// the reset link.  A mailer failure surfaces as an internal error.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	found, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return Internal("find account", err)
	}
	if found == nil {
		return NotFound("account not found")
	}
	acc, err := s.accounts.FindByID(ctx, found.ID)
	if err != nil {
		return Internal("load account", err)
	}

	token := s.newToken()
	acc.SetResetToken(token, s.now().Add(s.cfg.ResetTTL))
	if err := s.accounts.Save(ctx, &acc); err != nil {
		return Internal("save reset token", err)
	}
	if err := s.mailer.SendPasswordReset(ctx, acc.Public(), token); err != nil {
		return Internal("send reset mail", err)
	}
	return nil
}

// ConfirmPasswordReset replaces the password of the account holding token
// and clears the token in the same write.  Unknown and expired tokens fail
// the same way.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	password = strings.TrimSpace(password)
	if password == "" {
		return BadRequest("password is required")
	}
	acc, err := s.accounts.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("invalid or expired reset token")
		}
		return Internal("find reset token", err)
	}
	if !acc.ResetTokenActive(s.now()) {
		return NotFound("invalid or expired reset token")
	}

	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return Internal("hash password", err)
	}
	acc.PasswordHash = hash
	acc.ClearResetToken()
	if err := s.accounts.Save(ctx, &acc); err != nil {
		return Internal("save password", err)
	}
	return nil
}
