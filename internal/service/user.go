package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/iliyamo/trades-marketplace/internal/config"
	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/repository"
	"github.com/iliyamo/trades-marketplace/internal/utils"
)

// AccountLister lists accounts for the directory endpoints.
type AccountLister interface {
	ListAll(ctx context.Context) ([]model.Account, error)
	ListByRoles(ctx context.Context, roles ...model.Role) ([]model.Account, error)
	ListExcludingRoles(ctx context.Context, roles ...model.Role) ([]model.Account, error)
}

// FileRemover deletes a stored file by the public URL it was served under.
type FileRemover interface {
	Remove(url string) error
}

// UserService reads, edits and deletes accounts.
type UserService struct {
	cfg      config.AuthConfig
	accounts AccountStore
	lister   AccountLister
	files    FileRemover
}

func NewUserService(cfg config.AuthConfig, accounts AccountStore, lister AccountLister, files FileRemover) *UserService {
	return &UserService{cfg: cfg, accounts: accounts, lister: lister, files: files}
}

func (s *UserService) List(ctx context.Context) ([]model.PublicAccount, error) {
	all, err := s.lister.ListAll(ctx)
	if err != nil {
		return nil, Internal("list accounts", err)
	}
	return model.PublicAccounts(all), nil
}

// Professionals lists every account that is neither a client nor an admin.
func (s *UserService) Professionals(ctx context.Context) ([]model.PublicAccount, error) {
	list, err := s.lister.ListExcludingRoles(ctx, model.RoleClient, model.RoleAdmin)
	if err != nil {
		return nil, Internal("list professionals", err)
	}
	return model.PublicAccounts(list), nil
}

func (s *UserService) Clients(ctx context.Context) ([]model.PublicAccount, error) {
	list, err := s.lister.ListByRoles(ctx, model.RoleClient)
	if err != nil {
		return nil, Internal("list clients", err)
	}
	return model.PublicAccounts(list), nil
}

func (s *UserService) Get(ctx context.Context, id uint64) (model.PublicAccount, error) {
	acc, err := s.load(ctx, id)
	if err != nil {
		return model.PublicAccount{}, err
	}
	return acc.Public(), nil
}

func (s *UserService) load(ctx context.Context, id uint64) (model.Account, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, NotFound("user not found")
		}
		return model.Account{}, Internal("find account", err)
	}
	return acc, nil
}

// UpdateInput holds the editable account fields.  Nil fields are left as
// they are.
type UpdateInput struct {
	Name        *string
	Lastname    *string
	Email       *string
	Phone       *string
	Description *string
	Password    *string
	Role        *model.Role
}

// Update applies in to account id on behalf of actor.  Only admins may
// change a role.  A new password is hashed once before it is stored.
func (s *UserService) Update(ctx context.Context, actor utils.SessionClaim, id uint64, in UpdateInput) (model.PublicAccount, error) {
	acc, err := s.load(ctx, id)
	if err != nil {
		return model.PublicAccount{}, err
	}

	if in.Name != nil {
		acc.Name = strings.TrimSpace(*in.Name)
	}
	if in.Lastname != nil {
		acc.Lastname = strings.TrimSpace(*in.Lastname)
	}
	if in.Email != nil {
		acc.Email = repository.NormalizeEmail(*in.Email)
	}
	if in.Phone != nil {
		acc.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Description != nil {
		acc.Description = strings.TrimSpace(*in.Description)
	}
	if in.Role != nil && *in.Role != acc.Role {
		if actor.Role != model.RoleAdmin {
			return model.PublicAccount{}, Forbidden("only admins can change roles")
		}
		if !in.Role.Valid() {
			return model.PublicAccount{}, BadRequest("invalid role")
		}
		acc.Role = *in.Role
	}
	if in.Password != nil {
		plain := strings.TrimSpace(*in.Password)
		if plain == "" {
			return model.PublicAccount{}, BadRequest("password is required")
		}
		hash, err := utils.HashPassword(plain, s.cfg.BcryptCost)
		if err != nil {
			return model.PublicAccount{}, Internal("hash password", err)
		}
		acc.PasswordHash = hash
	}

	if err := s.accounts.Save(ctx, &acc); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.PublicAccount{}, Conflict("email already registered")
		}
		return model.PublicAccount{}, Internal("save account", err)
	}
	return acc.Public(), nil
}

// Delete removes an account and the files stored for it.  A file that can
// no longer be removed does not block the deletion.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	acc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("user not found")
		}
		return Internal("delete account", err)
	}
	for _, url := range []string{acc.ProfilePicture, acc.FrontDNI, acc.BackDNI, acc.CriminalRecord} {
		if url == "" {
			continue
		}
		if err := s.files.Remove(url); err != nil {
			slog.WarnContext(ctx, "remove account file failed", "account_id", id, "url", url, "err", err)
		}
	}
	return nil
}
