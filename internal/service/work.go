package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/repository"
)

// WorkStore is the persistence of works and receipts.  It is satisfied by
// *repository.WorkRepo.
type WorkStore interface {
	CreateWithReceipt(ctx context.Context, w *model.Work, budgetNumber uint32) error
	GetByID(ctx context.Context, id uint64) (model.Work, error)
	ListAll(ctx context.Context) ([]model.Work, error)
	ListByClient(ctx context.Context, clientID uint64) ([]model.Work, error)
	ListByProfessional(ctx context.Context, professionalID uint64) ([]model.Work, error)
	Update(ctx context.Context, w *model.Work) error
	Delete(ctx context.Context, id uint64) error
	ReceiptByWork(ctx context.Context, workID uint64) (model.Receipt, error)
	ReceiptsByProfessional(ctx context.Context, professionalID uint64) ([]model.Receipt, error)
}

// WorkService manages work orders.  Every work gets exactly one receipt,
// created with it.
type WorkService struct {
	works    WorkStore
	accounts AccountStore
}

func NewWorkService(works WorkStore, accounts AccountStore) *WorkService {
	return &WorkService{works: works, accounts: accounts}
}

// CreateWorkInput describes a new work and the budget number of its receipt.
type CreateWorkInput struct {
	Address         string
	Service         string
	Description     string
	Value           decimal.Decimal
	Commission      decimal.Decimal
	PaymentMethod   model.PaymentMethod
	Status          model.WorkStatus
	BudgetNumber    uint32
	ClientID        uint64
	ProjectLeaderID uint64
}

func (s *WorkService) Create(ctx context.Context, in CreateWorkInput) (model.Work, error) {
	if in.Status == "" {
		in.Status = model.WorkPending
	}
	if err := checkWorkFields(in.Value, in.Commission, in.PaymentMethod, in.Status); err != nil {
		return model.Work{}, err
	}
	client, err := s.account(ctx, in.ClientID, "client not found")
	if err != nil {
		return model.Work{}, err
	}
	leader, err := s.account(ctx, in.ProjectLeaderID, "project leader not found")
	if err != nil {
		return model.Work{}, err
	}

	w := model.Work{
		Address:         strings.TrimSpace(in.Address),
		Service:         strings.TrimSpace(in.Service),
		Description:     strings.TrimSpace(in.Description),
		Value:           in.Value,
		Commission:      in.Commission,
		PaymentMethod:   in.PaymentMethod,
		Status:          in.Status,
		ClientID:        client.ID,
		ProjectLeaderID: leader.ID,
	}
	if err := s.works.CreateWithReceipt(ctx, &w, in.BudgetNumber); err != nil {
		if errors.Is(err, repository.ErrBudgetNumberExists) {
			return model.Work{}, Conflict("budget number already exists")
		}
		return model.Work{}, Internal("create work", err)
	}
	c, l := client.Public(), leader.Public()
	w.Client, w.ProjectLeader = &c, &l
	return w, nil
}

func (s *WorkService) account(ctx context.Context, id uint64, missing string) (model.Account, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, NotFound(missing)
		}
		return model.Account{}, Internal("find account", err)
	}
	return acc, nil
}

func checkWorkFields(value, commission decimal.Decimal, method model.PaymentMethod, status model.WorkStatus) error {
	if value.IsNegative() || commission.IsNegative() {
		return BadRequest("value and commission must not be negative")
	}
	if !method.Valid() {
		return BadRequest("invalid payment method")
	}
	if !status.Valid() {
		return BadRequest("invalid status")
	}
	return nil
}

func (s *WorkService) List(ctx context.Context) ([]model.Work, error) {
	works, err := s.works.ListAll(ctx)
	if err != nil {
		return nil, Internal("list works", err)
	}
	return works, nil
}

func (s *WorkService) ByClient(ctx context.Context, clientID uint64) ([]model.Work, error) {
	works, err := s.works.ListByClient(ctx, clientID)
	if err != nil {
		return nil, Internal("list client works", err)
	}
	return works, nil
}

func (s *WorkService) ByProfessional(ctx context.Context, professionalID uint64) ([]model.Work, error) {
	works, err := s.works.ListByProfessional(ctx, professionalID)
	if err != nil {
		return nil, Internal("list professional works", err)
	}
	return works, nil
}

// UpdateWorkInput holds the editable work fields.  Nil fields are kept.
type UpdateWorkInput struct {
	Address         *string
	Service         *string
	Description     *string
	Value           *decimal.Decimal
	Commission      *decimal.Decimal
	PaymentMethod   *model.PaymentMethod
	Status          *model.WorkStatus
	ClientID        *uint64
	ProjectLeaderID *uint64
}

// Update edits a work.  A new client or project leader must exist.
func (s *WorkService) Update(ctx context.Context, id uint64, in UpdateWorkInput) (model.Work, error) {
	w, err := s.works.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Work{}, NotFound("work not found")
		}
		return model.Work{}, Internal("find work", err)
	}

	if in.Address != nil {
		w.Address = strings.TrimSpace(*in.Address)
	}
	if in.Service != nil {
		w.Service = strings.TrimSpace(*in.Service)
	}
	if in.Description != nil {
		w.Description = strings.TrimSpace(*in.Description)
	}
	if in.Value != nil {
		w.Value = *in.Value
	}
	if in.Commission != nil {
		w.Commission = *in.Commission
	}
	if in.PaymentMethod != nil {
		w.PaymentMethod = *in.PaymentMethod
	}
	if in.Status != nil {
		w.Status = *in.Status
	}
	if err := checkWorkFields(w.Value, w.Commission, w.PaymentMethod, w.Status); err != nil {
		return model.Work{}, err
	}
	if in.ClientID != nil {
		client, err := s.account(ctx, *in.ClientID, "client not found")
		if err != nil {
			return model.Work{}, err
		}
		pub := client.Public()
		w.ClientID, w.Client = client.ID, &pub
	}
	if in.ProjectLeaderID != nil {
		leader, err := s.account(ctx, *in.ProjectLeaderID, "project leader not found")
		if err != nil {
			return model.Work{}, err
		}
		pub := leader.Public()
		w.ProjectLeaderID, w.ProjectLeader = leader.ID, &pub
	}

	if err := s.works.Update(ctx, &w); err != nil {
		return model.Work{}, Internal("update work", err)
	}
	return w, nil
}

func (s *WorkService) Delete(ctx context.Context, id uint64) error {
	if err := s.works.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("work not found")
		}
		return Internal("delete work", err)
	}
	return nil
}

func (s *WorkService) Receipt(ctx context.Context, workID uint64) (model.Receipt, error) {
	rc, err := s.works.ReceiptByWork(ctx, workID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Receipt{}, NotFound("receipt not found")
		}
		return model.Receipt{}, Internal("find receipt", err)
	}
	return rc, nil
}

// ReceiptsByProfessional lists the receipts of the works a professional leads.
func (s *WorkService) ReceiptsByProfessional(ctx context.Context, professionalID uint64) ([]model.Receipt, error) {
	list, err := s.works.ReceiptsByProfessional(ctx, professionalID)
	if err != nil {
		return nil, Internal("list receipts", err)
	}
	return list, nil
}
