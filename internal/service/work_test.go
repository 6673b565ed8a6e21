package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/trades-marketplace/internal/model"
)

func newWorkFixture(t *testing.T) (*WorkService, model.Account, model.Account) {
	accounts := newMemAccounts()
	client := seedAccount(t, accounts, "c@example.com", model.RoleClient)
	pro := seedAccount(t, accounts, "p@example.com", model.RoleCarpenter)
	return NewWorkService(newMemWorks(), accounts), client, pro
}

func workInput(client, pro model.Account, budget uint32) CreateWorkInput {
	return CreateWorkInput{
		Address:         "Av. Roca 120",
		Service:         "Kitchen cabinets",
		Description:     "Build and install",
		Value:           decimal.RequireFromString("1500.50"),
		Commission:      decimal.RequireFromString("150.05"),
		PaymentMethod:   model.PaymentBankTransfer,
		BudgetNumber:    budget,
		ClientID:        client.ID,
		ProjectLeaderID: pro.ID,
	}
}

func TestCreateWorkIssuesReceipt(t *testing.T) {
	svc, client, pro := newWorkFixture(t)

	w, err := svc.Create(context.Background(), workInput(client, pro, 1001))
	require.NoError(t, err)
	assert.Equal(t, model.WorkPending, w.Status)
	require.NotNil(t, w.Receipt)
	assert.Equal(t, uint32(1001), w.Receipt.BudgetNumber)
	assert.True(t, w.Receipt.Value.Equal(decimal.RequireFromString("1500.5")))
	require.NotNil(t, w.ProjectLeader)
	assert.Equal(t, pro.ID, w.ProjectLeader.ID)

	rc, err := svc.Receipt(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, rc.WorkID)
}

func TestCreateWorkConflictsAndMissingParties(t *testing.T) {
	svc, client, pro := newWorkFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, workInput(client, pro, 7))
	require.NoError(t, err)
	_, err = svc.Create(ctx, workInput(client, pro, 7))
	assert.ErrorIs(t, err, ErrConflict)

	in := workInput(client, pro, 8)
	in.ClientID = 404
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrNotFound)

	in = workInput(client, pro, 9)
	in.ProjectLeaderID = 404
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrNotFound)

	in = workInput(client, pro, 10)
	in.PaymentMethod = "barter"
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrBadRequest)

	in = workInput(client, pro, 11)
	in.Value = decimal.NewFromInt(-1)
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestUpdateAndDeleteWork(t *testing.T) {
	svc, client, pro := newWorkFixture(t)
	ctx := context.Background()
	w, err := svc.Create(ctx, workInput(client, pro, 1))
	require.NoError(t, err)

	status := model.WorkCompleted
	missing := uint64(404)
	_, err = svc.Update(ctx, w.ID, UpdateWorkInput{ProjectLeaderID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := svc.Update(ctx, w.ID, UpdateWorkInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.WorkCompleted, updated.Status)

	byPro, err := svc.ByProfessional(ctx, pro.ID)
	require.NoError(t, err)
	require.Len(t, byPro, 1)
	assert.Equal(t, model.WorkCompleted, byPro[0].Status)

	byClient, err := svc.ByClient(ctx, pro.ID)
	require.NoError(t, err)
	assert.Empty(t, byClient)

	require.NoError(t, svc.Delete(ctx, w.ID))
	assert.ErrorIs(t, svc.Delete(ctx, w.ID), ErrNotFound)
	_, err = svc.Receipt(ctx, w.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
