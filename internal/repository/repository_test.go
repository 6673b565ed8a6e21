package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/utils"
)

var accountCols = []string{"id", "name", "lastname", "email", "password_hash", "role", "phone", "description",
	"profile_picture", "front_dni", "back_dni", "criminal_record", "rating", "total_votes",
	"reset_token", "reset_token_expires", "created_at", "updated_at"}

func accountRow(rows *sqlmock.Rows, id uint64, role string) *sqlmock.Rows {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return rows.AddRow(id, "Ana", "Diaz", "ana@example.com", "$2a$10$hash", role, "", nil,
		nil, nil, nil, nil, 0.0, 0, nil, nil, now, now)
}

func newMock(t *testing.T) (sqlmock.Sqlmock, func() *VoteRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, func() *VoteRepo { return NewVoteRepo(db) }
}

func TestCastRecomputesAggregate(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM accounts WHERE id = \? FOR UPDATE`).WithArgs(7).
		WillReturnRows(accountRow(sqlmock.NewRows(accountCols), 7, "mason"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM votes`).WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO votes`).WithArgs(3, 7, 4).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT rating FROM votes WHERE rated_id = \?`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"rating"}).AddRow(5).AddRow(3).AddRow(4))
	mock.ExpectExec(`UPDATE accounts SET rating = \?, total_votes = \?`).WithArgs(4.0, 3, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	acc, err := repo().Cast(context.Background(), 3, 7, 4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, acc.Rating)
	assert.Equal(t, 3, acc.TotalVotes)
	assert.Empty(t, acc.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCastRejectsSecondVote(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(7).
		WillReturnRows(accountRow(sqlmock.NewRows(accountCols), 7, "mason"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM votes`).WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo().Cast(context.Background(), 3, 7, 2)
	assert.ErrorIs(t, err, ErrDuplicateVote)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCastUniqueKeyRaceIsDuplicate(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(7).
		WillReturnRows(accountRow(sqlmock.NewRows(accountCols), 7, "mason"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM votes`).WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO votes`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '3-7' for key 'votes.uq_votes_pair'"})
	mock.ExpectRollback()

	_, err := repo().Cast(context.Background(), 3, 7, 2)
	assert.ErrorIs(t, err, ErrDuplicateVote)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCastUnknownAccount(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(99).WillReturnRows(sqlmock.NewRows(accountCols))
	mock.ExpectRollback()

	_, err := repo().Cast(context.Background(), 3, 99, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := utils.HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs("Ana", "Diaz", "ana@example.com", hash, "client", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ana@example.com' for key 'accounts.uq_accounts_email'"})

	a := &model.Account{Name: "Ana", Lastname: "Diaz", Email: "  ANA@example.com ", PasswordHash: hash}
	err = NewAccountRepo(db).Create(context.Background(), a)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveLeavesRatingAggregateAlone(t *testing.T) {
	noAggregate := sqlmock.QueryMatcherFunc(func(expected, actual string) error {
		if strings.Contains(actual, "rating") || strings.Contains(actual, "total_votes") {
			return fmt.Errorf("save must not write the vote aggregate: %s", actual)
		}
		return sqlmock.QueryMatcherRegexp.Match(expected, actual)
	})
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(noAggregate))
	require.NoError(t, err)
	defer db.Close()

	hash, err := utils.HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE accounts SET name=\?`).
		WithArgs("Ana", "Diaz", "ana@example.com", hash, "mason", "", sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// A snapshot loaded before someone voted still carries the old aggregate.
	stale := &model.Account{ID: 7, Name: "Ana", Lastname: "Diaz", Email: "ana@example.com",
		PasswordHash: hash, Role: model.RoleMason, Rating: 0, TotalVotes: 0}
	require.NoError(t, NewAccountRepo(db).Save(context.Background(), stale))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountWritesRejectPlaintext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAccountRepo(db)
	a := &model.Account{ID: 1, Name: "Ana", Email: "ana@example.com", PasswordHash: "secret"}
	assert.ErrorIs(t, repo.Create(context.Background(), a), ErrPlaintextSecret)
	assert.ErrorIs(t, repo.Save(context.Background(), a), ErrPlaintextSecret)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmailAbsentIsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM accounts WHERE email = \?`).WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(accountCols))
	mock.ExpectQuery(`FROM accounts WHERE email = \?`).WithArgs("ana@example.com").
		WillReturnRows(accountRow(sqlmock.NewRows(accountCols), 1, "client"))

	repo := NewAccountRepo(db)
	a, err := repo.FindByEmail(context.Background(), "Nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = repo.FindByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, model.RoleClient, a.Role)
	assert.Empty(t, a.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByResetTokenNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM accounts WHERE reset_token = \?`).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(accountCols))

	repo := NewAccountRepo(db)
	_, err = repo.FindByResetToken(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindByResetToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithReceiptBudgetTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM receipts WHERE budget_number = \?`).WithArgs(1001).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	w := &model.Work{Address: "Calle 1", Service: "roof", Description: "fix", Value: decimal.NewFromInt(100),
		Commission: decimal.NewFromInt(10), PaymentMethod: model.PaymentCash, ClientID: 1, ProjectLeaderID: 2}
	err = NewWorkRepo(db).CreateWithReceipt(context.Background(), w, 1001)
	assert.ErrorIs(t, err, ErrBudgetNumberExists)
	assert.Zero(t, w.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateKeyHelpers(t *testing.T) {
	err := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'accounts.uq_accounts_reset_token'"}
	assert.True(t, isDuplicateKey(err))
	assert.True(t, isDuplicateKey(errors.New("Error 1062 (23000): Duplicate entry")))
	assert.False(t, isDuplicateKey(driver.ErrBadConn))
	assert.False(t, isDuplicateKey(nil))
	assert.Equal(t, "uq_accounts_reset_token", duplicateKeyName(err))
	assert.Equal(t, "uq_votes_pair", duplicateKeyName(errors.New("Duplicate entry '1-2' for key 'uq_votes_pair'")))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}
