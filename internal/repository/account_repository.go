package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/utils"
)

// AccountRepo persists accounts in the accounts table.  Lookups by a unique
// key return ErrNotFound when nothing matches, except FindByEmail and
// FindByEmailWithSecret which are used for existence checks and return a nil
// account instead.
type AccountRepo struct{ db *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

const accountColumns = `id, name, lastname, email, password_hash, role, phone, description,
	profile_picture, front_dni, back_dni, criminal_record, rating, total_votes,
	reset_token, reset_token_expires, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (model.Account, error) {
	var (
		a                                          model.Account
		role                                       string
		desc, pfp, front, back, record, resetToken sql.NullString
		resetExpires                               sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Name, &a.Lastname, &a.Email, &a.PasswordHash, &role, &a.Phone, &desc,
		&pfp, &front, &back, &record, &a.Rating, &a.TotalVotes,
		&resetToken, &resetExpires, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Account{}, err
	}
	a.Role = model.Role(role)
	a.Description = desc.String
	a.ProfilePicture = pfp.String
	a.FrontDNI = front.String
	a.BackDNI = back.String
	a.CriminalRecord = record.String
	if resetToken.Valid {
		tok := resetToken.String
		a.ResetToken = &tok
	}
	if resetExpires.Valid {
		exp := resetExpires.Time.UTC()
		a.ResetTokenExpires = &exp
	}
	return a, nil
}

func scanAccounts(rows *sql.Rows) ([]model.Account, error) {
	defer rows.Close()
	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		a.PasswordHash = ""
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeEmail lowercases and trims an email the way it is stored.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (r *AccountRepo) findOne(ctx context.Context, where string, arg any) (model.Account, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE "+where+" LIMIT 1", arg)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	return a, err
}

// FindByEmail returns the account with the given email without its password
// hash, or nil when no such account exists.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	a, err := r.FindByEmailWithSecret(ctx, email)
	if a != nil {
		a.PasswordHash = ""
	}
	return a, err
}

// FindByEmailWithSecret is FindByEmail including the password hash.
func (r *AccountRepo) FindByEmailWithSecret(ctx context.Context, email string) (*model.Account, error) {
	a, err := r.findOne(ctx, "email = ?", NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByID fetches an account by id, including its password hash.
func (r *AccountRepo) FindByID(ctx context.Context, id uint64) (model.Account, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByResetToken fetches the account holding the given reset token.
func (r *AccountRepo) FindByResetToken(ctx context.Context, token string) (model.Account, error) {
	if token == "" {
		return model.Account{}, ErrNotFound
	}
	return r.findOne(ctx, "reset_token = ?", token)
}

// Create inserts a and fills in its generated id and timestamps.  The
// password hash must already be a bcrypt digest.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	if !utils.IsHashed(a.PasswordHash) {
		return ErrPlaintextSecret
	}
	a.Email = NormalizeEmail(a.Email)
	if a.Role == "" {
		a.Role = model.RoleClient
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (name, lastname, email, password_hash, role, phone, description, profile_picture)
		 VALUES (?,?,?,?,?,?,?,?)`,
		a.Name, a.Lastname, a.Email, a.PasswordHash, string(a.Role), a.Phone,
		nullString(a.Description), nullString(a.ProfilePicture))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.FindByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*a = stored
	return nil
}

// Save writes the profile, credential and document columns of a back to
// its row.  rating and total_votes are left alone: VoteRepo.Cast is their
// only writer, so a stale snapshot cannot roll the aggregate back.
func (r *AccountRepo) Save(ctx context.Context, a *model.Account) error {
	if !utils.IsHashed(a.PasswordHash) {
		return ErrPlaintextSecret
	}
	a.Email = NormalizeEmail(a.Email)
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name=?, lastname=?, email=?, password_hash=?, role=?, phone=?, description=?,
		 profile_picture=?, front_dni=?, back_dni=?, criminal_record=?,
		 reset_token=?, reset_token_expires=? WHERE id=?`,
		a.Name, a.Lastname, a.Email, a.PasswordHash, string(a.Role), a.Phone, nullString(a.Description),
		nullString(a.ProfilePicture), nullString(a.FrontDNI), nullString(a.BackDNI), nullString(a.CriminalRecord),
		nullStringPtr(a.ResetToken), nullTime(a.ResetTokenExpires), a.ID)
	if err != nil {
		if isDuplicateKey(err) && duplicateKeyName(err) != "uq_accounts_reset_token" {
			return ErrEmailExists
		}
		return err
	}
	// RowsAffected is 0 both for a missing row and an unchanged one.
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM accounts WHERE id = ?", a.ID).Scan(&one); errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
	}
	return nil
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Delete removes an account.  Votes, works and photos cascade.
func (r *AccountRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns every account ordered by id, without password hashes.
func (r *AccountRepo) ListAll(ctx context.Context) ([]model.Account, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, err
	}
	return scanAccounts(rows)
}

// ListByRoles returns accounts whose role is one of roles.
func (r *AccountRepo) ListByRoles(ctx context.Context, roles ...model.Role) ([]model.Account, error) {
	return r.listRoles(ctx, "IN", roles)
}

// ListExcludingRoles returns accounts whose role is none of roles.
func (r *AccountRepo) ListExcludingRoles(ctx context.Context, roles ...model.Role) ([]model.Account, error) {
	return r.listRoles(ctx, "NOT IN", roles)
}

func (r *AccountRepo) listRoles(ctx context.Context, op string, roles []model.Role) ([]model.Account, error) {
	if len(roles) == 0 {
		if op == "IN" {
			return nil, nil
		}
		return r.ListAll(ctx)
	}
	args := make([]any, len(roles))
	for i, role := range roles {
		args[i] = string(role)
	}
	q := "SELECT " + accountColumns + " FROM accounts WHERE role " + op + " (" + placeholders(len(roles)) + ") ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanAccounts(rows)
}

// placeholders returns "?,?,...,?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
