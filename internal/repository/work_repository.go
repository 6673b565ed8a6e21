package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/trades-marketplace/internal/model"
)

// WorkRepo stores work orders and the receipt issued for each of them.
type WorkRepo struct{ db *sql.DB }

func NewWorkRepo(db *sql.DB) *WorkRepo { return &WorkRepo{db: db} }

const workColumns = `w.id, w.address, w.service, w.description, w.value, w.commission,
	w.payment_method, w.status, w.client_id, w.project_leader_id, w.created_at`

const receiptColumns = `r.id, r.work_id, r.budget_number, r.service, r.description, r.address,
	r.value, r.commission, r.payment_method`

// CreateWithReceipt inserts a work and its receipt in one transaction.  The
// receipt copies the work's service, description, address, amounts and
// payment method.  ErrBudgetNumberExists is returned when budgetNumber is
// already taken, in which case no work row is left behind.
func (r *WorkRepo) CreateWithReceipt(ctx context.Context, w *model.Work, budgetNumber uint32) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var taken int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM receipts WHERE budget_number = ?", budgetNumber).Scan(&taken); err != nil {
		return err
	}
	if taken > 0 {
		return ErrBudgetNumberExists
	}

	if w.Status == "" {
		w.Status = model.WorkPending
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO works (address, service, description, value, commission, payment_method, status, client_id, project_leader_id)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		w.Address, w.Service, w.Description, w.Value, w.Commission, string(w.PaymentMethod), string(w.Status),
		w.ClientID, w.ProjectLeaderID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)

	rc := model.Receipt{
		WorkID:        w.ID,
		BudgetNumber:  budgetNumber,
		Service:       w.Service,
		Description:   w.Description,
		Address:       w.Address,
		Value:         w.Value,
		Commission:    w.Commission,
		PaymentMethod: w.PaymentMethod,
	}
	res, err = tx.ExecContext(ctx,
		`INSERT INTO receipts (work_id, budget_number, service, description, address, value, commission, payment_method)
		 VALUES (?,?,?,?,?,?,?,?)`,
		rc.WorkID, rc.BudgetNumber, rc.Service, rc.Description, rc.Address, rc.Value, rc.Commission, string(rc.PaymentMethod))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrBudgetNumberExists
		}
		return err
	}
	rid, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rc.ID = uint64(rid)

	if err := tx.QueryRowContext(ctx, "SELECT created_at FROM works WHERE id = ?", w.ID).Scan(&w.CreatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	w.Receipt = &rc
	return nil
}

// GetByID returns one work with its client, project leader and receipt.
func (r *WorkRepo) GetByID(ctx context.Context, id uint64) (model.Work, error) {
	works, err := r.list(ctx, "WHERE w.id = ?", id)
	if err != nil {
		return model.Work{}, err
	}
	if len(works) == 0 {
		return model.Work{}, ErrNotFound
	}
	return works[0], nil
}

// ListAll returns every work, newest first.
func (r *WorkRepo) ListAll(ctx context.Context) ([]model.Work, error) {
	return r.list(ctx, "")
}

// ListByClient returns the works ordered by a client.
func (r *WorkRepo) ListByClient(ctx context.Context, clientID uint64) ([]model.Work, error) {
	return r.list(ctx, "WHERE w.client_id = ?", clientID)
}

// ListByProfessional returns the works led by a professional.
func (r *WorkRepo) ListByProfessional(ctx context.Context, professionalID uint64) ([]model.Work, error) {
	return r.list(ctx, "WHERE w.project_leader_id = ?", professionalID)
}

func (r *WorkRepo) list(ctx context.Context, where string, args ...any) ([]model.Work, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+workColumns+" FROM works w "+where+" ORDER BY w.id DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	works := []model.Work{}
	for rows.Next() {
		var (
			w              model.Work
			method, status string
		)
		if err := rows.Scan(&w.ID, &w.Address, &w.Service, &w.Description, &w.Value, &w.Commission,
			&method, &status, &w.ClientID, &w.ProjectLeaderID, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.PaymentMethod = model.PaymentMethod(method)
		w.Status = model.WorkStatus(status)
		works = append(works, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, works); err != nil {
		return nil, err
	}
	return works, nil
}

// hydrate attaches the public projections of clients and leaders and the
// receipts to works with two extra queries.
func (r *WorkRepo) hydrate(ctx context.Context, works []model.Work) error {
	if len(works) == 0 {
		return nil
	}
	accountIDs := make([]any, 0, len(works)*2)
	workIDs := make([]any, 0, len(works))
	for _, w := range works {
		accountIDs = append(accountIDs, w.ClientID, w.ProjectLeaderID)
		workIDs = append(workIDs, w.ID)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id IN ("+placeholders(len(accountIDs))+")", accountIDs...)
	if err != nil {
		return err
	}
	accounts, err := scanAccounts(rows)
	if err != nil {
		return err
	}
	byID := make(map[uint64]model.PublicAccount, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a.Public()
	}

	rows, err = r.db.QueryContext(ctx,
		"SELECT "+receiptColumns+" FROM receipts r WHERE r.work_id IN ("+placeholders(len(workIDs))+")", workIDs...)
	if err != nil {
		return err
	}
	receipts, err := scanReceipts(rows, false)
	if err != nil {
		return err
	}
	byWork := make(map[uint64]model.Receipt, len(receipts))
	for _, rc := range receipts {
		byWork[rc.WorkID] = rc
	}

	for i := range works {
		if c, ok := byID[works[i].ClientID]; ok {
			works[i].Client = &c
		}
		if l, ok := byID[works[i].ProjectLeaderID]; ok {
			works[i].ProjectLeader = &l
		}
		if rc, ok := byWork[works[i].ID]; ok {
			works[i].Receipt = &rc
		}
	}
	return nil
}

// Update writes the editable work columns.  The receipt keeps the values it
// was issued with.
func (r *WorkRepo) Update(ctx context.Context, w *model.Work) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE works SET address=?, service=?, description=?, value=?, commission=?, payment_method=?,
		 status=?, client_id=?, project_leader_id=? WHERE id=?`,
		w.Address, w.Service, w.Description, w.Value, w.Commission, string(w.PaymentMethod),
		string(w.Status), w.ClientID, w.ProjectLeaderID, w.ID)
	return err
}

// Delete removes a work.  Its receipt cascades.
func (r *WorkRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM works WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReceiptByWork returns the receipt issued for a work.
func (r *WorkRepo) ReceiptByWork(ctx context.Context, workID uint64) (model.Receipt, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+receiptColumns+" FROM receipts r WHERE r.work_id = ? LIMIT 1", workID)
	if err != nil {
		return model.Receipt{}, err
	}
	receipts, err := scanReceipts(rows, false)
	if err != nil {
		return model.Receipt{}, err
	}
	if len(receipts) == 0 {
		return model.Receipt{}, ErrNotFound
	}
	return receipts[0], nil
}

// ReceiptsByProfessional returns the receipts of every work a professional
// leads, each with the work's status and the client's name.
func (r *WorkRepo) ReceiptsByProfessional(ctx context.Context, professionalID uint64) ([]model.Receipt, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+receiptColumns+`, w.id, w.status, c.name, c.lastname
		 FROM receipts r
		 JOIN works w ON w.id = r.work_id
		 JOIN accounts c ON c.id = w.client_id
		 WHERE w.project_leader_id = ?
		 ORDER BY r.id DESC`, professionalID)
	if err != nil {
		return nil, err
	}
	return scanReceipts(rows, true)
}

func scanReceipts(rows *sql.Rows, withWork bool) ([]model.Receipt, error) {
	defer rows.Close()
	out := []model.Receipt{}
	for rows.Next() {
		var (
			rc     model.Receipt
			method string
			dest   = []any{&rc.ID, &rc.WorkID, &rc.BudgetNumber, &rc.Service, &rc.Description, &rc.Address,
				&rc.Value, &rc.Commission, &method}
			rw     model.ReceiptWork
			status string
		)
		if withWork {
			dest = append(dest, &rw.ID, &status, &rw.ClientName, &rw.ClientLastname)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rc.PaymentMethod = model.PaymentMethod(method)
		if withWork {
			rw.Status = model.WorkStatus(status)
			rc.Work = &rw
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
