package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/trades-marketplace/internal/model"
)

// PhotoRepo stores the work photos professionals attach to their profile.
type PhotoRepo struct{ db *sql.DB }

func NewPhotoRepo(db *sql.DB) *PhotoRepo { return &PhotoRepo{db: db} }

// CreateBatch inserts photos in one statement and fills in their ids.
func (r *PhotoRepo) CreateBatch(ctx context.Context, photos []model.WorkPhoto) ([]model.WorkPhoto, error) {
	if len(photos) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]model.WorkPhoto, 0, len(photos))
	for _, p := range photos {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO work_photos (professional_id, filename, url, description) VALUES (?, ?, ?, ?)",
			p.ProfessionalID, p.Filename, p.URL, nullString(p.Description))
		if err != nil {
			if isDuplicateKey(err) {
				return nil, ErrConflict
			}
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		p.ID = uint64(id)
		out = append(out, p)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByProfessional returns the photos of one professional, oldest first.
func (r *PhotoRepo) ListByProfessional(ctx context.Context, professionalID uint64) ([]model.WorkPhoto, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, professional_id, filename, url, description, created_at
		 FROM work_photos WHERE professional_id = ? ORDER BY id`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.WorkPhoto{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindByFilename returns the photo stored under filename for a professional.
func (r *PhotoRepo) FindByFilename(ctx context.Context, professionalID uint64, filename string) (model.WorkPhoto, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, professional_id, filename, url, description, created_at
		 FROM work_photos WHERE professional_id = ? AND filename = ? LIMIT 1`, professionalID, filename)
	p, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WorkPhoto{}, ErrNotFound
	}
	return p, err
}

// Delete removes a photo row by id.
func (r *PhotoRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM work_photos WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPhoto(row rowScanner) (model.WorkPhoto, error) {
	var (
		p    model.WorkPhoto
		desc sql.NullString
	)
	if err := row.Scan(&p.ID, &p.ProfessionalID, &p.Filename, &p.URL, &desc, &p.CreatedAt); err != nil {
		return model.WorkPhoto{}, err
	}
	p.Description = desc.String
	return p, nil
}
