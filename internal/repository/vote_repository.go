package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/trades-marketplace/internal/model"
)

// VoteRepo records ratings and keeps the rating aggregate on accounts in
// step with the votes table.
type VoteRepo struct{ db *sql.DB }

func NewVoteRepo(db *sql.DB) *VoteRepo { return &VoteRepo{db: db} }

// Cast records a vote of voterID for ratedID and recomputes the rated
// account's rating and total_votes from all of its votes.  Everything runs in
// one transaction holding the rated account's row lock, so concurrent votes
// for the same account serialize and a failure leaves nothing half applied.
// It returns the updated rated account, ErrNotFound when ratedID does not
// exist and ErrDuplicateVote when the pair already voted.
func (r *VoteRepo) Cast(ctx context.Context, voterID, ratedID uint64, rating int) (model.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ? FOR UPDATE", ratedID)
	rated, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, err
	}

	var existing int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM votes WHERE voter_id = ? AND rated_id = ?", voterID, ratedID).Scan(&existing); err != nil {
		return model.Account{}, err
	}
	if existing > 0 {
		return model.Account{}, ErrDuplicateVote
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO votes (voter_id, rated_id, rating) VALUES (?, ?, ?)", voterID, ratedID, rating); err != nil {
		if isDuplicateKey(err) {
			return model.Account{}, ErrDuplicateVote
		}
		return model.Account{}, err
	}

	ratings, err := ratingsTx(ctx, tx, ratedID)
	if err != nil {
		return model.Account{}, err
	}
	mean, total := model.MeanRating(ratings)
	if _, err := tx.ExecContext(ctx,
		"UPDATE accounts SET rating = ?, total_votes = ? WHERE id = ?", mean, total, ratedID); err != nil {
		return model.Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Account{}, err
	}

	rated.Rating = mean
	rated.TotalVotes = total
	rated.PasswordHash = ""
	return rated, nil
}

func ratingsTx(ctx context.Context, tx *sql.Tx, ratedID uint64) ([]int, error) {
	rows, err := tx.QueryContext(ctx, "SELECT rating FROM votes WHERE rated_id = ?", ratedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
