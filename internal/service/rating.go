package service

import (
	"context"
	"errors"

	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/repository"
)

// VoteStore casts a vote and returns the rated account with its recomputed
// aggregate.  It is satisfied by *repository.VoteRepo.
type VoteStore interface {
	Cast(ctx context.Context, voterID, ratedID uint64, rating int) (model.Account, error)
}

// RatingService records one vote per rater and rated account.
type RatingService struct {
	votes VoteStore
}

func NewRatingService(votes VoteStore) *RatingService { return &RatingService{votes: votes} }

// Rate records raterID's rating of ratedID and returns the rated account's
// updated public projection.
func (s *RatingService) Rate(ctx context.Context, raterID, ratedID uint64, rating int) (model.PublicAccount, error) {
	if !model.ValidRating(rating) {
		return model.PublicAccount{}, BadRequest("rating must be between 1 and 5")
	}
	if raterID == ratedID {
		return model.PublicAccount{}, Forbidden("you cannot rate yourself")
	}
	acc, err := s.votes.Cast(ctx, raterID, ratedID, rating)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return model.PublicAccount{}, NotFound("account not found")
		case errors.Is(err, repository.ErrDuplicateVote):
			return model.PublicAccount{}, Forbidden("you have already rated this account")
		}
		return model.PublicAccount{}, Internal("cast vote", err)
	}
	return acc.Public(), nil
}
