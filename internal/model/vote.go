package model

import "time"

// Rating bounds accepted for a vote.
const (
	MinRating = 1
	MaxRating = 5
)

// Vote mirrors a row of the `votes` table.  At most one vote exists per
// (VoterID, RatedID) pair.
type Vote struct {
	ID        uint64
	VoterID   uint64
	RatedID   uint64
	Rating    int
	CreatedAt time.Time
}

// ValidRating reports whether v is inside [MinRating, MaxRating].
func ValidRating(v int) bool { return v >= MinRating && v <= MaxRating }

// MeanRating returns the arithmetic mean and count of ratings.  The result
// does not depend on the order of the input.  An empty input yields (0, 0).
func MeanRating(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings)), len(ratings)
}
