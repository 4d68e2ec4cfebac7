package service

import (
	"time"

	"github.com/example/bettertactics/pkg/models"
)

// Stats is the summary get_stats returns.
type Stats struct {
	CardCount       int64
	ReviewCount     int64
	ReviewsDueNow   int64
	ReviewsDueToday int64
	MsUntilNextDue  *int64
	Rating          int
	RatingDeviation int
	Provisional     bool
}

// RatingPoint is one sample of the rating-over-time series.
type RatingPoint struct {
	Date   time.Time
	Rating int
}

// HistogramBucket is one (puzzle rating bucket, difficulty) count.
type HistogramBucket struct {
	RatingBucket int
	Difficulty   models.Difficulty
	Count        int64
}

// ReviewOutcome is what submit_review returns: the updated card and
// the user's rating triple after the update (which, per the "Good
// never lowers rating" rule, may be unchanged from before the call).
type ReviewOutcome struct {
	Card   models.Card
	Rating models.User
	// Replayed is true when review_count was stale and the call was a
	// no-op returning the existing card rather than advancing it.
	Replayed bool
}

// SkipReason distinguishes a plain skip from one carrying a rating
// signal, per the caller's choice of "too hard" / "too easy" /
// "don't repeat".
type SkipReason int

const (
	SkipPlain SkipReason = iota
	SkipTooHard
	SkipTooEasy
	SkipDontRepeat
)

func (r SkipReason) difficulty() (models.Difficulty, bool) {
	switch r {
	case SkipTooHard:
		return models.DifficultyAgain, true
	case SkipTooEasy:
		return models.DifficultyEasy, true
	case SkipDontRepeat:
		return models.DifficultyGood, true
	default:
		return 0, false
	}
}

// PuzzleWithCard pairs a Puzzle with the user's Card for it, if any.
type PuzzleWithCard struct {
	Puzzle models.Puzzle
	Card   *models.Card
}
