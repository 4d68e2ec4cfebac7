// Package service is the thin façade the external HTTP layer (not
// part of this module) consumes: it owns no transport concerns, only
// the typed operations that sit on top of the store, scheduler,
// rating, and selection packages.
package service

import (
	"context"
	"time"

	"github.com/example/bettertactics/internal/apperror"
	"github.com/example/bettertactics/internal/clock"
	"github.com/example/bettertactics/internal/rating"
	"github.com/example/bettertactics/internal/scheduler"
	"github.com/example/bettertactics/internal/selection"
	"github.com/example/bettertactics/internal/store"
	"github.com/example/bettertactics/pkg/models"
)

// Service wires together the store and the domain packages into the
// operations the spec's external interfaces describe.
type Service struct {
	store     *store.Store
	scheduler *scheduler.Scheduler
	selector  *selection.Selector
	clk       clock.Clock
}

func New(st *store.Store, sched *scheduler.Scheduler, sel *selection.Selector, clk clock.Clock) *Service {
	return &Service{store: st, scheduler: sched, selector: sel, clk: clk}
}

// LocalUser returns the single local-deployment user.
func (svc *Service) LocalUser(ctx context.Context) (models.User, error) {
	return svc.store.GetLocalUser(ctx)
}

// GetStats reports card/review counts and due-review timing for the user.
func (svc *Service) GetStats(ctx context.Context, userID int64) (Stats, error) {
	user, err := svc.store.GetUserByID(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	now := svc.clk.Now()
	dayEnd := svc.scheduler.NextDayBoundary(now)

	cardCount, err := svc.store.CardCount(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	reviewCount, err := svc.store.ReviewCount(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	dueNow, err := svc.store.ReviewsDueBy(ctx, userID, now)
	if err != nil {
		return Stats{}, err
	}
	dueToday, err := svc.store.ReviewsDueBy(ctx, userID, dayEnd)
	if err != nil {
		return Stats{}, err
	}

	var msUntilNext *int64
	if dueNow == 0 {
		next, found, err := svc.store.NextDueTime(ctx, userID, now, dayEnd)
		if err != nil {
			return Stats{}, err
		}
		if found {
			ms := next.Sub(now).Milliseconds()
			msUntilNext = &ms
		}
	}

	return Stats{
		CardCount:       cardCount,
		ReviewCount:     reviewCount,
		ReviewsDueNow:   dueNow,
		ReviewsDueToday: dueToday,
		MsUntilNextDue:  msUntilNext,
		Rating:          user.Rating,
		RatingDeviation: user.RatingDeviation,
		Provisional:     user.Provisional(),
	}, nil
}

// GetReviewForecast returns the count of cards due on each of the
// next `days` days, the first element being "due before today ends."
func (svc *Service) GetReviewForecast(ctx context.Context, userID int64, days int) ([]int64, error) {
	if err := validateDays(days); err != nil {
		return nil, err
	}

	now := svc.clk.Now()
	dayEnd := svc.scheduler.NextDayBoundary(now)

	forecast := make([]int64, 0, days)
	dueToday, err := svc.store.ReviewsDueBy(ctx, userID, dayEnd)
	if err != nil {
		return nil, err
	}
	forecast = append(forecast, dueToday)

	start := dayEnd
	for i := 1; i < days; i++ {
		end := start.Add(24 * time.Hour)
		count, err := svc.store.ReviewsDueBetween(ctx, userID, start, end)
		if err != nil {
			return nil, err
		}
		forecast = append(forecast, count)
		start = end
	}
	return forecast, nil
}

// GetRatingHistory returns the user's rating over time.
func (svc *Service) GetRatingHistory(ctx context.Context, userID int64) ([]RatingPoint, error) {
	points, err := svc.store.RatingHistory(ctx, userID, svc.clk.Now())
	if err != nil {
		return nil, err
	}
	out := make([]RatingPoint, 0, len(points))
	for _, p := range points {
		out = append(out, RatingPoint{Date: p.Date, Rating: p.Rating})
	}
	return out, nil
}

// GetReviewScoreHistogram buckets reviews by puzzle rating and difficulty.
func (svc *Service) GetReviewScoreHistogram(ctx context.Context, userID int64, bucket int) ([]HistogramBucket, error) {
	if err := validateBucket(bucket); err != nil {
		return nil, err
	}
	rows, err := svc.store.ReviewScoreHistogram(ctx, userID, bucket)
	if err != nil {
		return nil, err
	}
	out := make([]HistogramBucket, 0, len(rows))
	for _, r := range rows {
		out = append(out, HistogramBucket{RatingBucket: r.RatingBucket, Difficulty: r.Difficulty, Count: r.Count})
	}
	return out, nil
}

// NextReviewPuzzle picks the next due card for review.
func (svc *Service) NextReviewPuzzle(ctx context.Context, userID int64, order store.ReviewOrder) (selection.ReviewResult, error) {
	user, err := svc.store.GetUserByID(ctx, userID)
	if err != nil {
		return selection.ReviewResult{}, err
	}
	return svc.selector.NextReview(ctx, user, order)
}

// NextNewPuzzle picks an unseen puzzle in the user's rating band.
func (svc *Service) NextNewPuzzle(ctx context.Context, userID int64) (selection.NewResult, error) {
	user, err := svc.store.GetUserByID(ctx, userID)
	if err != nil {
		return selection.NewResult{}, err
	}
	return svc.selector.NextNew(ctx, user)
}

// PuzzleByID fetches a puzzle and the user's card for it, if any.
func (svc *Service) PuzzleByID(ctx context.Context, userID, puzzleID int64) (PuzzleWithCard, error) {
	puzzle, err := svc.store.GetPuzzleByID(ctx, puzzleID)
	if err != nil {
		return PuzzleWithCard{}, err
	}
	return svc.attachCard(ctx, userID, puzzle)
}

// PuzzleBySourceID fetches a puzzle by (source, source_id) and the
// user's card for it, if any.
func (svc *Service) PuzzleBySourceID(ctx context.Context, userID int64, source, sourceID string) (PuzzleWithCard, error) {
	puzzle, err := svc.store.GetPuzzleBySourceID(ctx, source, sourceID)
	if err != nil {
		return PuzzleWithCard{}, err
	}
	return svc.attachCard(ctx, userID, puzzle)
}

func (svc *Service) attachCard(ctx context.Context, userID int64, puzzle models.Puzzle) (PuzzleWithCard, error) {
	card, found, err := svc.store.GetCard(ctx, userID, puzzle.ID)
	if err != nil {
		return PuzzleWithCard{}, err
	}
	out := PuzzleWithCard{Puzzle: puzzle}
	if found {
		out.Card = &card
	}
	return out, nil
}

// SubmitReview grades a puzzle attempt, advancing the card and
// updating the rating in one transaction. It is idempotent on
// reviewCount: a replay with the review_count the card already has
// past that point (i.e. a stale resend) returns the existing card
// rather than advancing it again.
func (svc *Service) SubmitReview(ctx context.Context, userID, puzzleID int64, difficulty models.Difficulty, reviewCount int) (ReviewOutcome, error) {
	if err := validateDifficulty(difficulty); err != nil {
		return ReviewOutcome{}, err
	}

	user, err := svc.store.GetUserByID(ctx, userID)
	if err != nil {
		return ReviewOutcome{}, err
	}
	puzzle, err := svc.store.GetPuzzleByID(ctx, puzzleID)
	if err != nil {
		return ReviewOutcome{}, err
	}

	existing, found, err := svc.store.GetCard(ctx, userID, puzzleID)
	if err != nil {
		return ReviewOutcome{}, err
	}

	var card models.Card
	if found {
		if reviewCount < existing.ReviewCount {
			return ReviewOutcome{Card: existing, Rating: user, Replayed: true}, nil
		}
		if reviewCount > existing.ReviewCount {
			return ReviewOutcome{}, apperror.Conflict("review_count ahead of the stored card")
		}
		card = existing
	} else {
		if reviewCount != 0 {
			return ReviewOutcome{}, apperror.Conflict("review_count must be 0 for a puzzle with no card yet")
		}
		card = svc.scheduler.NewCard(userID, puzzleID)
	}

	now := svc.clk.Now()
	updatedCard := svc.scheduler.Schedule(card, difficulty, now)

	newRating, err := rating.Update(
		rating.Rating{Value: user.Rating, Deviation: user.RatingDeviation, Volatility: user.RatingVolatility},
		[]rating.Outcome{{
			OpponentRating:    puzzle.Rating,
			OpponentDeviation: puzzle.RatingDeviation,
			Score:             rating.ScoreForDifficulty(difficulty),
		}},
	)
	if err != nil {
		return ReviewOutcome{}, err
	}

	effective := newRating
	// A Good grade scores 0.8, which is below the expected score
	// against a much lower-rated puzzle and so can nudge the rating
	// down; never let a Good grade lower the user's rating.
	if difficulty == models.DifficultyGood && newRating.Value <= user.Rating {
		effective = rating.Rating{Value: user.Rating, Deviation: user.RatingDeviation, Volatility: user.RatingVolatility}
	}

	review := models.Review{
		UserID:           userID,
		PuzzleID:         puzzleID,
		Difficulty:       difficulty,
		Date:             now,
		UserRatingAtTime: effective.Value,
	}

	if err := svc.store.SubmitReview(ctx, review, updatedCard, effective.Value, effective.Deviation, effective.Volatility); err != nil {
		return ReviewOutcome{}, err
	}

	user.Rating = effective.Value
	user.RatingDeviation = effective.Deviation
	user.RatingVolatility = effective.Volatility

	return ReviewOutcome{Card: updatedCard, Rating: user}, nil
}

// SubmitSkip records that a puzzle should not be served again,
// optionally also running a rating update as if the given grade had
// been submitted, per reason.
func (svc *Service) SubmitSkip(ctx context.Context, userID, puzzleID int64, reason SkipReason) error {
	now := svc.clk.Now()
	skip := models.Skip{UserID: userID, PuzzleID: puzzleID, Date: now}

	difficulty, hasRating := reason.difficulty()
	if !hasRating {
		return svc.store.SubmitSkip(ctx, skip, nil, 0, 0, 0)
	}

	user, err := svc.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	puzzle, err := svc.store.GetPuzzleByID(ctx, puzzleID)
	if err != nil {
		return err
	}

	newRating, err := rating.Update(
		rating.Rating{Value: user.Rating, Deviation: user.RatingDeviation, Volatility: user.RatingVolatility},
		[]rating.Outcome{{
			OpponentRating:    puzzle.Rating,
			OpponentDeviation: puzzle.RatingDeviation,
			Score:             rating.ScoreForDifficulty(difficulty),
		}},
	)
	if err != nil {
		return err
	}

	effective := newRating
	if difficulty == models.DifficultyGood && newRating.Value <= user.Rating {
		effective = rating.Rating{Value: user.Rating, Deviation: user.RatingDeviation, Volatility: user.RatingVolatility}
	}

	review := &models.Review{
		UserID:           userID,
		PuzzleID:         puzzleID,
		Difficulty:       difficulty,
		Date:             now,
		UserRatingAtTime: effective.Value,
	}

	return svc.store.SubmitSkip(ctx, skip, review, effective.Value, effective.Deviation, effective.Volatility)
}

// PuzzleHistory returns a page of puzzles the user has reviewed or
// skipped, each with its latest review grade and skip status.
func (svc *Service) PuzzleHistory(ctx context.Context, userID int64, page int) ([]store.PuzzleHistoryEntry, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	const pageSize = 20
	return svc.store.PuzzleHistoryPage(ctx, userID, page, pageSize)
}

// SetRating is a debug operation that resets the user's rating,
// returning deviation and volatility to their fresh-account defaults.
func (svc *Service) SetRating(ctx context.Context, userID int64, ratingValue int) error {
	if err := validateRating(ratingValue); err != nil {
		return err
	}
	const resetDeviation = 250
	const resetVolatility = 0.06
	return svc.store.UpdateUserRating(ctx, userID, ratingValue, resetDeviation, resetVolatility)
}
