// Package selection implements the Review / New / Specific puzzle
// picking policies the Service API's puzzle-fetch operations sit on
// top of.
package selection

import (
	"context"
	"math/rand"
	"strings"

	"github.com/example/bettertactics/internal/apperror"
	"github.com/example/bettertactics/internal/clock"
	"github.com/example/bettertactics/internal/scheduler"
	"github.com/example/bettertactics/internal/store"
	"github.com/example/bettertactics/pkg/models"
)

// Config tunes the New-puzzle rating band.
type Config struct {
	DownFraction float64
	UpFraction   float64
}

func DefaultConfig() Config {
	return Config{DownFraction: 0.05, UpFraction: 0.05}
}

type Selector struct {
	store     *store.Store
	scheduler *scheduler.Scheduler
	cfg       Config
	clk       clock.Clock
}

func New(st *store.Store, sched *scheduler.Scheduler, cfg Config, clk clock.Clock) *Selector {
	return &Selector{store: st, scheduler: sched, cfg: cfg, clk: clk}
}

// ReviewResult is the outcome of a Review-mode selection: either a
// due card, or an empty result carrying the wait time until the next
// one becomes due.
type ReviewResult struct {
	Puzzle      models.Puzzle
	Card        models.Card
	Found       bool
	MsUntilNext int64
}

// NextReview picks the next due card for review, ordered per order.
func (sel *Selector) NextReview(ctx context.Context, user models.User, order store.ReviewOrder) (ReviewResult, error) {
	now := sel.clk.Now()
	dayEnd := sel.scheduler.NextDayBoundary(now)

	due, err := sel.store.DueCards(ctx, user.ID, now, dayEnd, order)
	if err != nil {
		return ReviewResult{}, err
	}

	if len(due) == 0 {
		nextDue, found, err := sel.store.NextDueTime(ctx, user.ID, now, dayEnd)
		if err != nil {
			return ReviewResult{}, err
		}
		if !found {
			return ReviewResult{Found: false}, nil
		}
		return ReviewResult{Found: false, MsUntilNext: nextDue.Sub(now).Milliseconds()}, nil
	}

	chosen := due[0]
	if order == store.OrderRandom {
		chosen = due[rand.Intn(len(due))]
	}

	puzzle, err := sel.store.GetPuzzleByID(ctx, chosen.Card.PuzzleID)
	if err != nil {
		return ReviewResult{}, err
	}

	return ReviewResult{Puzzle: puzzle, Card: chosen.Card, Found: true}, nil
}

// NewResult is the outcome of a New-mode selection.
type NewResult struct {
	Puzzle models.Puzzle
	Found  bool
}

// NextNew picks an unseen puzzle in a rating band around the user's
// rating, clamped to the rating range that actually exists in the
// corpus. The chosen puzzle is persisted on the user row so repeated
// calls before the puzzle is started or skipped return the same one.
func (sel *Selector) NextNew(ctx context.Context, user models.User) (NewResult, error) {
	if user.NextPuzzle != nil {
		puzzle, err := sel.store.GetPuzzleByID(ctx, *user.NextPuzzle)
		if err != nil && !apperror.Is(err, apperror.KindNotFound) {
			return NewResult{}, err
		}
		if err == nil {
			_, started, err := sel.store.GetCard(ctx, user.ID, puzzle.ID)
			if err != nil {
				return NewResult{}, err
			}
			skipped, err := sel.store.HasSkip(ctx, user.ID, puzzle.ID)
			if err != nil {
				return NewResult{}, err
			}
			if !started && !skipped {
				return NewResult{Puzzle: puzzle, Found: true}, nil
			}
		}
		// The pinned puzzle vanished (e.g. a reimport) or has already
		// been started or skipped; fall through and pick a fresh one.
	}

	lo := int(float64(user.Rating) * (1 - sel.cfg.DownFraction))
	hi := int(float64(user.Rating) * (1 + sel.cfg.UpFraction))

	minRating, maxRating, err := sel.store.PuzzleRatingRange(ctx)
	if err != nil {
		return NewResult{}, err
	}
	if lo < minRating {
		lo = minRating
	}
	if hi > maxRating {
		hi = maxRating
	}
	if lo > hi {
		return NewResult{Found: false}, nil
	}

	puzzle, found, err := sel.store.RandomPuzzleInRange(ctx, user.ID, lo, hi)
	if err != nil {
		return NewResult{}, err
	}
	if !found {
		return NewResult{Found: false}, nil
	}

	if err := sel.store.SetNextPuzzle(ctx, user.ID, &puzzle.ID); err != nil {
		return NewResult{}, err
	}

	return NewResult{Puzzle: puzzle, Found: true}, nil
}

// SpecificByID fetches a named puzzle by internal id.
func (sel *Selector) SpecificByID(ctx context.Context, id int64) (models.Puzzle, error) {
	return sel.store.GetPuzzleByID(ctx, id)
}

// SpecificBySourceID fetches a named puzzle by (source, source_id).
func (sel *Selector) SpecificBySourceID(ctx context.Context, source, sourceID string) (models.Puzzle, error) {
	return sel.store.GetPuzzleBySourceID(ctx, source, sourceID)
}

// ParseReviewOrder converts the SRS_REVIEW_ORDER configuration value.
func ParseReviewOrder(s string) store.ReviewOrder {
	switch strings.ToLower(s) {
	case "puzzlerating":
		return store.OrderPuzzleRating
	case "random":
		return store.OrderRandom
	default:
		return store.OrderDueTime
	}
}
