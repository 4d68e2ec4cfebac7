// Package scheduler implements the SM-2 variant that turns a review
// grade into an updated Card: interval, ease, and learning-stage
// transitions.
package scheduler

import (
	"math"
	"time"

	"github.com/example/bettertactics/internal/clock"
	"github.com/example/bettertactics/pkg/models"
)

// Config holds the tunable knobs the environment-variable contract
// exposes (SRS_DEFAULT_EASE, SRS_MINIMUM_EASE, SRS_EASY_BONUS,
// SRS_DAY_END_HOUR).
type Config struct {
	DefaultEase float64
	MinimumEase float64
	EasyBonus   float64

	// LearningSteps is walked from a New or Learning card on Good
	// grades until it graduates to Review.
	LearningSteps []time.Duration
	// RelearningSteps is walked the same way from Relearning.
	RelearningSteps []time.Duration

	DayEndHour int
}

// DefaultConfig matches the defaults documented for the environment
// variables that feed this Config (the package itself reads none).
func DefaultConfig() Config {
	return Config{
		DefaultEase:     2.5,
		MinimumEase:     1.3,
		EasyBonus:       1.3,
		LearningSteps:   []time.Duration{10 * time.Minute, 24 * time.Hour},
		RelearningSteps: []time.Duration{1 * time.Minute},
		DayEndHour:      4,
	}
}

// Scheduler computes Card transitions.
type Scheduler struct {
	cfg Config
	clk clock.Clock
}

func New(cfg Config, clk clock.Clock) *Scheduler {
	return &Scheduler{cfg: cfg, clk: clk}
}

// NewCard returns the zero state for a puzzle the user has never
// reviewed before, ready to be passed into Schedule.
func (s *Scheduler) NewCard(userID, puzzleID int64) models.Card {
	return models.Card{
		UserID:         userID,
		PuzzleID:       puzzleID,
		Ease:           s.cfg.DefaultEase,
		Stage:          models.StageNew,
		StepsCompleted: -1,
	}
}

// Schedule applies a single graded review to card and returns the
// updated card. It does not mutate the input.
func (s *Scheduler) Schedule(card models.Card, grade models.Difficulty, now time.Time) models.Card {
	next := card

	switch grade {
	case models.DifficultyAgain:
		next.Ease = math.Max(s.cfg.MinimumEase, card.Ease-0.2)
		next.Stage = models.StageRelearning
		next.Interval = s.cfg.RelearningSteps[0]
		next.StepsCompleted = 0

	case models.DifficultyHard:
		next.Ease = math.Max(s.cfg.MinimumEase, card.Ease-0.15)
		base := card.Interval
		if base == 0 {
			// A card graded Hard on its very first review has no prior
			// interval to scale; seed it with the first learning step.
			base = s.cfg.LearningSteps[0]
		}
		next.Interval = scaleDuration(base, 1.2)

	case models.DifficultyGood:
		next = s.scheduleGood(card, now)

	case models.DifficultyEasy:
		next.Ease = card.Ease + 0.15
		base := card.Interval
		if base == 0 {
			base = s.cfg.LearningSteps[0]
		}
		next.Interval = scaleDuration(base, next.Ease*s.cfg.EasyBonus)
		if card.Stage != models.StageReview {
			next.Stage = models.StageReview
			next.StepsCompleted = -1
			const minEasyInterval = 4 * 24 * time.Hour
			if next.Interval < minEasyInterval {
				next.Interval = minEasyInterval
			}
		}
	}

	next.Due = now.Add(next.Interval)
	next.ReviewCount = card.ReviewCount + 1
	return next
}

func (s *Scheduler) scheduleGood(card models.Card, now time.Time) models.Card {
	next := card

	if card.Stage == models.StageReview {
		next.Interval = scaleDuration(card.Interval, card.Ease)
		return next
	}

	ladder := s.cfg.LearningSteps
	if card.Stage == models.StageRelearning {
		ladder = s.cfg.RelearningSteps
	}

	stepIdx := card.StepsCompleted + 1
	if stepIdx < len(ladder) {
		next.Interval = ladder[stepIdx]
		next.StepsCompleted = stepIdx
		if card.Stage == models.StageNew {
			next.Stage = models.StageLearning
		}
		return next
	}

	// Ladder exhausted: graduate to Review.
	next.Stage = models.StageReview
	next.StepsCompleted = -1
	next.Interval = scaleDuration(card.Interval, card.Ease)
	return next
}

// PreviewIntervals returns the hypothetical interval that would
// result from grading card with each of the four difficulties, in
// Again/Hard/Good/Easy order, without mutating any stored state.
func (s *Scheduler) PreviewIntervals(card models.Card, now time.Time) [4]time.Duration {
	var out [4]time.Duration
	for i, grade := range []models.Difficulty{
		models.DifficultyAgain, models.DifficultyHard, models.DifficultyGood, models.DifficultyEasy,
	} {
		out[i] = s.Schedule(card, grade, now).Interval
	}
	return out
}

func scaleDuration(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

// NextDayBoundary returns the next local-time occurrence of the
// configured day-end hour strictly after now.
func (s *Scheduler) NextDayBoundary(now time.Time) time.Time {
	return NextDayBoundary(now, s.cfg.DayEndHour)
}

// PreviousDayBoundary returns the day-end boundary that most recently
// passed, so that [PreviousDayBoundary, NextDayBoundary] is always a
// window of exactly one day (avoiding the historical 28-hour-window
// bug when now has already crossed midnight but not the day-end hour).
func (s *Scheduler) PreviousDayBoundary(now time.Time) time.Time {
	return PreviousDayBoundary(now, s.cfg.DayEndHour)
}

func NextDayBoundary(now time.Time, dayEndHour int) time.Time {
	boundary := time.Date(now.Year(), now.Month(), now.Day(), dayEndHour, 0, 0, 0, now.Location())
	if !boundary.After(now) {
		boundary = boundary.Add(24 * time.Hour)
	}
	return boundary
}

func PreviousDayBoundary(now time.Time, dayEndHour int) time.Time {
	return NextDayBoundary(now, dayEndHour).Add(-24 * time.Hour)
}
