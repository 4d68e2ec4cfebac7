package scheduler

import (
	"testing"
	"time"

	"github.com/example/bettertactics/internal/clock"
	"github.com/example/bettertactics/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(now time.Time) (*Scheduler, *clock.Fixed) {
	fixed := clock.NewFixed(now)
	return New(DefaultConfig(), fixed), fixed
}

func TestSchedule_FreshCardGood(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(now)

	card := s.NewCard(1, 42)
	updated := s.Schedule(card, models.DifficultyGood, now)

	assert.Equal(t, models.StageLearning, updated.Stage)
	assert.Equal(t, 2.5, updated.Ease)
	assert.Equal(t, 10*time.Minute, updated.Interval)
	assert.Equal(t, now.Add(10*time.Minute), updated.Due)
	assert.Equal(t, 1, updated.ReviewCount)
}

func TestSchedule_MatureReviewCardAgain(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(now)

	card := models.Card{
		Stage:          models.StageReview,
		Ease:           2.4,
		Interval:       40 * 24 * time.Hour,
		StepsCompleted: -1,
	}
	updated := s.Schedule(card, models.DifficultyAgain, now)

	require.InDelta(t, 2.2, updated.Ease, 1e-9)
	assert.Equal(t, models.StageRelearning, updated.Stage)
	assert.Equal(t, 1*time.Minute, updated.Interval)
	assert.Equal(t, now.Add(time.Minute), updated.Due)
}

func TestSchedule_LearningGraduatesToReview(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(now)

	card := models.Card{
		Stage:          models.StageLearning,
		Ease:           2.5,
		Interval:       24 * time.Hour,
		StepsCompleted: 1, // already used both learning steps
	}
	updated := s.Schedule(card, models.DifficultyGood, now)

	assert.Equal(t, models.StageReview, updated.Stage)
	assert.Equal(t, -1, updated.StepsCompleted)
	assert.Equal(t, time.Duration(float64(24*time.Hour)*2.5), updated.Interval)
}

func TestSchedule_HardReducesEaseAndScalesInterval(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(now)

	card := models.Card{Stage: models.StageReview, Ease: 2.0, Interval: 10 * 24 * time.Hour}
	updated := s.Schedule(card, models.DifficultyHard, now)

	require.InDelta(t, 1.85, updated.Ease, 1e-9)
	assert.Equal(t, scaleDuration(10*24*time.Hour, 1.2), updated.Interval)
}

func TestSchedule_EasyFromLearningFloorsAtFourDays(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(now)

	card := models.Card{Stage: models.StageLearning, Ease: 2.5, Interval: 10 * time.Minute, StepsCompleted: 0}
	updated := s.Schedule(card, models.DifficultyEasy, now)

	assert.Equal(t, models.StageReview, updated.Stage)
	assert.GreaterOrEqual(t, updated.Interval, 4*24*time.Hour)
}

func TestSchedule_MinimumEaseFloor(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(now)

	card := models.Card{Stage: models.StageReview, Ease: 1.35, Interval: 24 * time.Hour}
	updated := s.Schedule(card, models.DifficultyAgain, now)

	assert.Equal(t, s.cfg.MinimumEase, updated.Ease)
}

func TestDayBoundary_NextAndPrevious(t *testing.T) {
	// 3:59am local, day-end hour 4: next boundary is 1 minute away.
	now := time.Date(2026, 3, 10, 3, 59, 0, 0, time.UTC)
	next := NextDayBoundary(now, 4)
	assert.Equal(t, time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC), next)

	prev := PreviousDayBoundary(now, 4)
	assert.Equal(t, time.Date(2026, 3, 9, 4, 0, 0, 0, time.UTC), prev)
	assert.Equal(t, 24*time.Hour, next.Sub(prev))
}

func TestDayBoundary_JustAfterBoundaryRollsToTomorrow(t *testing.T) {
	now := time.Date(2026, 3, 10, 4, 1, 0, 0, time.UTC)
	next := NextDayBoundary(now, 4)
	assert.Equal(t, time.Date(2026, 3, 11, 4, 0, 0, 0, time.UTC), next)
}

func TestPreviewIntervals_ReturnsFourHypotheticals(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(now)

	card := models.Card{Stage: models.StageReview, Ease: 2.5, Interval: 5 * 24 * time.Hour}
	previews := s.PreviewIntervals(card, now)

	// Again always collapses to the relearning step.
	assert.Equal(t, 1*time.Minute, previews[0])
	// Easy yields the longest interval of the four.
	assert.Greater(t, previews[3], previews[2])
	assert.Greater(t, previews[2], previews[1])
}
