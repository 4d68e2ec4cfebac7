package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/bettertactics/internal/apperror"
	"github.com/example/bettertactics/internal/clock"
	"github.com/example/bettertactics/internal/scheduler"
	"github.com/example/bettertactics/internal/selection"
	"github.com/example/bettertactics/internal/store"
	"github.com/example/bettertactics/pkg/models"
)

func newTestService(t *testing.T, now time.Time) (*Service, *store.Store, *clock.Fixed) {
	t.Helper()
	st, err := store.Open("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	fixed := clock.NewFixed(now)
	sched := scheduler.New(scheduler.DefaultConfig(), fixed)
	sel := selection.New(st, sched, selection.DefaultConfig(), fixed)
	svc := New(st, sched, sel, fixed)
	return svc, st, fixed
}

func seedPuzzle(t *testing.T, st *store.Store, sourceID string, rating int) models.Puzzle {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.UpsertPuzzleBatch(ctx, []models.Puzzle{
		{Source: "lichess", SourceID: sourceID, FEN: "x", Moves: []string{"e2e4"}, Rating: rating, RatingDeviation: 80},
	}))
	puzzle, err := st.GetPuzzleBySourceID(ctx, "lichess", sourceID)
	require.NoError(t, err)
	return puzzle
}

func TestSubmitReview_FreshCardAdvancesAndUpdatesRating(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc, st, _ := newTestService(t, now)
	ctx := context.Background()

	puzzle := seedPuzzle(t, st, "p1", 500)
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)

	outcome, err := svc.SubmitReview(ctx, user.ID, puzzle.ID, models.DifficultyGood, 0)
	require.NoError(t, err)
	require.False(t, outcome.Replayed)
	require.Equal(t, 1, outcome.Card.ReviewCount)
	require.Equal(t, models.StageLearning, outcome.Card.Stage)

	reviewCount, err := st.ReviewCount(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), reviewCount)
}

func TestSubmitReview_ReplaysOnStaleReviewCount(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc, st, _ := newTestService(t, now)
	ctx := context.Background()

	puzzle := seedPuzzle(t, st, "p1", 500)
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)

	first, err := svc.SubmitReview(ctx, user.ID, puzzle.ID, models.DifficultyGood, 0)
	require.NoError(t, err)
	require.Equal(t, 1, first.Card.ReviewCount)

	replay, err := svc.SubmitReview(ctx, user.ID, puzzle.ID, models.DifficultyGood, 0)
	require.NoError(t, err)
	require.True(t, replay.Replayed)
	require.Equal(t, first.Card.ReviewCount, replay.Card.ReviewCount)

	reviewCount, err := st.ReviewCount(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), reviewCount)
}

func TestSubmitReview_RejectsReviewCountAheadOfStore(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc, st, _ := newTestService(t, now)
	ctx := context.Background()

	puzzle := seedPuzzle(t, st, "p1", 500)
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)

	_, err = svc.SubmitReview(ctx, user.ID, puzzle.ID, models.DifficultyGood, 5)
	require.Error(t, err)
	require.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestSubmitReview_GoodNeverLowersRating(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc, st, _ := newTestService(t, now)
	ctx := context.Background()

	// Against a puzzle rated far below the user's rating the expected
	// score is close to 1, so a Good grade (0.8) would pull the rating
	// down on a literal Glicko-2 update; the service must suppress that
	// for Good.
	puzzle := seedPuzzle(t, st, "easy", 100)
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)
	require.NoError(t, st.UpdateUserRating(ctx, user.ID, 1800, 60, 0.06))
	user, err = st.GetUserByID(ctx, user.ID)
	require.NoError(t, err)

	outcome, err := svc.SubmitReview(ctx, user.ID, puzzle.ID, models.DifficultyGood, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, outcome.Rating.Rating, user.Rating)
}

func TestSubmitReview_InvalidDifficultyRejected(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc, st, _ := newTestService(t, now)
	ctx := context.Background()

	puzzle := seedPuzzle(t, st, "p1", 500)
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)

	_, err = svc.SubmitReview(ctx, user.ID, puzzle.ID, models.Difficulty(99), 0)
	require.Error(t, err)
	require.True(t, apperror.Is(err, apperror.KindInvalidInput))
}

func TestSubmitSkip_PlainSkipDoesNotTouchRating(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc, st, _ := newTestService(t, now)
	ctx := context.Background()

	puzzle := seedPuzzle(t, st, "p1", 500)
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.SubmitSkip(ctx, user.ID, puzzle.ID, SkipPlain))

	skipped, err := st.HasSkip(ctx, user.ID, puzzle.ID)
	require.NoError(t, err)
	require.True(t, skipped)

	reviewCount, err := st.ReviewCount(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), reviewCount)

	after, err := st.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Rating, after.Rating)
}

func TestSubmitSkip_TooHardRunsRatingUpdateAndLogsReview(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc, st, _ := newTestService(t, now)
	ctx := context.Background()

	puzzle := seedPuzzle(t, st, "p1", 1800)
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.SubmitSkip(ctx, user.ID, puzzle.ID, SkipTooHard))

	reviewCount, err := st.ReviewCount(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), reviewCount)

	_, found, err := st.GetCard(ctx, user.ID, puzzle.ID)
	require.NoError(t, err)
	require.False(t, found, "a skip must never create a card")
}

func TestGetStats_ReportsCardsAndRating(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc, st, _ := newTestService(t, now)
	ctx := context.Background()

	puzzle := seedPuzzle(t, st, "p1", 500)
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)

	_, err = svc.SubmitReview(ctx, user.ID, puzzle.ID, models.DifficultyGood, 0)
	require.NoError(t, err)

	stats, err := svc.GetStats(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.CardCount)
	require.Equal(t, int64(1), stats.ReviewCount)
	require.True(t, stats.Provisional)
}

func TestGetReviewForecast_ValidatesDays(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc, st, _ := newTestService(t, now)
	ctx := context.Background()
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)

	_, err = svc.GetReviewForecast(ctx, user.ID, 0)
	require.Error(t, err)
	require.True(t, apperror.Is(err, apperror.KindInvalidInput))

	forecast, err := svc.GetReviewForecast(ctx, user.ID, 8)
	require.NoError(t, err)
	require.Len(t, forecast, 8)
}

func TestSetRating_ResetsDeviationAndVolatility(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc, st, _ := newTestService(t, now)
	ctx := context.Background()
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.SetRating(ctx, user.ID, 2000))

	after, err := st.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 2000, after.Rating)
	require.Equal(t, 250, after.RatingDeviation)
	require.InDelta(t, 0.06, after.RatingVolatility, 1e-9)
}
