package selection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/bettertactics/internal/clock"
	"github.com/example/bettertactics/internal/scheduler"
	"github.com/example/bettertactics/internal/store"
	"github.com/example/bettertactics/pkg/models"
)

func newTestSelector(t *testing.T, now time.Time) (*Selector, *store.Store, *clock.Fixed) {
	t.Helper()
	st, err := store.Open("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	fixed := clock.NewFixed(now)
	sched := scheduler.New(scheduler.DefaultConfig(), fixed)
	sel := New(st, sched, DefaultConfig(), fixed)
	return sel, st, fixed
}

func TestNextReview_EmptyReturnsWaitTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	sel, st, _ := newTestSelector(t, now)
	ctx := context.Background()

	require.NoError(t, st.UpsertPuzzleBatch(ctx, []models.Puzzle{
		{Source: "lichess", SourceID: "p1", FEN: "x", Moves: []string{"e2e4"}, Rating: 1000},
	}))
	puzzle, err := st.GetPuzzleBySourceID(ctx, "lichess", "p1")
	require.NoError(t, err)
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)

	card := models.Card{
		UserID: user.ID, PuzzleID: puzzle.ID, Stage: models.StageLearning,
		Due: now.Add(5 * time.Minute), Interval: 10 * time.Minute, Ease: 2.5, StepsCompleted: 0,
	}
	require.NoError(t, st.UpsertCard(ctx, card))

	result, err := sel.NextReview(ctx, user, store.OrderDueTime)
	require.NoError(t, err)
	require.False(t, result.Found)
	require.Equal(t, int64(5*time.Minute/time.Millisecond), result.MsUntilNext)
}

func TestNextNew_PersistsSelectionUntilCleared(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	sel, st, _ := newTestSelector(t, now)
	ctx := context.Background()

	require.NoError(t, st.UpsertPuzzleBatch(ctx, []models.Puzzle{
		{Source: "lichess", SourceID: "p1", FEN: "x", Moves: []string{"e2e4"}, Rating: 500},
	}))
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)

	first, err := sel.NextNew(ctx, user)
	require.NoError(t, err)
	require.True(t, first.Found)

	user, err = st.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, user.NextPuzzle)

	second, err := sel.NextNew(ctx, user)
	require.NoError(t, err)
	require.Equal(t, first.Puzzle.ID, second.Puzzle.ID)
}

func TestNextNew_NoPuzzlesInRange(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	sel, st, _ := newTestSelector(t, now)
	ctx := context.Background()

	require.NoError(t, st.UpsertPuzzleBatch(ctx, []models.Puzzle{
		{Source: "lichess", SourceID: "low", FEN: "x", Moves: []string{"e2e4"}, Rating: 1000},
		{Source: "lichess", SourceID: "high", FEN: "x", Moves: []string{"e2e4"}, Rating: 1400},
	}))
	user, err := st.GetLocalUser(ctx)
	require.NoError(t, err)
	user.Rating = 1200

	result, err := sel.NextNew(ctx, user)
	require.NoError(t, err)
	require.False(t, result.Found)
}

func TestParseReviewOrder(t *testing.T) {
	require.Equal(t, store.OrderPuzzleRating, ParseReviewOrder("PuzzleRating"))
	require.Equal(t, store.OrderRandom, ParseReviewOrder("Random"))
	require.Equal(t, store.OrderDueTime, ParseReviewOrder("DueTime"))
}
