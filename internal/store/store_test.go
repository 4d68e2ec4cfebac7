package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/bettertactics/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_SeedsLocalUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	user, err := s.GetLocalUser(ctx)
	require.NoError(t, err)
	require.Equal(t, 500, user.Rating)
	require.Equal(t, 250, user.RatingDeviation)
	require.InDelta(t, 0.06, user.RatingVolatility, 1e-9)
}

func TestUpsertPuzzleBatch_IsIdempotentOnSourceID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	puzzle := models.Puzzle{
		Source: "lichess", SourceID: "abcd1", FEN: "startpos", Moves: []string{"e2e4", "e7e5"},
		Rating: 1200, Themes: []string{"fork"}, Openings: []string{"Italian Game"},
	}

	require.NoError(t, s.UpsertPuzzleBatch(ctx, []models.Puzzle{puzzle}))
	puzzle.Rating = 1300
	require.NoError(t, s.UpsertPuzzleBatch(ctx, []models.Puzzle{puzzle}))

	count, err := s.PuzzleCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	got, err := s.GetPuzzleBySourceID(ctx, "lichess", "abcd1")
	require.NoError(t, err)
	require.Equal(t, 1300, got.Rating)
	require.Contains(t, got.Themes, "fork")
}

func TestCardUpsertAndRetrieval(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPuzzleBatch(ctx, []models.Puzzle{{
		Source: "lichess", SourceID: "p1", FEN: "x", Moves: []string{"e2e4"}, Rating: 1000,
	}}))
	puzzle, err := s.GetPuzzleBySourceID(ctx, "lichess", "p1")
	require.NoError(t, err)

	user, err := s.GetLocalUser(ctx)
	require.NoError(t, err)

	now := time.Now().Truncate(time.Second)
	card := models.Card{
		UserID: user.ID, PuzzleID: puzzle.ID, Due: now.Add(10 * time.Minute),
		Interval: 10 * time.Minute, ReviewCount: 1, Ease: 2.5,
		Stage: models.StageLearning, StepsCompleted: 0,
	}

	require.NoError(t, s.UpsertCard(ctx, card))

	got, found, err := s.GetCard(ctx, user.ID, puzzle.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, models.StageLearning, got.Stage)
	require.Equal(t, 10*time.Minute, got.Interval)
}

func TestBackup_ExcludesPuzzles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPuzzleBatch(ctx, []models.Puzzle{{
		Source: "lichess", SourceID: "p1", FEN: "x", Moves: []string{"e2e4"}, Rating: 1000,
	}}))

	dest := t.TempDir() + "/backup.sqlite"
	require.NoError(t, s.Backup(ctx, dest))

	backupStore, err := Open(dest)
	require.NoError(t, err)
	defer backupStore.Close()

	count, err := backupStore.PuzzleCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, count)

	data, err := backupStore.GetAppData(ctx)
	require.NoError(t, err)
	require.False(t, data.LichessDBImported)
}
