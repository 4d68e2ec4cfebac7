package store

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/example/bettertactics/internal/apperror"
	"github.com/example/bettertactics/pkg/models"
)

// InsertSkipTx appends a Skip row inside an existing transaction.
func InsertSkipTx(ctx context.Context, tx *sqlx.Tx, skip models.Skip) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO skips (user_id, puzzle_id, date) VALUES (?, ?, ?)
		ON CONFLICT(user_id, puzzle_id) DO UPDATE SET date = excluded.date
	`, skip.UserID, skip.PuzzleID, skip.Date)
	if err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to insert skip", err)
	}
	return nil
}

// SubmitSkip appends the Skip row and, when ratingReview is non-nil
// (the caller chose "too hard"/"too easy"/"don't repeat" over a plain
// skip), also appends the matching Review row and writes back the
// user's rating triple — all inside one transaction. A plain skip
// touches only the skips table and never the rating.
func (s *Store) SubmitSkip(ctx context.Context, skip models.Skip, ratingReview *models.Review, ratingValue, deviation int, volatility float64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to begin skip submission", err)
	}
	defer tx.Rollback()

	if err := InsertSkipTx(ctx, tx, skip); err != nil {
		return err
	}
	if ratingReview != nil {
		if _, err := InsertReviewTx(ctx, tx, *ratingReview); err != nil {
			return err
		}
		if err := UpdateUserRatingTx(ctx, tx, skip.UserID, ratingValue, deviation, volatility); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to commit skip submission", err)
	}
	return nil
}

// HasSkip reports whether the user has already skipped the puzzle.
func (s *Store) HasSkip(ctx context.Context, userID, puzzleID int64) (bool, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `SELECT id FROM skips WHERE user_id = ? AND puzzle_id = ?`, userID, puzzleID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperror.Wrap(apperror.KindStoreUnavailable, "failed to check skip", err)
	}
	return true, nil
}
