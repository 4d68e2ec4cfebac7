package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/bettertactics/internal/apperror"
	"github.com/example/bettertactics/pkg/models"
)

// GetUserByID fetches a user by internal id.
func (s *Store) GetUserByID(ctx context.Context, userID int64) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, userID)
	if err == sql.ErrNoRows {
		return models.User{}, apperror.NotFound(fmt.Sprintf("user %d not found", userID))
	}
	if err != nil {
		return models.User{}, apperror.Wrap(apperror.KindStoreUnavailable, "failed to get user", err)
	}
	return user, nil
}

// GetLocalUser fetches the single local-deployment user.
func (s *Store) GetLocalUser(ctx context.Context) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE username = ?`, LocalUsername)
	if err == sql.ErrNoRows {
		return models.User{}, apperror.NotFound("local user not found")
	}
	if err != nil {
		return models.User{}, apperror.Wrap(apperror.KindStoreUnavailable, "failed to get local user", err)
	}
	return user, nil
}

// UpdateUserRating writes back the user's cached rating triple.
func (s *Store) UpdateUserRating(ctx context.Context, userID int64, ratingValue, deviation int, volatility float64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to begin rating update", err)
	}
	defer tx.Rollback()

	if err := UpdateUserRatingTx(ctx, tx, userID, ratingValue, deviation, volatility); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to commit rating update", err)
	}
	return nil
}

// UpdateUserRatingTx writes back the user's cached rating triple
// inside an existing transaction, used by SubmitReview and SubmitSkip
// so the rating write commits atomically with the review/skip log entry.
func UpdateUserRatingTx(ctx context.Context, tx *sqlx.Tx, userID int64, ratingValue, deviation int, volatility float64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET rating = ?, rating_deviation = ?, rating_volatility = ? WHERE id = ?`,
		ratingValue, deviation, volatility, userID)
	if err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to update user rating", err)
	}
	return nil
}

// SetNextPuzzle persists the pending New-mode selection so it is
// re-served idempotently until started or skipped. Pass nil to clear it.
func (s *Store) SetNextPuzzle(ctx context.Context, userID int64, puzzleID *int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET next_puzzle = ? WHERE id = ?`, puzzleID, userID)
	if err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to set next puzzle", err)
	}
	return nil
}
