package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/bettertactics/internal/apperror"
	"github.com/example/bettertactics/pkg/models"
)

// InsertReviewTx appends a Review row inside an existing transaction.
func InsertReviewTx(ctx context.Context, tx *sqlx.Tx, review models.Review) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO reviews (user_id, puzzle_id, difficulty, date, user_rating_at_time)
		VALUES (?, ?, ?, ?, ?)
	`, review.UserID, review.PuzzleID, int(review.Difficulty), review.Date, review.UserRatingAtTime)
	if err != nil {
		return 0, apperror.Wrap(apperror.KindStoreUnavailable, "failed to insert review", err)
	}
	return res.LastInsertId()
}

// SubmitReview appends the Review, upserts the Card, and writes back
// the user's rating triple as a single transaction, so a reader never
// observes the card advanced without the matching review logged (or
// vice versa).
func (s *Store) SubmitReview(ctx context.Context, review models.Review, card models.Card, ratingValue, deviation int, volatility float64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to begin review submission", err)
	}
	defer tx.Rollback()

	if _, err := InsertReviewTx(ctx, tx, review); err != nil {
		return err
	}
	if err := UpsertCardTx(ctx, tx, card); err != nil {
		return err
	}
	if err := UpdateUserRatingTx(ctx, tx, review.UserID, ratingValue, deviation, volatility); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to commit review submission", err)
	}
	return nil
}

// ReviewCount returns the total number of reviews the user has submitted.
func (s *Store) ReviewCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reviews WHERE user_id = ?`, userID); err != nil {
		return 0, apperror.Wrap(apperror.KindStoreUnavailable, "failed to count reviews", err)
	}
	return count, nil
}

// RatingHistoryPoint is one sample of the rating time series.
type RatingHistoryPoint struct {
	Date   time.Time `db:"date"`
	Rating int       `db:"user_rating_at_time"`
}

// RatingHistory returns the user's rating over time from the review
// log, with the current live rating appended (timestamped at now) so
// the series always ends at the user's present rating even if no
// review happened today.
func (s *Store) RatingHistory(ctx context.Context, userID int64, now time.Time) ([]RatingHistoryPoint, error) {
	var points []RatingHistoryPoint
	err := s.db.SelectContext(ctx, &points, `
		SELECT date, user_rating_at_time FROM reviews
		WHERE user_id = ?
		ORDER BY date ASC
	`, userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to load rating history", err)
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	points = append(points, RatingHistoryPoint{Date: now, Rating: user.Rating})
	return points, nil
}

// ReviewScoreBucket is one row of the review-score histogram.
type ReviewScoreBucket struct {
	RatingBucket int               `db:"rating_bucket"`
	Difficulty   models.Difficulty `db:"difficulty"`
	Count        int64             `db:"count"`
}

// ReviewScoreHistogram groups reviews by (puzzle rating bucketed to
// bucketSize, difficulty), returning a count for each combination.
func (s *Store) ReviewScoreHistogram(ctx context.Context, userID int64, bucketSize int) ([]ReviewScoreBucket, error) {
	if bucketSize <= 0 {
		bucketSize = 1
	}
	var rows []ReviewScoreBucket
	err := s.db.SelectContext(ctx, &rows, `
		SELECT (p.rating - (p.rating % ?)) AS rating_bucket, r.difficulty AS difficulty, COUNT(*) AS count
		FROM reviews r
		JOIN puzzles p ON p.id = r.puzzle_id
		WHERE r.user_id = ?
		GROUP BY rating_bucket, r.difficulty
		ORDER BY rating_bucket ASC, r.difficulty ASC
	`, bucketSize, userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to compute review score histogram", err)
	}
	return rows, nil
}
