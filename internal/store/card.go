package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/example/bettertactics/internal/apperror"
	"github.com/example/bettertactics/pkg/models"
)

type cardRow struct {
	UserID         int64     `db:"user_id"`
	PuzzleID       int64     `db:"puzzle_id"`
	Due            time.Time `db:"due"`
	IntervalSecs   int64     `db:"interval_seconds"`
	ReviewCount    int       `db:"review_count"`
	Ease           float64   `db:"ease"`
	Stage          int       `db:"learning_stage"`
	StepsCompleted int       `db:"learning_steps_completed"`
}

func (r cardRow) toModel() models.Card {
	return models.Card{
		UserID:         r.UserID,
		PuzzleID:       r.PuzzleID,
		Due:            r.Due,
		Interval:       time.Duration(r.IntervalSecs) * time.Second,
		ReviewCount:    r.ReviewCount,
		Ease:           r.Ease,
		Stage:          models.LearningStage(r.Stage),
		StepsCompleted: r.StepsCompleted,
	}
}

func fromCardModel(c models.Card) cardRow {
	return cardRow{
		UserID:         c.UserID,
		PuzzleID:       c.PuzzleID,
		Due:            c.Due,
		IntervalSecs:   int64(c.Interval / time.Second),
		ReviewCount:    c.ReviewCount,
		Ease:           c.Ease,
		Stage:          int(c.Stage),
		StepsCompleted: c.StepsCompleted,
	}
}

// GetCard fetches the Card for (userID, puzzleID), if one exists.
func (s *Store) GetCard(ctx context.Context, userID, puzzleID int64) (models.Card, bool, error) {
	var row cardRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM cards WHERE user_id = ? AND puzzle_id = ?`, userID, puzzleID)
	if err == sql.ErrNoRows {
		return models.Card{}, false, nil
	}
	if err != nil {
		return models.Card{}, false, apperror.Wrap(apperror.KindStoreUnavailable, "failed to get card", err)
	}
	return row.toModel(), true, nil
}

// UpsertCardTx writes a card inside an existing transaction, used by
// the submit_review flow so the review insert, card upsert, and
// rating update all commit atomically.
func UpsertCardTx(ctx context.Context, tx *sqlx.Tx, card models.Card) error {
	row := fromCardModel(card)
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO cards (user_id, puzzle_id, due, interval_seconds, review_count, ease, learning_stage, learning_steps_completed)
		VALUES (:user_id, :puzzle_id, :due, :interval_seconds, :review_count, :ease, :learning_stage, :learning_steps_completed)
		ON CONFLICT(user_id, puzzle_id) DO UPDATE SET
			due = excluded.due, interval_seconds = excluded.interval_seconds,
			review_count = excluded.review_count, ease = excluded.ease,
			learning_stage = excluded.learning_stage, learning_steps_completed = excluded.learning_steps_completed
	`, row)
	if err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to upsert card", err)
	}
	return nil
}

// UpsertCard writes a single card in its own transaction. Callers
// that need to combine the write with a review insert or rating
// update should use UpsertCardTx directly against a shared *sqlx.Tx
// instead.
func (s *Store) UpsertCard(ctx context.Context, card models.Card) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to begin card upsert", err)
	}
	defer tx.Rollback()

	if err := UpsertCardTx(ctx, tx, card); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to commit card upsert", err)
	}
	return nil
}

// ReviewOrder selects the ordering applied to the due-card query.
type ReviewOrder int

const (
	OrderDueTime ReviewOrder = iota
	OrderPuzzleRating
	OrderRandom
)

// DueCard pairs a Card with sufficient context for Selection to
// choose among the due set without a second round trip.
type DueCard struct {
	Card         models.Card
	PuzzleRating int
}

// DueCards returns cards due for userID at or before the day boundary
// dayEnd, excluding Learning/Relearning cards whose due time is still
// after now even within that window (they are never served ahead of
// schedule).
func (s *Store) DueCards(ctx context.Context, userID int64, now, dayEnd time.Time, order ReviewOrder) ([]DueCard, error) {
	orderClause := "c.due ASC, c.puzzle_id ASC"
	switch order {
	case OrderPuzzleRating:
		orderClause = "p.rating ASC, c.puzzle_id ASC"
	case OrderRandom:
		orderClause = "RANDOM()"
	}

	query := fmt.Sprintf(`
		SELECT c.*, p.rating AS puzzle_rating FROM cards c
		JOIN puzzles p ON p.id = c.puzzle_id
		WHERE c.user_id = ?
		AND c.due <= ?
		AND (
			c.learning_stage NOT IN (?, ?)
			OR c.due <= ?
		)
		ORDER BY %s
	`, orderClause)

	type row struct {
		cardRow
		PuzzleRating int `db:"puzzle_rating"`
	}
	var rows []row
	err := s.db.SelectContext(ctx, &rows, query,
		userID, dayEnd, int(models.StageLearning), int(models.StageRelearning), now)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to query due cards", err)
	}

	out := make([]DueCard, 0, len(rows))
	for _, r := range rows {
		out = append(out, DueCard{Card: r.cardRow.toModel(), PuzzleRating: r.PuzzleRating})
	}
	return out, nil
}

// NextDueTime returns the earliest future due time among the user's
// Learning/Relearning-excluded cards, for the "ms until next due"
// signal when the due set is currently empty.
func (s *Store) NextDueTime(ctx context.Context, userID int64, now, dayEnd time.Time) (time.Time, bool, error) {
	var due sql.NullString
	err := s.db.GetContext(ctx, &due, `
		SELECT MIN(due) FROM cards
		WHERE user_id = ? AND due > ? AND due <= ?
	`, userID, now, dayEnd)
	if err != nil {
		return time.Time{}, false, apperror.Wrap(apperror.KindStoreUnavailable, "failed to query next due time", err)
	}
	if !due.Valid {
		return time.Time{}, false, nil
	}
	parsed, err := parseSQLiteTime(due.String)
	if err != nil {
		return time.Time{}, false, apperror.Wrap(apperror.KindStoreUnavailable, "failed to query next due time", err)
	}
	return parsed, true, nil
}

// parseSQLiteTime parses a timestamp string returned by SQLite for an
// aggregate expression (e.g. MIN(due)), which loses the column's declared
// type and so comes back as text instead of being auto-converted by the
// driver.
func parseSQLiteTime(s string) (time.Time, error) {
	for _, format := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized sqlite timestamp format: %q", s)
}

// CardCount returns the number of cards the user has ever created.
func (s *Store) CardCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM cards WHERE user_id = ?`, userID); err != nil {
		return 0, apperror.Wrap(apperror.KindStoreUnavailable, "failed to count cards", err)
	}
	return count, nil
}

// ReviewsDueBy counts cards due at or before the given boundary.
func (s *Store) ReviewsDueBy(ctx context.Context, userID int64, boundary time.Time) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM cards WHERE user_id = ? AND due <= ?`, userID, boundary); err != nil {
		return 0, apperror.Wrap(apperror.KindStoreUnavailable, "failed to count reviews due", err)
	}
	return count, nil
}

// ReviewsDueBetween counts cards whose due time falls in [start, end).
func (s *Store) ReviewsDueBetween(ctx context.Context, userID int64, start, end time.Time) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM cards WHERE user_id = ? AND due >= ? AND due < ?`, userID, start, end); err != nil {
		return 0, apperror.Wrap(apperror.KindStoreUnavailable, "failed to count reviews due between", err)
	}
	return count, nil
}
