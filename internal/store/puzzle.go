package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/bettertactics/internal/apperror"
	"github.com/example/bettertactics/pkg/models"
)

type puzzleRow struct {
	ID              int64  `db:"id"`
	Source          string `db:"source"`
	SourceID        string `db:"source_id"`
	FEN             string `db:"fen"`
	Moves           string `db:"moves"`
	Rating          int    `db:"rating"`
	RatingDeviation int    `db:"rating_deviation"`
	Popularity      int    `db:"popularity"`
	Plays           int    `db:"plays"`
	GameURL         string `db:"game_url"`
}

func (r puzzleRow) toModel() models.Puzzle {
	return models.Puzzle{
		ID:              r.ID,
		Source:          r.Source,
		SourceID:        r.SourceID,
		FEN:             r.FEN,
		Moves:           strings.Split(r.Moves, " "),
		MovesRaw:        r.Moves,
		Rating:          r.Rating,
		RatingDeviation: r.RatingDeviation,
		Popularity:      r.Popularity,
		Plays:           r.Plays,
		GameURL:         r.GameURL,
	}
}

// GetPuzzleByID fetches a puzzle by its internal id, including its
// theme and opening tags.
func (s *Store) GetPuzzleByID(ctx context.Context, id int64) (models.Puzzle, error) {
	var row puzzleRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM puzzles WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return models.Puzzle{}, apperror.NotFound(fmt.Sprintf("puzzle %d not found", id))
	}
	if err != nil {
		return models.Puzzle{}, apperror.Wrap(apperror.KindStoreUnavailable, "failed to get puzzle", err)
	}
	puzzle := row.toModel()
	if err := s.attachTags(ctx, &puzzle); err != nil {
		return models.Puzzle{}, err
	}
	return puzzle, nil
}

// GetPuzzleBySourceID fetches a puzzle by its (source, source_id) pair.
func (s *Store) GetPuzzleBySourceID(ctx context.Context, source, sourceID string) (models.Puzzle, error) {
	var row puzzleRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM puzzles WHERE source = ? AND source_id = ?`, source, sourceID)
	if err == sql.ErrNoRows {
		return models.Puzzle{}, apperror.NotFound(fmt.Sprintf("puzzle %s/%s not found", source, sourceID))
	}
	if err != nil {
		return models.Puzzle{}, apperror.Wrap(apperror.KindStoreUnavailable, "failed to get puzzle", err)
	}
	puzzle := row.toModel()
	if err := s.attachTags(ctx, &puzzle); err != nil {
		return models.Puzzle{}, err
	}
	return puzzle, nil
}

func (s *Store) attachTags(ctx context.Context, puzzle *models.Puzzle) error {
	if err := s.db.SelectContext(ctx, &puzzle.Themes, `
		SELECT t.name FROM themes t
		JOIN puzzle_themes pt ON pt.theme_id = t.id
		WHERE pt.puzzle_id = ?
	`, puzzle.ID); err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to load puzzle themes", err)
	}
	if err := s.db.SelectContext(ctx, &puzzle.Openings, `
		SELECT o.name FROM openings o
		JOIN puzzle_openings po ON po.opening_id = o.id
		WHERE po.puzzle_id = ?
	`, puzzle.ID); err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to load puzzle openings", err)
	}
	return nil
}

// PuzzleCount returns the total number of imported puzzles.
func (s *Store) PuzzleCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM puzzles`); err != nil {
		return 0, apperror.Wrap(apperror.KindStoreUnavailable, "failed to count puzzles", err)
	}
	return count, nil
}

// PuzzleRatingRange returns the minimum and maximum rating across the
// imported corpus, used to clamp a requested New-puzzle rating band
// to what actually exists.
func (s *Store) PuzzleRatingRange(ctx context.Context) (lo, hi int, err error) {
	row := struct {
		Min int `db:"min_rating"`
		Max int `db:"max_rating"`
	}{}
	if err := s.db.GetContext(ctx, &row,
		`SELECT COALESCE(MIN(rating), 0) AS min_rating, COALESCE(MAX(rating), 0) AS max_rating FROM puzzles`,
	); err != nil {
		return 0, 0, apperror.Wrap(apperror.KindStoreUnavailable, "failed to get puzzle rating range", err)
	}
	return row.Min, row.Max, nil
}

// RandomPuzzleInRange returns a uniformly random puzzle rated in
// [lo, hi] that the given user has neither a Card nor a Skip for. The
// exclusion is applied inside the query with NOT EXISTS subqueries, so
// the first `ORDER BY RANDOM()` pick either returns such a puzzle or
// reports that none exists; the attempt loop never goes past its
// first pass.
func (s *Store) RandomPuzzleInRange(ctx context.Context, userID int64, lo, hi int) (models.Puzzle, bool, error) {
	const maxAttempts = 5

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var row puzzleRow
		err := s.db.GetContext(ctx, &row, `
			SELECT p.* FROM puzzles p
			WHERE p.rating BETWEEN ? AND ?
			AND NOT EXISTS (SELECT 1 FROM cards c WHERE c.user_id = ? AND c.puzzle_id = p.id)
			AND NOT EXISTS (SELECT 1 FROM skips sk WHERE sk.user_id = ? AND sk.puzzle_id = p.id)
			ORDER BY RANDOM() LIMIT 1
		`, lo, hi, userID, userID)
		if err == sql.ErrNoRows {
			return models.Puzzle{}, false, nil
		}
		if err != nil {
			return models.Puzzle{}, false, apperror.Wrap(apperror.KindStoreUnavailable, "failed to pick random puzzle", err)
		}

		puzzle := row.toModel()
		if err := s.attachTags(ctx, &puzzle); err != nil {
			return models.Puzzle{}, false, err
		}
		return puzzle, true, nil
	}

	return models.Puzzle{}, false, nil
}

// InternTheme returns the integer id for a theme name, creating the
// row if it doesn't already exist.
func (s *Store) InternTheme(ctx context.Context, tx *sqlx.Tx, name string) (int64, error) {
	return internName(ctx, tx, "themes", name)
}

// InternOpening returns the integer id for an opening tag, creating
// the row if it doesn't already exist.
func (s *Store) InternOpening(ctx context.Context, tx *sqlx.Tx, name string) (int64, error) {
	return internName(ctx, tx, "openings", name)
}

func internName(ctx context.Context, tx *sqlx.Tx, table, name string) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, fmt.Sprintf(`SELECT id FROM %s WHERE name = ?`, table), name)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, apperror.Wrap(apperror.KindStoreUnavailable, "failed to look up "+table, err)
	}

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT OR IGNORE INTO %s (name) VALUES (?)`, table), name)
	if err != nil {
		return 0, apperror.Wrap(apperror.KindStoreUnavailable, "failed to intern "+table, err)
	}
	id, err = res.LastInsertId()
	if err != nil || id == 0 {
		// Another writer won the race; re-read.
		if err := tx.GetContext(ctx, &id, fmt.Sprintf(`SELECT id FROM %s WHERE name = ?`, table), name); err != nil {
			return 0, apperror.Wrap(apperror.KindStoreUnavailable, "failed to re-read interned "+table, err)
		}
	}
	return id, nil
}

// UpsertPuzzleBatch inserts or replaces a batch of puzzles and their
// theme/opening relations inside a single transaction, as the Import
// pipeline's persist stage does once per ~1000-row batch.
func (s *Store) UpsertPuzzleBatch(ctx context.Context, batch []models.Puzzle) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to begin puzzle batch transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO puzzles (source, source_id, fen, moves, rating, rating_deviation, popularity, plays, game_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, source_id) DO UPDATE SET
			fen = excluded.fen, moves = excluded.moves, rating = excluded.rating,
			rating_deviation = excluded.rating_deviation, popularity = excluded.popularity,
			plays = excluded.plays, game_url = excluded.game_url
	`)
	if err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to prepare puzzle upsert", err)
	}
	defer stmt.Close()

	for _, p := range batch {
		if _, err := stmt.ExecContext(ctx, p.Source, p.SourceID, p.FEN, strings.Join(p.Moves, " "),
			p.Rating, p.RatingDeviation, p.Popularity, p.Plays, p.GameURL); err != nil {
			return apperror.Wrap(apperror.KindImportFailure, fmt.Sprintf("failed to upsert puzzle %s/%s", p.Source, p.SourceID), err)
		}

		// LastInsertId is not updated when the upsert takes the DO UPDATE
		// path, so the id is always read back by (source, source_id).
		var puzzleID int64
		if err := tx.GetContext(ctx, &puzzleID,
			`SELECT id FROM puzzles WHERE source = ? AND source_id = ?`, p.Source, p.SourceID); err != nil {
			return apperror.Wrap(apperror.KindStoreUnavailable, "failed to resolve upserted puzzle id", err)
		}

		for _, theme := range p.Themes {
			themeID, err := s.InternTheme(ctx, tx, theme)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO puzzle_themes (puzzle_id, theme_id) VALUES (?, ?)`, puzzleID, themeID); err != nil {
				return apperror.Wrap(apperror.KindStoreUnavailable, "failed to link puzzle theme", err)
			}
		}
		for _, opening := range p.Openings {
			openingID, err := s.InternOpening(ctx, tx, opening)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO puzzle_openings (puzzle_id, opening_id) VALUES (?, ?)`, puzzleID, openingID); err != nil {
				return apperror.Wrap(apperror.KindStoreUnavailable, "failed to link puzzle opening", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to commit puzzle batch", err)
	}
	return nil
}

// PuzzleHistoryEntry is one row of a user's puzzle history: the
// puzzle, its most recent review difficulty (if ever reviewed), and
// whether it's been skipped.
type PuzzleHistoryEntry struct {
	Puzzle         models.Puzzle
	LastDifficulty *models.Difficulty
	Skipped        bool
}

// PuzzleHistoryPage returns puzzles the user has reviewed or skipped,
// ordered by puzzle id, highest first, joined with their latest
// review/skip status.
func (s *Store) PuzzleHistoryPage(ctx context.Context, userID int64, page, pageSize int) ([]PuzzleHistoryEntry, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	type row struct {
		puzzleRow
		LastDifficulty sql.NullInt64 `db:"last_difficulty"`
		Skipped        bool          `db:"skipped"`
	}
	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT p.*,
			(SELECT r.difficulty FROM reviews r
				WHERE r.puzzle_id = p.id AND r.user_id = ?
				ORDER BY r.date DESC LIMIT 1) AS last_difficulty,
			EXISTS(SELECT 1 FROM skips sk WHERE sk.puzzle_id = p.id AND sk.user_id = ?) AS skipped
		FROM puzzles p
		WHERE EXISTS(SELECT 1 FROM reviews r WHERE r.puzzle_id = p.id AND r.user_id = ?)
			OR EXISTS(SELECT 1 FROM skips sk WHERE sk.puzzle_id = p.id AND sk.user_id = ?)
		ORDER BY p.id DESC
		LIMIT ? OFFSET ?
	`, userID, userID, userID, userID, pageSize, offset)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to fetch puzzle history", err)
	}

	entries := make([]PuzzleHistoryEntry, 0, len(rows))
	for _, r := range rows {
		entry := PuzzleHistoryEntry{Puzzle: r.puzzleRow.toModel(), Skipped: r.Skipped}
		if r.LastDifficulty.Valid {
			d := models.Difficulty(r.LastDifficulty.Int64)
			entry.LastDifficulty = &d
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
