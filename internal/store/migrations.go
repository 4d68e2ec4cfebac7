package store

import "fmt"

// migration is one ordered, idempotent schema step. Version numbers
// must be contiguous starting at 1; the runner applies any version
// not yet recorded in schema_migrations.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS puzzles (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				source TEXT NOT NULL,
				source_id TEXT NOT NULL,
				fen TEXT NOT NULL,
				moves TEXT NOT NULL,
				rating INTEGER NOT NULL,
				rating_deviation INTEGER NOT NULL DEFAULT 0,
				popularity INTEGER NOT NULL DEFAULT 0,
				plays INTEGER NOT NULL DEFAULT 0,
				game_url TEXT NOT NULL DEFAULT '',
				UNIQUE(source, source_id)
			);

			CREATE INDEX IF NOT EXISTS idx_puzzles_rating ON puzzles(rating);

			CREATE TABLE IF NOT EXISTS themes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE
			);

			CREATE TABLE IF NOT EXISTS puzzle_themes (
				puzzle_id INTEGER NOT NULL REFERENCES puzzles(id),
				theme_id INTEGER NOT NULL REFERENCES themes(id),
				PRIMARY KEY (puzzle_id, theme_id)
			);

			CREATE TABLE IF NOT EXISTS openings (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE
			);

			CREATE TABLE IF NOT EXISTS puzzle_openings (
				puzzle_id INTEGER NOT NULL REFERENCES puzzles(id),
				opening_id INTEGER NOT NULL REFERENCES openings(id),
				PRIMARY KEY (puzzle_id, opening_id)
			);

			CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL UNIQUE,
				rating INTEGER NOT NULL,
				rating_deviation INTEGER NOT NULL,
				rating_volatility REAL NOT NULL,
				next_puzzle INTEGER REFERENCES puzzles(id)
			);

			CREATE TABLE IF NOT EXISTS cards (
				user_id INTEGER NOT NULL REFERENCES users(id),
				puzzle_id INTEGER NOT NULL REFERENCES puzzles(id),
				due TIMESTAMP NOT NULL,
				interval_seconds INTEGER NOT NULL,
				review_count INTEGER NOT NULL DEFAULT 0,
				ease REAL NOT NULL,
				learning_stage INTEGER NOT NULL,
				learning_steps_completed INTEGER NOT NULL DEFAULT -1,
				PRIMARY KEY (user_id, puzzle_id)
			);

			CREATE INDEX IF NOT EXISTS idx_cards_due ON cards(user_id, due);

			CREATE TABLE IF NOT EXISTS reviews (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL REFERENCES users(id),
				puzzle_id INTEGER NOT NULL REFERENCES puzzles(id),
				difficulty INTEGER NOT NULL,
				date TIMESTAMP NOT NULL,
				user_rating_at_time INTEGER NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_reviews_user_date ON reviews(user_id, date);

			CREATE TABLE IF NOT EXISTS skips (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL REFERENCES users(id),
				puzzle_id INTEGER NOT NULL REFERENCES puzzles(id),
				date TIMESTAMP NOT NULL,
				UNIQUE(user_id, puzzle_id)
			);

			CREATE TABLE IF NOT EXISTS app_data (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				lichess_db_imported BOOLEAN NOT NULL DEFAULT 0,
				last_backup_date TIMESTAMP
			);

			INSERT OR IGNORE INTO app_data (id, lichess_db_imported) VALUES (1, 0);
		`,
	},
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied := map[int]bool{}
	var versions []int
	if err := s.db.Select(&versions, `SELECT version FROM schema_migrations`); err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	for _, v := range versions {
		applied[v] = true
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}

		tx, err := s.db.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}

	return nil
}

func (s *Store) ensureLocalUser() error {
	var count int
	if err := s.db.Get(&count, `SELECT COUNT(*) FROM users WHERE username = ?`, LocalUsername); err != nil {
		return fmt.Errorf("failed to check for local user: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err := s.db.Exec(
		`INSERT INTO users (username, rating, rating_deviation, rating_volatility) VALUES (?, ?, ?, ?)`,
		LocalUsername, 500, 250, 0.06,
	)
	if err != nil {
		return fmt.Errorf("failed to create local user: %w", err)
	}
	return nil
}

// LocalUsername is the single account this single-user deployment
// schedules puzzles for.
const LocalUsername = "local"
