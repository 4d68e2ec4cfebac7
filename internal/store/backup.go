package store

import (
	"context"
	"fmt"

	"github.com/example/bettertactics/internal/apperror"
)

// backedUpTables excludes puzzles and their theme/opening relations,
// which are regenerable from the import pipeline and would otherwise
// dominate snapshot size.
var backedUpTables = []string{"users", "cards", "reviews", "skips", "app_data"}

// Backup writes a user-data-only snapshot of the store to destPath
// using SQLite's ATTACH/INSERT.../DETACH sequence. The puzzle corpus
// is excluded; a restore into a fresh deployment triggers a fresh
// import instead of shipping multi-million-row puzzle data in every
// snapshot. The copy's import flag is zeroed so that restoring it
// also re-triggers import rather than silently claiming completion.
func (s *Store) Backup(ctx context.Context, destPath string) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return apperror.BackupFailure("failed to acquire backup connection", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS backup_db`, destPath); err != nil {
		return apperror.BackupFailure("failed to attach backup database", err)
	}
	defer conn.ExecContext(context.Background(), `DETACH DATABASE backup_db`)

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.BackupFailure("failed to begin backup transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS backup_db.users AS SELECT * FROM users WHERE 0;
		CREATE TABLE IF NOT EXISTS backup_db.cards AS SELECT * FROM cards WHERE 0;
		CREATE TABLE IF NOT EXISTS backup_db.reviews AS SELECT * FROM reviews WHERE 0;
		CREATE TABLE IF NOT EXISTS backup_db.skips AS SELECT * FROM skips WHERE 0;
		CREATE TABLE IF NOT EXISTS backup_db.app_data AS SELECT * FROM app_data WHERE 0;
	`); err != nil {
		return apperror.BackupFailure("failed to create backup tables", err)
	}

	for _, table := range backedUpTables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			`INSERT OR REPLACE INTO backup_db.%s SELECT * FROM %s`, table, table)); err != nil {
			return apperror.BackupFailure(fmt.Sprintf("failed to copy table %s", table), err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE backup_db.app_data SET lichess_db_imported = 0`); err != nil {
		return apperror.BackupFailure("failed to reset import flag in backup", err)
	}

	if err := tx.Commit(); err != nil {
		return apperror.BackupFailure("failed to commit backup", err)
	}
	return nil
}
