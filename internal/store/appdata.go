package store

import (
	"context"
	"time"

	"github.com/example/bettertactics/internal/apperror"
	"github.com/example/bettertactics/pkg/models"
)

// GetAppData returns the singleton app_data row.
func (s *Store) GetAppData(ctx context.Context) (models.AppData, error) {
	var data models.AppData
	err := s.db.GetContext(ctx, &data, `SELECT * FROM app_data WHERE id = 1`)
	if err != nil {
		return models.AppData{}, apperror.Wrap(apperror.KindStoreUnavailable, "failed to get app data", err)
	}
	return data, nil
}

// SetLichessDBImported flips the import-completion flag. It is only
// ever set true after a full import stream completes; a failed or
// cancelled import leaves it false so the next startup retries.
func (s *Store) SetLichessDBImported(ctx context.Context, imported bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE app_data SET lichess_db_imported = ? WHERE id = 1`, imported)
	if err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to update import flag", err)
	}
	return nil
}

// SetLastBackupDate records when the most recent successful backup ran.
func (s *Store) SetLastBackupDate(ctx context.Context, when time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE app_data SET last_backup_date = ? WHERE id = 1`, when)
	if err != nil {
		return apperror.Wrap(apperror.KindStoreUnavailable, "failed to update last backup date", err)
	}
	return nil
}
