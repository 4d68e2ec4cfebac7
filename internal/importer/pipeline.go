// Package importer streams the lichess puzzle corpus into the store:
// fetch the compressed CSV, decompress it, parse rows, normalize
// them, and persist in batches, each stage decoupled by a bounded
// channel so a slow downstream stage never stalls an upstream one
// past its buffer.
package importer

import (
	"context"
	"log"
	"net/http"

	"github.com/example/bettertactics/internal/apperror"
	"github.com/example/bettertactics/internal/store"
	"github.com/example/bettertactics/pkg/models"
)

// Config parameterizes a single import run.
type Config struct {
	SourceURL string
	Source    string
	BatchSize int

	recordBufferSize int
	puzzleBufferSize int
}

func DefaultConfig() Config {
	return Config{
		SourceURL:        "https://database.lichess.org/lichess_db_puzzle.csv.zst",
		Source:           "lichess",
		BatchSize:        1000,
		recordBufferSize: 256,
		puzzleBufferSize: 256,
	}
}

// Run executes the full pipeline if the corpus hasn't already been
// imported. It is safe to call on every startup; a completed import
// is a fast no-op after the app_data check.
func Run(ctx context.Context, cfg Config, st *store.Store) error {
	appData, err := st.GetAppData(ctx)
	if err != nil {
		return err
	}
	if appData.LichessDBImported {
		count, err := st.PuzzleCount(ctx)
		if err == nil {
			log.Printf("importer: corpus already imported (%d puzzles)", count)
		}
		return nil
	}

	log.Printf("importer: starting import from %s", cfg.SourceURL)

	body, err := Fetch(ctx, &http.Client{Timeout: 0}, cfg.SourceURL)
	if err != nil {
		return err
	}
	defer body.Close()

	decompressed, err := Decompress(body)
	if err != nil {
		return err
	}
	defer decompressed.Close()

	if cfg.recordBufferSize == 0 {
		cfg.recordBufferSize = 256
	}
	if cfg.puzzleBufferSize == 0 {
		cfg.puzzleBufferSize = 256
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1000
	}

	records := make(chan RawRecord, cfg.recordBufferSize)
	puzzles := make(chan models.Puzzle, cfg.puzzleBufferSize)
	parseErrCh := make(chan error, 1)
	normalizeDone := make(chan struct{})
	persistErrCh := make(chan error, 1)

	go func() {
		defer close(records)
		parseErrCh <- ParseCSV(decompressed, records)
	}()

	go func() {
		defer close(puzzles)
		defer close(normalizeDone)
		for record := range records {
			select {
			case <-ctx.Done():
				return
			default:
			}

			puzzle, err := Normalize(cfg.Source, record)
			if err != nil {
				log.Printf("importer: dropping malformed puzzle row: %v", err)
				continue
			}
			puzzles <- puzzle
		}
	}()

	go func() {
		persistErrCh <- Persist(ctx, st, puzzles, cfg.BatchSize)
	}()

	var persistErr error
	select {
	case persistErr = <-persistErrCh:
	case <-ctx.Done():
		return apperror.ImportFailure("import cancelled", ctx.Err())
	}

	if err := <-parseErrCh; err != nil {
		return apperror.ImportFailure("failed to parse puzzle corpus", err)
	}
	<-normalizeDone

	if persistErr != nil {
		return apperror.ImportFailure("failed to persist puzzle corpus", persistErr)
	}

	if err := st.SetLichessDBImported(ctx, true); err != nil {
		return err
	}

	log.Printf("importer: import completed")
	return nil
}
