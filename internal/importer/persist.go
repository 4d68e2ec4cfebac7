package importer

import (
	"context"
	"log"

	"github.com/example/bettertactics/internal/store"
	"github.com/example/bettertactics/pkg/models"
)

// Persist batches puzzles from in into transactions of batchSize rows,
// yielding between batches so online readers see frequent commit points.
func Persist(ctx context.Context, st *store.Store, in <-chan models.Puzzle, batchSize int) error {
	batch := make([]models.Puzzle, 0, batchSize)
	imported := 0
	const progressEvery = 100000

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := st.UpsertPuzzleBatch(ctx, batch); err != nil {
			return err
		}
		imported += len(batch)
		batch = batch[:0]
		return nil
	}

	lastReported := 0
	for puzzle := range in {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch = append(batch, puzzle)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}

		if imported-lastReported >= progressEvery {
			lastReported = imported
			log.Printf("importer: %d puzzles imported so far", imported)
		}
	}

	return flush()
}
