package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/bettertactics/pkg/models"
)

// Column indices in the lichess puzzle CSV. Themes and openings are
// distinct columns; an earlier port of this importer read the Themes
// column for both, silently losing every opening tag.
const (
	colPuzzleID        = 0
	colFEN             = 1
	colMoves           = 2
	colRating          = 3
	colRatingDeviation = 4
	colPopularity      = 5
	colNbPlays         = 6
	colThemes          = 7
	colGameURL         = 8
	colOpeningTags     = 9
)

// Normalize converts one raw CSV row into a Puzzle. Themes and
// openings stay as plain name strings here; the persist stage interns
// them to integer ids inside the same transaction as the puzzle insert.
func Normalize(source string, record RawRecord) (models.Puzzle, error) {
	rating, err := strconv.Atoi(record[colRating])
	if err != nil {
		return models.Puzzle{}, fmt.Errorf("invalid rating %q: %w", record[colRating], err)
	}
	deviation, err := strconv.Atoi(record[colRatingDeviation])
	if err != nil {
		return models.Puzzle{}, fmt.Errorf("invalid rating deviation %q: %w", record[colRatingDeviation], err)
	}
	popularity, err := strconv.Atoi(record[colPopularity])
	if err != nil {
		return models.Puzzle{}, fmt.Errorf("invalid popularity %q: %w", record[colPopularity], err)
	}
	plays, err := strconv.Atoi(record[colNbPlays])
	if err != nil {
		return models.Puzzle{}, fmt.Errorf("invalid play count %q: %w", record[colNbPlays], err)
	}

	moves := strings.Fields(record[colMoves])
	if len(moves) == 0 {
		return models.Puzzle{}, fmt.Errorf("puzzle %s has no moves", record[colPuzzleID])
	}

	return models.Puzzle{
		Source:          source,
		SourceID:        record[colPuzzleID],
		FEN:             record[colFEN],
		Moves:           moves,
		Rating:          rating,
		RatingDeviation: deviation,
		Popularity:      popularity,
		Plays:           plays,
		GameURL:         record[colGameURL],
		Themes:          splitTags(record[colThemes]),
		Openings:        splitTags(record[colOpeningTags]),
	}, nil
}

func splitTags(field string) []string {
	if field == "" {
		return nil
	}
	return strings.Fields(field)
}
