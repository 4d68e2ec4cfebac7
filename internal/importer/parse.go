package importer

import (
	"encoding/csv"
	"errors"
	"io"
	"log"
)

// expectedColumns is the lichess puzzle CSV's column count:
// PuzzleId, FEN, Moves, Rating, RatingDeviation, Popularity, NbPlays,
// Themes, GameUrl, OpeningTags.
const expectedColumns = 10

// RawRecord is one unparsed CSV row from the puzzle corpus.
type RawRecord []string

// ParseCSV reads r as the lichess puzzle CSV, sending each well-formed
// row on out. Malformed rows (wrong column count) are logged and
// dropped rather than aborting the import.
func ParseCSV(r io.Reader, out chan<- RawRecord) error {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			log.Printf("importer: skipping unparseable CSV row: %v", err)
			continue
		}
		if len(record) != expectedColumns {
			log.Printf("importer: skipping record with %d columns, expected %d", len(record), expectedColumns)
			continue
		}
		if first {
			first = false
			if record[0] == "PuzzleId" {
				continue // header row
			}
		}
		out <- RawRecord(record)
	}
}
