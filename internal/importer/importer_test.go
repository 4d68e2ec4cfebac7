package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_SplitsThemesAndOpeningsFromDistinctColumns(t *testing.T) {
	record := RawRecord{
		"00008", "r6k1/pp2r2p/4Rp1 w - - 0 1", "f2g3 e6e7", "1760", "80", "83", "72",
		"advantage endgame hangingPiece long", "https://lichess.org/...", "Italian_Game Italian_Game_Classical_Variation",
	}

	puzzle, err := Normalize("lichess", record)
	require.NoError(t, err)

	assert.Equal(t, []string{"advantage", "endgame", "hangingPiece", "long"}, puzzle.Themes)
	assert.Equal(t, []string{"Italian_Game", "Italian_Game_Classical_Variation"}, puzzle.Openings)
	assert.Equal(t, 1760, puzzle.Rating)
	assert.Equal(t, "00008", puzzle.SourceID)
	assert.Equal(t, []string{"f2g3", "e6e7"}, puzzle.Moves)
}

func TestNormalize_RejectsBadRating(t *testing.T) {
	record := RawRecord{
		"1", "fen", "e2e4", "not-a-number", "80", "83", "72", "fork", "url", "",
	}
	_, err := Normalize("lichess", record)
	assert.Error(t, err)
}

func TestNormalize_RejectsEmptyMoves(t *testing.T) {
	record := RawRecord{
		"1", "fen", "", "1500", "80", "83", "72", "fork", "url", "",
	}
	_, err := Normalize("lichess", record)
	assert.Error(t, err)
}

func TestParseCSV_SkipsHeaderAndMalformedRows(t *testing.T) {
	csvData := strings.Join([]string{
		"PuzzleId,FEN,Moves,Rating,RatingDeviation,Popularity,NbPlays,Themes,GameUrl,OpeningTags",
		"1,fen1,e2e4,1500,80,83,72,fork,url,Italian_Game",
		"bad,row,with,too,few,columns",
		"2,fen2,d2d4,1600,75,90,50,pin,url2,",
	}, "\n") + "\n"

	out := make(chan RawRecord, 10)
	err := ParseCSV(strings.NewReader(csvData), out)
	require.NoError(t, err)
	close(out)

	var records []RawRecord
	for r := range out {
		records = append(records, r)
	}
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0][0])
	assert.Equal(t, "2", records[1][0])
}
