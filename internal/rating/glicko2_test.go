package rating

import (
	"testing"

	"github.com/example/bettertactics/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate_FreshUserWinsAgainstHigherRatedPuzzle(t *testing.T) {
	start := Rating{Value: 500, Deviation: 250, Volatility: 0.06}

	out, err := Update(start, []Outcome{
		{OpponentRating: 800, OpponentDeviation: 50, Score: ScoreForDifficulty(models.DifficultyGood)},
	})
	require.NoError(t, err)

	assert.Greater(t, out.Value, start.Value)
	assert.Less(t, out.Deviation, start.Deviation)
	assert.GreaterOrEqual(t, out.Deviation, 30)
	assert.LessOrEqual(t, out.Deviation, 500)
	assert.Greater(t, out.Volatility, 0.0)
	assert.LessOrEqual(t, out.Volatility, 0.1)
}

func TestUpdate_AgainLowersRating(t *testing.T) {
	start := Rating{Value: 1200, Deviation: 80, Volatility: 0.06}

	out, err := Update(start, []Outcome{
		{OpponentRating: 1200, OpponentDeviation: 60, Score: ScoreForDifficulty(models.DifficultyAgain)},
	})
	require.NoError(t, err)

	assert.Less(t, out.Value, start.Value)
}

func TestUpdate_NoOutcomesIsNoop(t *testing.T) {
	start := Rating{Value: 1000, Deviation: 100, Volatility: 0.05}
	out, err := Update(start, nil)
	require.NoError(t, err)
	assert.Equal(t, start, out)
}

func TestUpdate_DeviationNeverBelowFloor(t *testing.T) {
	start := Rating{Value: 1500, Deviation: 35, Volatility: 0.03}

	out, err := Update(start, []Outcome{
		{OpponentRating: 1500, OpponentDeviation: 40, Score: 0.8},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.Deviation, 30)
}

func TestUpdate_RatingNeverNegative(t *testing.T) {
	start := Rating{Value: 10, Deviation: 300, Volatility: 0.08}

	out, err := Update(start, []Outcome{
		{OpponentRating: 2500, OpponentDeviation: 40, Score: 0.0},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.Value, 0)
}

func TestScoreForDifficulty_MapsAllFourGrades(t *testing.T) {
	assert.Equal(t, 0.0, ScoreForDifficulty(models.DifficultyAgain))
	assert.Equal(t, 0.5, ScoreForDifficulty(models.DifficultyHard))
	assert.Equal(t, 0.8, ScoreForDifficulty(models.DifficultyGood))
	assert.Equal(t, 1.0, ScoreForDifficulty(models.DifficultyEasy))
}
