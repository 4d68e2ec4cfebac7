// Package models defines the persistent entities shared across the
// store, scheduler, rating, selection, and service layers.
package models

import "time"

// LearningStage is the SM-2 state machine stage a Card occupies.
type LearningStage int

const (
	StageNew LearningStage = iota
	StageLearning
	StageReview
	StageRelearning
)

func (s LearningStage) String() string {
	switch s {
	case StageNew:
		return "new"
	case StageLearning:
		return "learning"
	case StageReview:
		return "review"
	case StageRelearning:
		return "relearning"
	default:
		return "unknown"
	}
}

// Difficulty is the grade a user assigns when reviewing a puzzle.
type Difficulty int

const (
	DifficultyAgain Difficulty = iota
	DifficultyHard
	DifficultyGood
	DifficultyEasy
)

func (d Difficulty) String() string {
	switch d {
	case DifficultyAgain:
		return "again"
	case DifficultyHard:
		return "hard"
	case DifficultyGood:
		return "good"
	case DifficultyEasy:
		return "easy"
	default:
		return "unknown"
	}
}

func (d Difficulty) Valid() bool {
	return d >= DifficultyAgain && d <= DifficultyEasy
}

// Puzzle is an immutable-after-import tactics puzzle.
type Puzzle struct {
	ID              int64    `db:"id" json:"id"`
	Source          string   `db:"source" json:"source"`
	SourceID        string   `db:"source_id" json:"source_id"`
	FEN             string   `db:"fen" json:"fen"`
	Moves           []string `db:"-" json:"moves"`
	MovesRaw        string   `db:"moves" json:"-"`
	Rating          int      `db:"rating" json:"rating"`
	RatingDeviation int      `db:"rating_deviation" json:"rating_deviation"`
	Popularity      int      `db:"popularity" json:"popularity"`
	Plays           int      `db:"plays" json:"plays"`
	GameURL         string   `db:"game_url" json:"game_url"`
	Themes          []string `db:"-" json:"themes"`
	Openings        []string `db:"-" json:"openings"`
}

// User is the (single, local) account the core schedules puzzles for.
type User struct {
	ID               int64   `db:"id" json:"id"`
	Username         string  `db:"username" json:"username"`
	Rating           int     `db:"rating" json:"rating"`
	RatingDeviation  int     `db:"rating_deviation" json:"rating_deviation"`
	RatingVolatility float64 `db:"rating_volatility" json:"rating_volatility"`
	NextPuzzle       *int64  `db:"next_puzzle" json:"next_puzzle,omitempty"`
}

// Provisional reports whether the user's rating is still unreliable,
// per spec: deviation below 100 suppresses the provisional marker.
func (u User) Provisional() bool {
	return u.RatingDeviation >= 100
}

// Card is the per-(user, puzzle) spaced-repetition scheduling state.
type Card struct {
	UserID      int64         `db:"user_id" json:"user_id"`
	PuzzleID    int64         `db:"puzzle_id" json:"puzzle_id"`
	Due         time.Time     `db:"due" json:"due"`
	Interval    time.Duration `db:"interval_seconds" json:"interval"`
	ReviewCount int           `db:"review_count" json:"review_count"`
	Ease        float64       `db:"ease" json:"ease"`
	Stage       LearningStage `db:"learning_stage" json:"learning_stage"`

	// StepsCompleted tracks progress through the current
	// learning/relearning ladder. -1 means the card has not yet taken
	// its first learning step (fresh New card).
	StepsCompleted int `db:"learning_steps_completed" json:"-"`
}

// Review is an append-only record of a graded attempt at a puzzle.
type Review struct {
	ID               int64      `db:"id" json:"id"`
	UserID           int64      `db:"user_id" json:"user_id"`
	PuzzleID         int64      `db:"puzzle_id" json:"puzzle_id"`
	Difficulty       Difficulty `db:"difficulty" json:"difficulty"`
	Date             time.Time  `db:"date" json:"date"`
	UserRatingAtTime int        `db:"user_rating_at_time" json:"user_rating_at_time"`
}

// Skip is an append-only record that a puzzle should not be re-served.
type Skip struct {
	ID       int64     `db:"id" json:"id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	PuzzleID int64     `db:"puzzle_id" json:"puzzle_id"`
	Date     time.Time `db:"date" json:"date"`
}

// AppData is the singleton row tracking process-wide bookkeeping.
type AppData struct {
	ID                int64      `db:"id" json:"id"`
	LichessDBImported bool       `db:"lichess_db_imported" json:"lichess_db_imported"`
	LastBackupDate    *time.Time `db:"last_backup_date" json:"last_backup_date,omitempty"`
}
