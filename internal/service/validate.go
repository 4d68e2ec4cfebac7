package service

import (
	"fmt"

	"github.com/example/bettertactics/internal/apperror"
	"github.com/example/bettertactics/pkg/models"
)

// validateDays checks get_review_forecast's day count.
func validateDays(days int) error {
	if days < 1 || days > 365 {
		return apperror.InvalidInput(fmt.Sprintf("days must be in [1,365], got %d", days))
	}
	return nil
}

// validateBucket checks get_review_score_histogram's bucket size.
func validateBucket(bucket int) error {
	if bucket < 1 || bucket > 1000 {
		return apperror.InvalidInput(fmt.Sprintf("bucket must be in [1,1000], got %d", bucket))
	}
	return nil
}

// validatePage checks puzzle_history's page number.
func validatePage(page int) error {
	if page < 1 {
		return apperror.InvalidInput(fmt.Sprintf("page must be >= 1, got %d", page))
	}
	return nil
}

// validateDifficulty checks a review grade.
func validateDifficulty(d models.Difficulty) error {
	if !d.Valid() {
		return apperror.InvalidInput(fmt.Sprintf("invalid difficulty %d", int(d)))
	}
	return nil
}

// validateRating checks a debug rating reset value.
func validateRating(rating int) error {
	if rating < 0 {
		return apperror.InvalidInput(fmt.Sprintf("rating must be >= 0, got %d", rating))
	}
	return nil
}
