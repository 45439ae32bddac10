package scoring

import (
	"fmt"
	"math"

	"github.com/moneymoves/backend/internal/models"
)

// ValidationError reports a ranking that is not a permutation of the
// challenge's option set. It is rejected before any transaction opens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid ranking: " + e.Reason
}

// ValidateRanking checks that ranking is exactly a permutation of idealOrder:
// same cardinality, no duplicates, no foreign option IDs.
func ValidateRanking(ranking, idealOrder []int64) error {
	if len(ranking) != len(idealOrder) {
		return &ValidationError{Reason: fmt.Sprintf("expected %d options, got %d", len(idealOrder), len(ranking))}
	}

	valid := make(map[int64]bool, len(idealOrder))
	for _, id := range idealOrder {
		valid[id] = true
	}

	seen := make(map[int64]bool, len(ranking))
	for _, id := range ranking {
		if !valid[id] {
			return &ValidationError{Reason: fmt.Sprintf("option %d does not belong to this challenge", id)}
		}
		if seen[id] {
			return &ValidationError{Reason: fmt.Sprintf("option %d appears more than once", id)}
		}
		seen[id] = true
	}
	return nil
}

// Distance computes the Spearman footrule distance between a submitted
// ranking and the ideal order: the sum over options of the absolute
// difference between submitted and ideal positions.
//
// Caller must validate the ranking first; Distance assumes a permutation.
func Distance(ranking, idealOrder []int64) int {
	idealIndex := make(map[int64]int, len(idealOrder))
	for i, id := range idealOrder {
		idealIndex[id] = i
	}

	distance := 0
	for i, id := range ranking {
		d := i - idealIndex[id]
		if d < 0 {
			d = -d
		}
		distance += d
	}
	return distance
}

// MaxDistance returns the maximum possible footrule distance for n items,
// ⌊n²/2⌋. For the standard 4-option challenge this is 8.
func MaxDistance(n int) int {
	return n * n / 2
}

// Score converts a footrule distance into a 0..100 score.
// score = round(100 − distance/maxDistance × 100), clamped to [0,100].
func Score(distance, n int) int {
	max := MaxDistance(n)
	if max == 0 {
		return 100
	}
	s := int(math.Round(100 - float64(distance)/float64(max)*100))
	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return s
}

// GradeFor maps a score to its grade. Thresholds are the canonical table:
// 90+ great, 60+ good, below that risky.
func GradeFor(score int) models.Grade {
	switch {
	case score >= 90:
		return models.GradeGreat
	case score >= 60:
		return models.GradeGood
	default:
		return models.GradeRisky
	}
}
