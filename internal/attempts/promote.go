package attempts

import (
	"sort"
	"time"
)

// CurrentBest is the user's existing best-attempt row for a challenge, read
// under lock inside the submission transaction.
type CurrentBest struct {
	ID          int64
	Score       int
	Ranking     []int64
	SubmittedAt time.Time
}

// ShouldPromote decides whether a newly scored attempt becomes the best:
// a strictly higher score wins, no existing best wins, and an equal score
// goes to the more recent submission. Because this rule is a total order
// over (score, submitted_at), the surviving best is the same no matter how
// concurrent submissions interleave.
func ShouldPromote(newScore int, newSubmittedAt time.Time, best *CurrentBest) bool {
	if best == nil {
		return true
	}
	if newScore > best.Score {
		return true
	}
	return newScore == best.Score && newSubmittedAt.After(best.SubmittedAt)
}

// lockKey folds a (userID, challengeID) pair into the single bigint keyspace
// of pg_advisory_xact_lock, serializing concurrent submissions for the pair.
func lockKey(userID, challengeID int64) int64 {
	return userID<<32 | (challengeID & 0xFFFFFFFF)
}

// optionPosition pairs an option with its 1-based slot in a ranking.
type optionPosition struct {
	OptionID int64
	Position int
}

// rankingPositions lists a ranking's (option, position) pairs in ascending
// option ID order. Counter updates walk this order so two transactions on the
// same challenge always lock position_counts rows in the same sequence and
// cannot deadlock against each other.
func rankingPositions(ranking []int64) []optionPosition {
	pairs := make([]optionPosition, len(ranking))
	for i, optionID := range ranking {
		pairs[i] = optionPosition{OptionID: optionID, Position: i + 1}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].OptionID < pairs[j].OptionID })
	return pairs
}
