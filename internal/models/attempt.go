package models

import "time"

type Grade string

const (
	GradeGreat Grade = "great"
	GradeGood  Grade = "good"
	GradeRisky Grade = "risky"
)

type Attempt struct {
	ID            int64     `json:"id"`
	ChallengeID   int64     `json:"challenge_id"`
	UserID        int64     `json:"user_id"`
	Ranking       []int64   `json:"ranking"`
	Score         int       `json:"score"`
	Grade         Grade     `json:"grade"`
	IsBestAttempt bool      `json:"is_best_attempt"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type SubmitAttemptRequest struct {
	Ranking []int64 `json:"ranking"`
}

type SubmitAttemptResponse struct {
	Attempt    Attempt  `json:"attempt"`
	StreakInfo Streak   `json:"streak"`
	NewBadges  []string `json:"new_badges"`
}

type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// ChallengeStats is the community-comparison payload derived from counted
// attempts (each user's best attempt) for one challenge.
type ChallengeStats struct {
	TotalPlayers         int                 `json:"total_players"`
	Percentile           int                 `json:"percentile"`
	ExactMatchPercent    int                 `json:"exact_match_percent"`
	TopPickPercent       int                 `json:"top_pick_percent"`
	PositionDistribution []PositionBreakdown `json:"position_distribution"`
}

// PositionBreakdown reports, for one option, how often the community placed
// it at each rank position 1..N. Every position is present even at count 0 —
// the comparison UI renders all N bars.
type PositionBreakdown struct {
	OptionID  int64           `json:"option_id"`
	Label     string          `json:"label"`
	Positions []PositionCount `json:"positions"`
}

type PositionCount struct {
	Position int `json:"position"`
	Count    int `json:"count"`
	Percent  int `json:"percent"`
}

type ResultsResponse struct {
	Attempt    Attempt        `json:"attempt"`
	Challenge  Challenge      `json:"challenge"`
	IdealOrder []int64        `json:"ideal_order"`
	Stats      ChallengeStats `json:"stats"`
}
