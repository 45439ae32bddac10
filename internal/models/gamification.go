package models

import "time"

// ── User Stats ────────────────────────────────────────────

type UserStats struct {
	UserID            int64      `json:"user_id"`
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	LastCompletedDate *time.Time `json:"last_completed_date,omitempty"`
	TotalAttempts     int        `json:"total_attempts"`
	ScoreSum          int64      `json:"-"`
	AverageScore      float64    `json:"average_score"`
	BestPercentile    int        `json:"best_percentile"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type UserBadge struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	Badge    string    `json:"badge"`
	EarnedAt time.Time `json:"earned_at"`
	Metadata string    `json:"metadata,omitempty"`
}

type StatsResponse struct {
	Stats  UserStats   `json:"stats"`
	Badges []UserBadge `json:"badges"`
}
