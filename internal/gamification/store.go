package gamification

import (
	"database/sql"
	"fmt"

	"github.com/moneymoves/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetOrCreateStats(userID int64) (*models.UserStats, error) {
	_, err := s.db.Exec(
		`INSERT INTO user_stats (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user stats: %w", err)
	}

	var st models.UserStats
	err = s.db.QueryRow(
		`SELECT user_id, current_streak, longest_streak, last_completed_date,
		        total_attempts, score_sum, best_percentile, created_at, updated_at
		 FROM user_stats WHERE user_id = $1`,
		userID,
	).Scan(&st.UserID, &st.CurrentStreak, &st.LongestStreak, &st.LastCompletedDate,
		&st.TotalAttempts, &st.ScoreSum, &st.BestPercentile, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user stats: %w", err)
	}

	if st.TotalAttempts > 0 {
		st.AverageScore = float64(st.ScoreSum) / float64(st.TotalAttempts)
	}
	return &st, nil
}

func (s *Store) GetUserBadges(userID int64) ([]models.UserBadge, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, badge, earned_at, COALESCE(metadata::text, '')
		 FROM user_badges WHERE user_id = $1 ORDER BY earned_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get badges: %w", err)
	}
	defer rows.Close()

	var badges []models.UserBadge
	for rows.Next() {
		var b models.UserBadge
		if err := rows.Scan(&b.ID, &b.UserID, &b.Badge, &b.EarnedAt, &b.Metadata); err != nil {
			return nil, err
		}
		badges = append(badges, b)
	}
	if badges == nil {
		badges = []models.UserBadge{}
	}
	return badges, rows.Err()
}
