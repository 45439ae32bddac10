package attempts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/moneymoves/backend/internal/gamification"
	"github.com/moneymoves/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// submitParams carries one scored submission into the pipeline transaction.
type submitParams struct {
	UserID      int64
	ChallengeID int64
	Ranking     []int64
	Score       int
	Grade       models.Grade
	// Today is the submission's calendar day in the user's timezone; it keys
	// the streak state machine.
	Today time.Time
}

type submitResult struct {
	Attempt   models.Attempt
	Streak    int
	Longest   int
	NewBadges []string
}

// SubmitAttempt runs steps 2–5 of the pipeline in a single transaction:
// best-attempt promotion, aggregate counter adjustment, streak advance, and
// badge awards. Either all of it commits or none of it does, so a concurrent
// stats read never observes a partially applied submission.
func (s *Store) SubmitAttempt(ctx context.Context, p submitParams) (*submitResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Serialize concurrent submissions for this (user, challenge) pair.
	// The partial unique index on attempts remains the backstop if this lock
	// is ever bypassed.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey(p.UserID, p.ChallengeID)); err != nil {
		return nil, fmt.Errorf("advisory lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		p.UserID,
	); err != nil {
		return nil, fmt.Errorf("ensure user stats: %w", err)
	}

	// Attempt rows are append-only; only the best flag ever changes later.
	var attempt models.Attempt
	attempt.ChallengeID = p.ChallengeID
	attempt.UserID = p.UserID
	attempt.Ranking = p.Ranking
	attempt.Score = p.Score
	attempt.Grade = p.Grade
	err = tx.QueryRowContext(ctx,
		`INSERT INTO attempts (challenge_id, user_id, ranking, score, grade, is_best_attempt)
		 VALUES ($1, $2, $3, $4, $5, FALSE)
		 RETURNING id, submitted_at`,
		p.ChallengeID, p.UserID, pq.Array(p.Ranking), p.Score, p.Grade,
	).Scan(&attempt.ID, &attempt.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}

	best, err := currentBest(ctx, tx, p.UserID, p.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("read current best: %w", err)
	}

	promoted := ShouldPromote(p.Score, attempt.SubmittedAt, best)
	if promoted {
		if err := promoteAttempt(ctx, tx, &attempt, best); err != nil {
			return nil, err
		}
		attempt.IsBestAttempt = true
	}

	streak, longest, err := advanceUserStats(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	percentile := 0
	if promoted {
		percentile, err = countedPercentile(ctx, tx, p.ChallengeID, p.Score)
		if err != nil {
			return nil, fmt.Errorf("compute percentile: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE user_stats SET best_percentile = GREATEST(best_percentile, $2), updated_at = NOW()
			 WHERE user_id = $1`,
			p.UserID, percentile,
		); err != nil {
			return nil, fmt.Errorf("update best percentile: %w", err)
		}
	}

	var totalAttempts int
	if err := tx.QueryRowContext(ctx,
		`SELECT total_attempts FROM user_stats WHERE user_id = $1`, p.UserID,
	).Scan(&totalAttempts); err != nil {
		return nil, fmt.Errorf("read total attempts: %w", err)
	}

	newBadges, err := awardBadges(ctx, tx, p.UserID, gamification.BadgeSnapshot{
		Score:         p.Score,
		IsBest:        promoted,
		Percentile:    percentile,
		CurrentStreak: streak,
		LongestStreak: longest,
		TotalAttempts: totalAttempts,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &submitResult{Attempt: attempt, Streak: streak, Longest: longest, NewBadges: newBadges}, nil
}

func currentBest(ctx context.Context, tx *sql.Tx, userID, challengeID int64) (*CurrentBest, error) {
	var best CurrentBest
	var ranking pq.Int64Array
	err := tx.QueryRowContext(ctx,
		`SELECT id, score, ranking, submitted_at FROM attempts
		 WHERE user_id = $1 AND challenge_id = $2 AND is_best_attempt
		 FOR UPDATE`,
		userID, challengeID,
	).Scan(&best.ID, &best.Score, &ranking, &best.SubmittedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	best.Ranking = ranking
	return &best, nil
}

// promoteAttempt flips the best flag to the new attempt and moves the user's counted
// contribution in the community aggregates from the old best to the new one.
// Counter changes are atomic increments, never read-modify-write, since many
// users hit the same challenge rows concurrently.
func promoteAttempt(ctx context.Context, tx *sql.Tx, attempt *models.Attempt, old *CurrentBest) error {
	if old != nil {
		// Demote first so the partial unique index never sees two best rows.
		if _, err := tx.ExecContext(ctx,
			`UPDATE attempts SET is_best_attempt = FALSE WHERE id = $1`, old.ID,
		); err != nil {
			return fmt.Errorf("demote previous best: %w", err)
		}
		for _, pc := range rankingPositions(old.Ranking) {
			if _, err := tx.ExecContext(ctx,
				`UPDATE position_counts SET count = count - 1
				 WHERE challenge_id = $1 AND option_id = $2 AND position = $3`,
				attempt.ChallengeID, pc.OptionID, pc.Position,
			); err != nil {
				return fmt.Errorf("decrement position count: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE challenge_aggregates SET score_sum = score_sum - $2, updated_at = NOW()
			 WHERE challenge_id = $1`,
			attempt.ChallengeID, old.Score,
		); err != nil {
			return fmt.Errorf("retract previous score: %w", err)
		}
	} else {
		// First counted attempt for this user on this challenge.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO challenge_aggregates (challenge_id, total_attempts, score_sum)
			 VALUES ($1, 1, 0)
			 ON CONFLICT (challenge_id) DO UPDATE
			 SET total_attempts = challenge_aggregates.total_attempts + 1, updated_at = NOW()`,
			attempt.ChallengeID,
		); err != nil {
			return fmt.Errorf("count new player: %w", err)
		}
	}

	for _, pc := range rankingPositions(attempt.Ranking) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO position_counts (challenge_id, option_id, position, count)
			 VALUES ($1, $2, $3, 1)
			 ON CONFLICT (challenge_id, option_id, position) DO UPDATE
			 SET count = position_counts.count + 1`,
			attempt.ChallengeID, pc.OptionID, pc.Position,
		); err != nil {
			return fmt.Errorf("increment position count: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE challenge_aggregates SET score_sum = score_sum + $2, updated_at = NOW()
		 WHERE challenge_id = $1`,
		attempt.ChallengeID, attempt.Score,
	); err != nil {
		return fmt.Errorf("add new score: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE attempts SET is_best_attempt = TRUE WHERE id = $1`, attempt.ID,
	); err != nil {
		return fmt.Errorf("promote new best: %w", err)
	}
	return nil
}

// advanceUserStats bumps the user's attempt totals and, on the first counted
// attempt of the day, advances the streak. The row lock serializes same-user
// submissions against different challenges, which the per-pair advisory lock
// does not cover.
func advanceUserStats(ctx context.Context, tx *sql.Tx, p submitParams) (int, int, error) {
	var current, longest int
	var lastCompleted *time.Time
	err := tx.QueryRowContext(ctx,
		`SELECT current_streak, longest_streak, last_completed_date
		 FROM user_stats WHERE user_id = $1 FOR UPDATE`,
		p.UserID,
	).Scan(&current, &longest, &lastCompleted)
	if err != nil {
		return 0, 0, fmt.Errorf("lock user stats: %w", err)
	}

	streak, newLongest, advanced := gamification.AdvanceStreak(current, longest, lastCompleted, p.Today)
	if advanced {
		_, err = tx.ExecContext(ctx,
			`UPDATE user_stats SET
			    current_streak = $2, longest_streak = $3, last_completed_date = $4,
			    total_attempts = total_attempts + 1, score_sum = score_sum + $5,
			    updated_at = NOW()
			 WHERE user_id = $1`,
			p.UserID, streak, newLongest, p.Today.Format("2006-01-02"), p.Score,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE user_stats SET
			    total_attempts = total_attempts + 1, score_sum = score_sum + $2,
			    updated_at = NOW()
			 WHERE user_id = $1`,
			p.UserID, p.Score,
		)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("update user stats: %w", err)
	}
	return streak, newLongest, nil
}

// countedPercentile computes the share of counted attempts scoring at or
// below the given score. Exact counting, not sampling: a fixed user's
// percentile can only move when relative standing genuinely changes.
func countedPercentile(ctx context.Context, tx *sql.Tx, challengeID int64, score int) (int, error) {
	var le, total int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE score <= $2), COUNT(*)
		 FROM attempts WHERE challenge_id = $1 AND is_best_attempt`,
		challengeID, score,
	).Scan(&le, &total)
	if err != nil {
		return 0, err
	}
	return percent(le, total), nil
}

func awardBadges(ctx context.Context, tx *sql.Tx, userID int64, snap gamification.BadgeSnapshot) ([]string, error) {
	newBadges := []string{}
	for _, earned := range gamification.CheckBadges(snap) {
		var meta *string
		if earned.Metadata != nil {
			if b, err := json.Marshal(earned.Metadata); err == nil {
				s := string(b)
				meta = &s
			}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO user_badges (user_id, badge, metadata) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, badge) DO NOTHING`,
			userID, earned.Key, meta,
		)
		if err != nil {
			return nil, fmt.Errorf("award badge %s: %w", earned.Key, err)
		}
		if rows, _ := res.RowsAffected(); rows > 0 {
			newBadges = append(newBadges, earned.Key)
		}
	}
	return newBadges, nil
}

// ── Reads ───────────────────────────────────────────────

// BestAttempt returns the user's counted attempt for a challenge.
func (s *Store) BestAttempt(userID, challengeID int64) (*models.Attempt, error) {
	var a models.Attempt
	var ranking pq.Int64Array
	err := s.db.QueryRow(
		`SELECT id, challenge_id, user_id, ranking, score, grade, is_best_attempt, submitted_at
		 FROM attempts WHERE user_id = $1 AND challenge_id = $2 AND is_best_attempt`,
		userID, challengeID,
	).Scan(&a.ID, &a.ChallengeID, &a.UserID, &ranking, &a.Score, &a.Grade, &a.IsBestAttempt, &a.SubmittedAt)
	if err != nil {
		return nil, err
	}
	a.Ranking = ranking
	return &a, nil
}

// GetStats derives the community comparison for one user's counted attempt.
func (s *Store) GetStats(challenge *models.Challenge, attempt *models.Attempt) (*models.ChallengeStats, error) {
	var total, scoreLE, exact, topPick int
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE score <= $2),
		        COUNT(*) FILTER (WHERE ranking = $3),
		        COUNT(*) FILTER (WHERE ranking[1] = $4)
		 FROM attempts WHERE challenge_id = $1 AND is_best_attempt`,
		challenge.ID, attempt.Score, pq.Array(attempt.Ranking), attempt.Ranking[0],
	).Scan(&total, &scoreLE, &exact, &topPick)
	if err != nil {
		return nil, fmt.Errorf("aggregate counted attempts: %w", err)
	}

	counts, err := s.positionCounts(challenge.ID)
	if err != nil {
		return nil, err
	}

	return &models.ChallengeStats{
		TotalPlayers:         total,
		Percentile:           percent(scoreLE, total),
		ExactMatchPercent:    percent(exact, total),
		TopPickPercent:       percent(topPick, total),
		PositionDistribution: buildDistribution(challenge.Options, counts, total),
	}, nil
}

type positionKey struct {
	OptionID int64
	Position int
}

func (s *Store) positionCounts(challengeID int64) (map[positionKey]int, error) {
	rows, err := s.db.Query(
		`SELECT option_id, position, count FROM position_counts WHERE challenge_id = $1`,
		challengeID,
	)
	if err != nil {
		return nil, fmt.Errorf("position counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[positionKey]int)
	for rows.Next() {
		var k positionKey
		var c int
		if err := rows.Scan(&k.OptionID, &k.Position, &c); err != nil {
			return nil, err
		}
		counts[k] = c
	}
	return counts, rows.Err()
}
