package attempts

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/moneymoves/backend/internal/database"
	"github.com/moneymoves/backend/internal/models"
	"github.com/moneymoves/backend/internal/scoring"
)

// These tests run the full submission transaction against a real Postgres
// instance. They are skipped unless TEST_DATABASE_URL is set, e.g.:
//
//	TEST_DATABASE_URL="postgres://localhost/moneymoves_test?sslmode=disable" go test ./internal/attempts/

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	var id int64
	email := fmt.Sprintf("pipeline-%d@test.local", time.Now().UnixNano())
	err := db.QueryRow(
		`INSERT INTO users (email, name, timezone, password)
		 VALUES ($1, 'Pipeline Tester', 'UTC', 'not-a-real-hash') RETURNING id`,
		email,
	).Scan(&id)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() { db.Exec(`DELETE FROM users WHERE id = $1`, id) })
	return id
}

var challengeSeq atomic.Int64

// createTestChallenge inserts a 4-option challenge under a date key no real
// catalog will ever use and returns its ID plus option IDs in ideal order.
func createTestChallenge(t *testing.T, db *sql.DB) (int64, []int64) {
	t.Helper()
	days := int((time.Now().UnixNano() + challengeSeq.Add(1)) % 2_000_000)
	dateKey := time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days).Format("2006-01-02")

	var id int64
	err := db.QueryRow(
		`INSERT INTO challenges (date_key, title, scenario)
		 VALUES ($1, 'Pipeline Fixture', 'Rank the options.') RETURNING id`,
		dateKey,
	).Scan(&id)
	if err != nil {
		t.Fatalf("create test challenge: %v", err)
	}
	t.Cleanup(func() { db.Exec(`DELETE FROM challenges WHERE id = $1`, id) })

	tiers := []models.OptionTier{models.TierOptimal, models.TierReasonable, models.TierReasonable, models.TierRisky}
	ideal := make([]int64, 0, len(tiers))
	for rank := 1; rank <= len(tiers); rank++ {
		var optionID int64
		err := db.QueryRow(
			`INSERT INTO challenge_options (challenge_id, label, tier, ideal_rank)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			id, fmt.Sprintf("Option %d", rank), tiers[rank-1], rank,
		).Scan(&optionID)
		if err != nil {
			t.Fatalf("create test option: %v", err)
		}
		ideal = append(ideal, optionID)
	}
	return id, ideal
}

func scoredParams(userID, challengeID int64, ranking, ideal []int64, day time.Time) submitParams {
	score := scoring.Score(scoring.Distance(ranking, ideal), len(ideal))
	return submitParams{
		UserID:      userID,
		ChallengeID: challengeID,
		Ranking:     ranking,
		Score:       score,
		Grade:       scoring.GradeFor(score),
		Today:       day,
	}
}

func mustSubmit(t *testing.T, store *Store, p submitParams) *submitResult {
	t.Helper()
	res, err := store.SubmitAttempt(context.Background(), p)
	if err != nil {
		t.Fatalf("submit ranking %v: %v", p.Ranking, err)
	}
	return res
}

func challengeTotals(t *testing.T, db *sql.DB, challengeID int64) (totalAttempts int, scoreSum int64) {
	t.Helper()
	err := db.QueryRow(
		`SELECT total_attempts, score_sum FROM challenge_aggregates WHERE challenge_id = $1`,
		challengeID,
	).Scan(&totalAttempts, &scoreSum)
	if err != nil {
		t.Fatalf("read challenge aggregates: %v", err)
	}
	return totalAttempts, scoreSum
}

// checkCountedRanking asserts the position counters hold exactly one counted
// contribution and that it matches the given ranking.
func checkCountedRanking(t *testing.T, store *Store, challengeID int64, ranking []int64) {
	t.Helper()
	counts, err := store.positionCounts(challengeID)
	if err != nil {
		t.Fatalf("read position counts: %v", err)
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	if sum != len(ranking) {
		t.Errorf("position counts sum to %d, want %d (one counted attempt)", sum, len(ranking))
	}
	for i, optionID := range ranking {
		if got := counts[positionKey{OptionID: optionID, Position: i + 1}]; got != 1 {
			t.Errorf("count for option %d at position %d = %d, want 1", optionID, i+1, got)
		}
	}
}

// Racing submissions for one (user, challenge) pair must leave exactly one
// best row, and it must be the highest-scoring attempt, with the community
// counters reflecting only that attempt.
func TestSubmitAttemptConcurrentSingleBest(t *testing.T) {
	db := testDB(t)
	store := NewStore(db)
	userID := createTestUser(t, db)
	challengeID, ideal := createTestChallenge(t, db)
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	rankings := [][]int64{
		{ideal[3], ideal[2], ideal[1], ideal[0]},
		{ideal[1], ideal[0], ideal[2], ideal[3]},
		{ideal[0], ideal[1], ideal[3], ideal[2]},
		{ideal[0], ideal[1], ideal[2], ideal[3]},
		{ideal[2], ideal[3], ideal[0], ideal[1]},
		{ideal[1], ideal[2], ideal[3], ideal[0]},
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(rankings))
	for _, ranking := range rankings {
		wg.Add(1)
		go func(ranking []int64) {
			defer wg.Done()
			if _, err := store.SubmitAttempt(context.Background(), scoredParams(userID, challengeID, ranking, ideal, day)); err != nil {
				errs <- fmt.Errorf("ranking %v: %w", ranking, err)
			}
		}(ranking)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent submit: %v", err)
	}

	var bestCount, totalRows int
	err := db.QueryRow(
		`SELECT COUNT(*) FILTER (WHERE is_best_attempt), COUNT(*)
		 FROM attempts WHERE user_id = $1 AND challenge_id = $2`,
		userID, challengeID,
	).Scan(&bestCount, &totalRows)
	if err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if bestCount != 1 {
		t.Fatalf("best rows = %d, want exactly 1", bestCount)
	}
	if totalRows != len(rankings) {
		t.Errorf("attempt rows = %d, want %d (attempts are append-only)", totalRows, len(rankings))
	}

	var bestID int64
	var bestScore int
	var bestRanking pq.Int64Array
	err = db.QueryRow(
		`SELECT id, score, ranking FROM attempts
		 WHERE user_id = $1 AND challenge_id = $2 AND is_best_attempt`,
		userID, challengeID,
	).Scan(&bestID, &bestScore, &bestRanking)
	if err != nil {
		t.Fatalf("read best attempt: %v", err)
	}
	if bestScore != 100 {
		t.Errorf("best score = %d, want 100 (the perfect submission)", bestScore)
	}

	totalAttempts, scoreSum := challengeTotals(t, db, challengeID)
	if totalAttempts != 1 {
		t.Errorf("aggregate total_attempts = %d, want 1 (one counted attempt per user)", totalAttempts)
	}
	if scoreSum != int64(bestScore) {
		t.Errorf("aggregate score_sum = %d, want %d (only the best contributes)", scoreSum, bestScore)
	}
	checkCountedRanking(t, store, challengeID, bestRanking)

	// Same score resubmitted later wins the tie: the best flag moves to the
	// newest attempt.
	res := mustSubmit(t, store, scoredParams(userID, challengeID, rankings[3], ideal, day))
	if !res.Attempt.IsBestAttempt {
		t.Error("equal-score resubmission should take over as best (ties go to latest)")
	}
	err = db.QueryRow(
		`SELECT id FROM attempts WHERE user_id = $1 AND challenge_id = $2 AND is_best_attempt`,
		userID, challengeID,
	).Scan(&bestID)
	if err != nil {
		t.Fatalf("re-read best attempt: %v", err)
	}
	if bestID != res.Attempt.ID {
		t.Errorf("best attempt id = %d, want the newest tie %d", bestID, res.Attempt.ID)
	}
}

// A winning resubmission must retract the old best's contribution from
// score_sum and position_counts before adding its own, and a losing
// resubmission must leave everything untouched.
func TestSubmitAttemptResubmissionMovesContribution(t *testing.T) {
	db := testDB(t)
	store := NewStore(db)
	userID := createTestUser(t, db)
	challengeID, ideal := createTestChallenge(t, db)

	day1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	reversed := []int64{ideal[3], ideal[2], ideal[1], ideal[0]}
	nearIdeal := []int64{ideal[0], ideal[1], ideal[3], ideal[2]}

	res1 := mustSubmit(t, store, scoredParams(userID, challengeID, reversed, ideal, day1))
	if !res1.Attempt.IsBestAttempt {
		t.Fatal("first attempt must become best even at score 0")
	}
	if res1.Streak != 1 {
		t.Errorf("streak after first day = %d, want 1", res1.Streak)
	}
	totalAttempts, scoreSum := challengeTotals(t, db, challengeID)
	if totalAttempts != 1 || scoreSum != 0 {
		t.Errorf("aggregates after first attempt = (%d, %d), want (1, 0)", totalAttempts, scoreSum)
	}
	checkCountedRanking(t, store, challengeID, reversed)

	// Perfect resubmission the next day takes over as best.
	res2 := mustSubmit(t, store, scoredParams(userID, challengeID, ideal, ideal, day2))
	if !res2.Attempt.IsBestAttempt {
		t.Fatal("higher-scoring resubmission must be promoted")
	}
	if res2.Streak != 2 {
		t.Errorf("streak after consecutive day = %d, want 2", res2.Streak)
	}
	var oldStillBest bool
	if err := db.QueryRow(`SELECT is_best_attempt FROM attempts WHERE id = $1`, res1.Attempt.ID).Scan(&oldStillBest); err != nil {
		t.Fatalf("read demoted attempt: %v", err)
	}
	if oldStillBest {
		t.Error("previous best must be demoted when a resubmission wins")
	}
	totalAttempts, scoreSum = challengeTotals(t, db, challengeID)
	if totalAttempts != 1 {
		t.Errorf("total_attempts after resubmission = %d, want still 1 (same user)", totalAttempts)
	}
	if scoreSum != 100 {
		t.Errorf("score_sum after resubmission = %d, want 100 (old 0 retracted, new 100 added)", scoreSum)
	}
	checkCountedRanking(t, store, challengeID, ideal)

	// A worse attempt afterwards changes nothing in the community counters.
	res3 := mustSubmit(t, store, scoredParams(userID, challengeID, nearIdeal, ideal, day2))
	if res3.Attempt.IsBestAttempt {
		t.Error("lower-scoring resubmission must not replace the best")
	}
	if res3.Streak != 2 {
		t.Errorf("streak after same-day attempt = %d, want still 2", res3.Streak)
	}
	totalAttempts, scoreSum = challengeTotals(t, db, challengeID)
	if totalAttempts != 1 || scoreSum != 100 {
		t.Errorf("aggregates after losing attempt = (%d, %d), want (1, 100)", totalAttempts, scoreSum)
	}
	checkCountedRanking(t, store, challengeID, ideal)

	var statsAttempts int
	var statsScoreSum int64
	err := db.QueryRow(
		`SELECT total_attempts, score_sum FROM user_stats WHERE user_id = $1`, userID,
	).Scan(&statsAttempts, &statsScoreSum)
	if err != nil {
		t.Fatalf("read user stats: %v", err)
	}
	if statsAttempts != 3 {
		t.Errorf("user total_attempts = %d, want 3 (every submission counts there)", statsAttempts)
	}
	if statsScoreSum != 175 {
		t.Errorf("user score_sum = %d, want 175 (0 + 100 + 75)", statsScoreSum)
	}
}
