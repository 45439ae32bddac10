package attempts

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/moneymoves/backend/internal/challenges"
	"github.com/moneymoves/backend/internal/models"
	"github.com/moneymoves/backend/internal/scoring"
)

const (
	maxSubmitRetries = 3
	retryBaseDelay   = 25 * time.Millisecond
)

type Service struct {
	store      *Store
	challenges *challenges.Store
}

func NewService(store *Store, challengeStore *challenges.Store) *Service {
	return &Service{store: store, challenges: challengeStore}
}

// Submit runs the full pipeline for one submission: validate and score the
// ranking, then commit the attempt with best-attempt promotion, aggregate
// updates, streak advance, and badge awards in one transaction. Storage
// conflicts are retried with jittered backoff before giving up.
func (s *Service) Submit(ctx context.Context, userID, challengeID int64, ranking []int64) (*models.SubmitAttemptResponse, error) {
	challenge, err := s.challenges.GetByID(challengeID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}

	idealOrder, err := challenge.IdealOrder()
	if err != nil {
		return nil, fmt.Errorf("malformed challenge %d: %w", challengeID, err)
	}
	if err := scoring.ValidateRanking(ranking, idealOrder); err != nil {
		return nil, err
	}

	score := scoring.Score(scoring.Distance(ranking, idealOrder), len(idealOrder))
	params := submitParams{
		UserID:      userID,
		ChallengeID: challengeID,
		Ranking:     ranking,
		Score:       score,
		Grade:       scoring.GradeFor(score),
		Today:       time.Now().In(s.userLocation(userID)),
	}

	var result *submitResult
	for attempt := 0; attempt < maxSubmitRetries; attempt++ {
		result, err = s.store.SubmitAttempt(ctx, params)
		if err == nil {
			break
		}
		if !isTransient(err) {
			return nil, fmt.Errorf("submit attempt: %w", err)
		}
		log.Printf("[attempts] transient conflict for user %d challenge %d (try %d): %v",
			userID, challengeID, attempt+1, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	return &models.SubmitAttemptResponse{
		Attempt:    result.Attempt,
		StreakInfo: models.Streak{Current: result.Streak, Longest: result.Longest},
		NewBadges:  result.NewBadges,
	}, nil
}

// GetResults returns the user's counted attempt for a challenge alongside the
// community stats and the revealed ideal order.
func (s *Service) GetResults(userID, challengeID int64) (*models.ResultsResponse, error) {
	challenge, err := s.challenges.GetByID(challengeID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}

	attempt, err := s.store.BestAttempt(userID, challengeID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load best attempt: %w", err)
	}

	idealOrder, err := challenge.IdealOrder()
	if err != nil {
		return nil, fmt.Errorf("malformed challenge %d: %w", challengeID, err)
	}

	stats, err := s.store.GetStats(challenge, attempt)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	return &models.ResultsResponse{
		Attempt:    *attempt,
		Challenge:  *challenge,
		IdealOrder: idealOrder,
		Stats:      *stats,
	}, nil
}

func (s *Service) userLocation(userID int64) *time.Location {
	tz, err := s.challenges.UserTimezone(userID)
	if err != nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func backoff(attempt int) time.Duration {
	base := retryBaseDelay << attempt
	jitter := time.Duration(rand.Int63n(int64(retryBaseDelay)))
	return base + jitter
}
