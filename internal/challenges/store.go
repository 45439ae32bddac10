package challenges

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

func (s *Store) GetByID(challengeID int64) (*models.Challenge, error) {
	var c models.Challenge
	err := s.db.QueryRow(
		`SELECT id, to_char(date_key, 'YYYY-MM-DD'), title, scenario, created_at
		 FROM challenges WHERE id = $1`,
		challengeID,
	).Scan(&c.ID, &c.DateKey, &c.Title, &c.Scenario, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := s.loadOptions(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetByDateKey(dateKey string) (*models.Challenge, error) {
	var c models.Challenge
	err := s.db.QueryRow(
		`SELECT id, to_char(date_key, 'YYYY-MM-DD'), title, scenario, created_at
		 FROM challenges WHERE date_key = $1`,
		dateKey,
	).Scan(&c.ID, &c.DateKey, &c.Title, &c.Scenario, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := s.loadOptions(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) loadOptions(c *models.Challenge) error {
	rows, err := s.db.Query(
		`SELECT id, challenge_id, label, COALESCE(description, ''), tier, ideal_rank
		 FROM challenge_options WHERE challenge_id = $1 ORDER BY id`,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.ID, &opt.ChallengeID, &opt.Label, &opt.Description, &opt.Tier, &opt.IdealRank); err != nil {
			return fmt.Errorf("scan option: %w", err)
		}
		c.Options = append(c.Options, opt)
	}
	return rows.Err()
}

func (s *Store) UserTimezone(userID int64) (string, error) {
	var tz string
	err := s.db.QueryRow(`SELECT timezone FROM users WHERE id = $1`, userID).Scan(&tz)
	if err != nil {
		return "", err
	}
	return tz, nil
}
