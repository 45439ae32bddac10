package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "moneymoves_user")
	password := getEnv("DB_PASSWORD", "moneymoves_password")
	dbname := getEnv("DB_NAME", "moneymoves")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS challenges (
		id         BIGSERIAL PRIMARY KEY,
		date_key   DATE UNIQUE NOT NULL,
		title      VARCHAR(255) NOT NULL,
		scenario   TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_challenges_date ON challenges(date_key);

	CREATE TABLE IF NOT EXISTS challenge_options (
		id           BIGSERIAL PRIMARY KEY,
		challenge_id BIGINT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
		label        VARCHAR(255) NOT NULL,
		description  TEXT,
		tier         VARCHAR(20) NOT NULL,
		ideal_rank   INT NOT NULL CHECK (ideal_rank >= 1),
		UNIQUE(challenge_id, ideal_rank)
	);

	CREATE INDEX IF NOT EXISTS idx_options_challenge ON challenge_options(challenge_id);

	CREATE TABLE IF NOT EXISTS attempts (
		id              BIGSERIAL PRIMARY KEY,
		challenge_id    BIGINT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
		user_id         BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		ranking         BIGINT[] NOT NULL,
		score           INT NOT NULL CHECK (score >= 0 AND score <= 100),
		grade           VARCHAR(10) NOT NULL,
		is_best_attempt BOOLEAN NOT NULL DEFAULT FALSE,
		submitted_at    TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_user_challenge ON attempts(user_id, challenge_id);
	CREATE INDEX IF NOT EXISTS idx_attempts_challenge_best_score ON attempts(challenge_id, score) WHERE is_best_attempt;

	CREATE TABLE IF NOT EXISTS user_stats (
		user_id             BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		current_streak      INT NOT NULL DEFAULT 0,
		longest_streak      INT NOT NULL DEFAULT 0,
		last_completed_date DATE,
		total_attempts      INT NOT NULL DEFAULT 0,
		score_sum           BIGINT NOT NULL DEFAULT 0,
		best_percentile     INT NOT NULL DEFAULT 0,
		created_at          TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at          TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS challenge_aggregates (
		challenge_id   BIGINT PRIMARY KEY REFERENCES challenges(id) ON DELETE CASCADE,
		total_attempts INT NOT NULL DEFAULT 0,
		score_sum      BIGINT NOT NULL DEFAULT 0,
		updated_at     TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS position_counts (
		challenge_id BIGINT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
		option_id    BIGINT NOT NULL REFERENCES challenge_options(id) ON DELETE CASCADE,
		position     INT NOT NULL CHECK (position >= 1),
		count        INT NOT NULL DEFAULT 0,
		PRIMARY KEY (challenge_id, option_id, position)
	);

	CREATE TABLE IF NOT EXISTS user_badges (
		id        BIGSERIAL PRIMARY KEY,
		user_id   BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		badge     VARCHAR(100) NOT NULL,
		earned_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		metadata  JSONB,
		UNIQUE(user_id, badge)
	);

	CREATE INDEX IF NOT EXISTS idx_badges_user ON user_badges(user_id);
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Repair duplicate best-attempt rows left by deployments that predate the
	// partial unique index: for each (user, challenge) keep the highest-scoring
	// best (ties to latest submission) and demote the rest.
	_, err = db.Exec(`
		UPDATE attempts SET is_best_attempt = FALSE
		WHERE is_best_attempt
		  AND id NOT IN (
		    SELECT DISTINCT ON (user_id, challenge_id) id
		    FROM attempts
		    WHERE is_best_attempt
		    ORDER BY user_id, challenge_id, score DESC, submitted_at DESC, id DESC
		  )`)
	if err != nil {
		return fmt.Errorf("repair duplicate best attempts: %w", err)
	}

	// The hard backstop: even if the application's locking discipline is
	// bypassed, two best rows per (user, challenge) cannot exist.
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_one_best
		ON attempts(user_id, challenge_id) WHERE is_best_attempt`)
	if err != nil {
		return fmt.Errorf("create best-attempt unique index: %w", err)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
