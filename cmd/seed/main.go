// Command seed inserts a sample challenge for today so a fresh database has
// something to play against. Existing challenges are left untouched.
package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/moneymoves/backend/internal/database"
	"github.com/moneymoves/backend/internal/models"
)

type seedOption struct {
	label       string
	description string
	tier        models.OptionTier
	idealRank   int
}

func main() {
	godotenv.Load()

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	dateKey := time.Now().UTC().Format("2006-01-02")

	var challengeID int64
	err = db.QueryRow(
		`INSERT INTO challenges (date_key, title, scenario)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (date_key) DO NOTHING
		 RETURNING id`,
		dateKey,
		"The $1,000 Windfall",
		"Your tax refund just landed: $1,000. You carry a credit card balance at 24% APR. Rank these moves from best to worst.",
	).Scan(&challengeID)
	if err == sql.ErrNoRows {
		log.Printf("Challenge for %s already exists, nothing to do", dateKey)
		return
	}
	if err != nil {
		log.Fatalf("Failed to insert challenge: %v", err)
	}

	options := []seedOption{
		{"Pay down the credit card", "A guaranteed 24% return. Nothing else comes close.", models.TierOptimal, 1},
		{"Top up the emergency fund", "Solid move, but the card interest outruns savings yield.", models.TierReasonable, 2},
		{"Buy a trending meme stock", "Could go up. Mostly goes down.", models.TierRisky, 3},
		{"Finance a new gaming rig", "Spending a windfall while carrying 24% debt.", models.TierRisky, 4},
	}
	for _, opt := range options {
		_, err := db.Exec(
			`INSERT INTO challenge_options (challenge_id, label, description, tier, ideal_rank)
			 VALUES ($1, $2, $3, $4, $5)`,
			challengeID, opt.label, opt.description, opt.tier, opt.idealRank,
		)
		if err != nil {
			log.Fatalf("Failed to insert option %q: %v", opt.label, err)
		}
	}

	log.Printf("Seeded challenge %d for %s with %d options", challengeID, dateKey, len(options))
}
