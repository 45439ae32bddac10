package models

import (
	"fmt"
	"time"
)

// OptionTier is the descriptive label shown next to an option. It plays no
// part in scoring — only ideal_rank does.
type OptionTier string

const (
	TierOptimal    OptionTier = "optimal"
	TierReasonable OptionTier = "reasonable"
	TierRisky      OptionTier = "risky"
)

type Challenge struct {
	ID        int64     `json:"id"`
	DateKey   string    `json:"date_key"`
	Title     string    `json:"title"`
	Scenario  string    `json:"scenario"`
	Options   []Option  `json:"options"`
	CreatedAt time.Time `json:"created_at"`
}

type Option struct {
	ID          int64      `json:"id"`
	ChallengeID int64      `json:"-"`
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	Tier        OptionTier `json:"tier"`
	// IdealRank is 1..N with no ties. Never serialized to clients — it would
	// give away the answer.
	IdealRank int `json:"-"`
}

// IdealOrder returns the challenge's option IDs sorted by ideal rank. The
// schema only checks ideal_rank >= 1, so ranks that do not form a 1..N
// permutation are reported as an error rather than trusted.
func (c *Challenge) IdealOrder() ([]int64, error) {
	ids := make([]int64, len(c.Options))
	for _, opt := range c.Options {
		if opt.IdealRank < 1 || opt.IdealRank > len(c.Options) {
			return nil, fmt.Errorf("option %d has ideal_rank %d outside 1..%d", opt.ID, opt.IdealRank, len(c.Options))
		}
		if ids[opt.IdealRank-1] != 0 {
			return nil, fmt.Errorf("options %d and %d share ideal_rank %d", ids[opt.IdealRank-1], opt.ID, opt.IdealRank)
		}
		ids[opt.IdealRank-1] = opt.ID
	}
	return ids, nil
}
