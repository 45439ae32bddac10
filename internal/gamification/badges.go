package gamification

// BadgeDef defines a single badge.
type BadgeDef struct {
	Name        string
	Description string
	Rarity      string
}

// Badges maps badge keys to their definitions.
var Badges = map[string]BadgeDef{
	"first_steps":  {Name: "First Steps", Description: "Play your first challenge", Rarity: "common"},
	"sharp_eye":    {Name: "Sharp Eye", Description: "Score 90 or higher", Rarity: "common"},
	"perfect_day":  {Name: "Perfect Day", Description: "Nail the exact ideal order", Rarity: "rare"},
	"streak_3":     {Name: "On a Roll", Description: "3-day streak", Rarity: "common"},
	"streak_7":     {Name: "Week Warrior", Description: "7-day streak", Rarity: "rare"},
	"streak_30":    {Name: "Money Month", Description: "30-day streak", Rarity: "epic"},
	"top_5":        {Name: "Top 5%", Description: "Land in the top 5% of a challenge", Rarity: "epic"},
	"dedicated_30": {Name: "Dedicated", Description: "Submit 30 attempts", Rarity: "rare"},
}

// BadgeSnapshot is the refreshed user/aggregate state a badge predicate runs
// against, taken after the attempt, streak, and aggregate updates settle.
type BadgeSnapshot struct {
	Score         int
	IsBest        bool
	Percentile    int
	CurrentStreak int
	LongestStreak int
	TotalAttempts int
}

// EarnedBadge is a badge whose predicate evaluated true, with the metadata
// frozen at award time.
type EarnedBadge struct {
	Key      string
	Metadata map[string]interface{}
}

// CheckBadges returns every badge the snapshot qualifies for, in a stable
// order. The caller relies on the (user_id, badge) uniqueness constraint to
// make re-awarding a no-op, so already-earned badges may appear here.
func CheckBadges(snap BadgeSnapshot) []EarnedBadge {
	var earned []EarnedBadge

	if snap.TotalAttempts >= 1 {
		earned = append(earned, EarnedBadge{Key: "first_steps", Metadata: nil})
	}

	if snap.Score >= 90 {
		earned = append(earned, EarnedBadge{Key: "sharp_eye", Metadata: map[string]interface{}{"score": snap.Score}})
	}
	if snap.Score == 100 {
		earned = append(earned, EarnedBadge{Key: "perfect_day", Metadata: map[string]interface{}{"score": snap.Score}})
	}

	if snap.CurrentStreak >= 3 {
		earned = append(earned, EarnedBadge{Key: "streak_3", Metadata: map[string]interface{}{"streak": snap.CurrentStreak}})
	}
	if snap.CurrentStreak >= 7 {
		earned = append(earned, EarnedBadge{Key: "streak_7", Metadata: map[string]interface{}{"streak": snap.CurrentStreak}})
	}
	if snap.CurrentStreak >= 30 {
		earned = append(earned, EarnedBadge{Key: "streak_30", Metadata: map[string]interface{}{"streak": snap.CurrentStreak}})
	}

	if snap.IsBest && snap.Percentile >= 95 {
		earned = append(earned, EarnedBadge{Key: "top_5", Metadata: map[string]interface{}{"percentile": snap.Percentile}})
	}

	if snap.TotalAttempts >= 30 {
		earned = append(earned, EarnedBadge{Key: "dedicated_30", Metadata: map[string]interface{}{"total_attempts": snap.TotalAttempts}})
	}

	return earned
}
