package gamification

import "time"

// AdvanceStreak applies the daily-completion state machine for a user's first
// counted attempt on the calendar day `today` (already localized to the
// user's timezone):
//
//   - consecutive day  → streak + 1
//   - same day         → no change (defensively idempotent)
//   - gap or first run → streak reset to 1
//
// It returns the new streak, the new longest streak, and whether the day
// counted (false only for the same-day case).
func AdvanceStreak(current, longest int, lastCompleted *time.Time, today time.Time) (int, int, bool) {
	todayDate := dateOnly(today)

	if lastCompleted != nil {
		last := dateOnly(*lastCompleted)
		switch daysBetween(last, todayDate) {
		case 0:
			return current, longest, false
		case 1:
			current++
		default:
			current = 1
		}
	} else {
		current = 1
	}

	if current > longest {
		longest = current
	}
	return current, longest, true
}

// dateOnly collapses a timestamp to its calendar day. The zone is discarded
// on purpose: callers have already localized the time, and comparing days as
// UTC midnights keeps day arithmetic DST-proof.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
