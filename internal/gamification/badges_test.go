package gamification

import "testing"

func keys(earned []EarnedBadge) map[string]EarnedBadge {
	m := make(map[string]EarnedBadge, len(earned))
	for _, e := range earned {
		m[e.Key] = e
	}
	return m
}

func TestCheckBadgesFirstAttempt(t *testing.T) {
	earned := keys(CheckBadges(BadgeSnapshot{Score: 50, TotalAttempts: 1}))
	if _, ok := earned["first_steps"]; !ok {
		t.Error("first attempt should earn first_steps")
	}
	if _, ok := earned["sharp_eye"]; ok {
		t.Error("score 50 should not earn sharp_eye")
	}
}

func TestCheckBadgesPerfectScore(t *testing.T) {
	earned := keys(CheckBadges(BadgeSnapshot{Score: 100, TotalAttempts: 5}))
	if _, ok := earned["perfect_day"]; !ok {
		t.Error("score 100 should earn perfect_day")
	}
	if _, ok := earned["sharp_eye"]; !ok {
		t.Error("score 100 should also earn sharp_eye")
	}

	earned = keys(CheckBadges(BadgeSnapshot{Score: 99, TotalAttempts: 5}))
	if _, ok := earned["perfect_day"]; ok {
		t.Error("score 99 should not earn perfect_day")
	}
}

func TestCheckBadgesStreaks(t *testing.T) {
	tests := []struct {
		streak int
		want   []string
		not    []string
	}{
		{2, nil, []string{"streak_3", "streak_7", "streak_30"}},
		{3, []string{"streak_3"}, []string{"streak_7"}},
		{7, []string{"streak_3", "streak_7"}, []string{"streak_30"}},
		{30, []string{"streak_3", "streak_7", "streak_30"}, nil},
	}

	for _, tt := range tests {
		earned := keys(CheckBadges(BadgeSnapshot{CurrentStreak: tt.streak, TotalAttempts: tt.streak}))
		for _, k := range tt.want {
			if _, ok := earned[k]; !ok {
				t.Errorf("streak %d: missing %s", tt.streak, k)
			}
		}
		for _, k := range tt.not {
			if _, ok := earned[k]; ok {
				t.Errorf("streak %d: unexpected %s", tt.streak, k)
			}
		}
	}
}

func TestCheckBadgesTopFive(t *testing.T) {
	earned := keys(CheckBadges(BadgeSnapshot{IsBest: true, Percentile: 95, TotalAttempts: 1}))
	if _, ok := earned["top_5"]; !ok {
		t.Error("percentile 95 on a best attempt should earn top_5")
	}

	// Non-best attempts never qualify, whatever the percentile says.
	earned = keys(CheckBadges(BadgeSnapshot{IsBest: false, Percentile: 99, TotalAttempts: 1}))
	if _, ok := earned["top_5"]; ok {
		t.Error("non-best attempt should not earn top_5")
	}
}

func TestCheckBadgesMetadata(t *testing.T) {
	earned := keys(CheckBadges(BadgeSnapshot{CurrentStreak: 7, TotalAttempts: 7}))
	e, ok := earned["streak_7"]
	if !ok {
		t.Fatal("expected streak_7")
	}
	if e.Metadata["streak"] != 7 {
		t.Errorf("streak_7 metadata = %v, want streak 7", e.Metadata)
	}
}

// Evaluating the same snapshot twice yields the same set — idempotence is the
// storage layer's job, the predicate must simply be deterministic.
func TestCheckBadgesDeterministic(t *testing.T) {
	snap := BadgeSnapshot{Score: 100, IsBest: true, Percentile: 97, CurrentStreak: 7, TotalAttempts: 30}
	first := CheckBadges(snap)
	second := CheckBadges(snap)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key != second[i].Key {
			t.Errorf("order differs at %d: %s vs %s", i, first[i].Key, second[i].Key)
		}
	}
}

func TestBadgeDefsComplete(t *testing.T) {
	snap := BadgeSnapshot{Score: 100, IsBest: true, Percentile: 100, CurrentStreak: 100, LongestStreak: 100, TotalAttempts: 100}
	for _, e := range CheckBadges(snap) {
		if _, ok := Badges[e.Key]; !ok {
			t.Errorf("CheckBadges emits %q with no definition", e.Key)
		}
	}
}
