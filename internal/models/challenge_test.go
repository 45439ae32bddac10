package models

import "testing"

func TestIdealOrderSortsByRank(t *testing.T) {
	c := &Challenge{Options: []Option{
		{ID: 31, IdealRank: 3},
		{ID: 11, IdealRank: 1},
		{ID: 41, IdealRank: 4},
		{ID: 21, IdealRank: 2},
	}}

	got, err := c.IdealOrder()
	if err != nil {
		t.Fatalf("IdealOrder returned error for a valid catalog row: %v", err)
	}
	want := []int64{11, 21, 31, 41}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %d, want %d", i+1, got[i], want[i])
		}
	}
}

// A catalog row with ideal_rank beyond N passes the schema's >= 1 check but
// must surface as an error, not an index panic mid-request.
func TestIdealOrderRejectsRankBeyondOptionCount(t *testing.T) {
	c := &Challenge{Options: []Option{
		{ID: 11, IdealRank: 1},
		{ID: 21, IdealRank: 2},
		{ID: 31, IdealRank: 3},
		{ID: 41, IdealRank: 5},
	}}

	if _, err := c.IdealOrder(); err == nil {
		t.Error("expected an error for ideal_rank 5 on a 4-option challenge")
	}
}

func TestIdealOrderRejectsDuplicateRank(t *testing.T) {
	c := &Challenge{Options: []Option{
		{ID: 11, IdealRank: 1},
		{ID: 21, IdealRank: 2},
		{ID: 31, IdealRank: 2},
		{ID: 41, IdealRank: 4},
	}}

	if _, err := c.IdealOrder(); err == nil {
		t.Error("expected an error for two options sharing ideal_rank 2")
	}
}
