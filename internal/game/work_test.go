package game

import (
	mathrand "math/rand"
	"testing"
	"time"
)

func TestWorkRewardRandomRange(t *testing.T) {
	r := mathrand.New(mathrand.NewSource(42))
	tests := []struct {
		price    int64
		min, max int64
	}{
		{price: 100, min: 4, max: 6},
		{price: 300, min: 12, max: 18},
		{price: 1000, min: 40, max: 60},
	}
	for _, tc := range tests {
		for i := 0; i < 200; i++ {
			got := workReward(tc.price, 0.8+0.4*r.Float64())
			if got < tc.min || got > tc.max {
				t.Fatalf("workReward(%d) = %d, want within [%d, %d]", tc.price, got, tc.min, tc.max)
			}
		}
	}
}

func TestSummarizeWork(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rewards := []int64{5, 7, 12}
	// One finished, one still out, one exactly at the deadline (counts as
	// ready).
	deadlines := []time.Time{
		now.Add(-time.Minute),
		now.Add(30 * time.Minute),
		now,
	}

	st := summarizeWork(rewards, deadlines, now)
	if !st.Active {
		t.Fatalf("expected an active batch")
	}
	if st.Workers != 3 {
		t.Fatalf("workers = %d, want 3", st.Workers)
	}
	if st.Ready != 2 || st.Working != 1 {
		t.Fatalf("ready/working = %d/%d, want 2/1", st.Ready, st.Working)
	}
	if st.ExpectedReward != 24 {
		t.Fatalf("expected reward = %d, want 24", st.ExpectedReward)
	}
}

func TestSplitReadyCollectsOnce(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	batch := []assignment{
		{id: 1, reward: 5, endsAt: start.Add(time.Hour)},
		{id: 2, reward: 7, endsAt: start.Add(time.Hour)},
		{id: 3, reward: 12, endsAt: start.Add(time.Hour)},
	}

	// Before any deadline nothing is collectible.
	if ids, total := splitReady(batch, start); len(ids) != 0 || total != 0 {
		t.Fatalf("nothing should be ready at start, got ids=%v total=%d", ids, total)
	}

	// Past the deadline the whole batch pays out in one sweep.
	ids, total := splitReady(batch, start.Add(2*time.Hour))
	if len(ids) != 3 {
		t.Fatalf("all assignments should be ready, got %v", ids)
	}
	if total != 24 {
		t.Fatalf("total reward = %d, want 24", total)
	}

	// Collected assignments are marked complete and drop out of the next
	// selection, so a second immediate collect finds nothing.
	var remaining []assignment
	collected := make(map[int64]bool, len(ids))
	for _, id := range ids {
		collected[id] = true
	}
	for _, a := range batch {
		if !collected[a.id] {
			remaining = append(remaining, a)
		}
	}
	if ids, total := splitReady(remaining, start.Add(2*time.Hour)); len(ids) != 0 || total != 0 {
		t.Fatalf("second collect should find nothing, got ids=%v total=%d", ids, total)
	}
}

func TestSummarizeWorkEmpty(t *testing.T) {
	st := summarizeWork(nil, nil, time.Now())
	if st.Active || st.Workers != 0 || st.ExpectedReward != 0 {
		t.Fatalf("empty batch should be inactive: %+v", st)
	}
}
