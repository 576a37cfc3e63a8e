package handlers

import (
	"testing"
	"time"
)

func TestComputeStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	day := func(offset int) string {
		return now.AddDate(0, 0, offset).Format("2006-01-02")
	}

	tests := []struct {
		name     string
		activity map[string]int
		want     int
	}{
		{
			name:     "no activity",
			activity: map[string]int{},
			want:     0,
		},
		{
			name:     "active today only",
			activity: map[string]int{day(0): 3},
			want:     1,
		},
		{
			name:     "three day run ending today",
			activity: map[string]int{day(0): 1, day(-1): 4, day(-2): 2},
			want:     3,
		},
		{
			name:     "inactive today keeps yesterday's run alive",
			activity: map[string]int{day(-1): 2, day(-2): 1},
			want:     2,
		},
		{
			name:     "gap two days ago breaks the run",
			activity: map[string]int{day(0): 1, day(-2): 5, day(-3): 5},
			want:     1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := computeStreak(tc.activity, now); got != tc.want {
				t.Fatalf("expected streak %d, got %d", tc.want, got)
			}
		})
	}
}
