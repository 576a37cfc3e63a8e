package gamification

import (
	"testing"

	"tco-prep-backend/internal/models"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points    int
		wantLevel int
		wantNext  int
	}{
		{0, 1, 100},
		{99, 1, 100},
		{100, 2, 250},
		{999, 4, 1000},
		{1000, 5, 2000},
		{120000, 15, 120000},
		{500000, 15, 120000},
	}
	for _, tt := range tests {
		got := LevelFor(tt.points)
		if got.Level != tt.wantLevel {
			t.Errorf("LevelFor(%d).Level = %d, want %d", tt.points, got.Level, tt.wantLevel)
		}
		if got.NextLevelPoints != tt.wantNext {
			t.Errorf("LevelFor(%d).NextLevelPoints = %d, want %d", tt.points, got.NextLevelPoints, tt.wantNext)
		}
		if got.Progress < 0 || got.Progress > 100 {
			t.Errorf("LevelFor(%d).Progress = %f, out of range", tt.points, got.Progress)
		}
	}
}

func TestReviewPoints(t *testing.T) {
	tests := []struct {
		name       string
		correct    bool
		difficulty string
		streakDays int
		retention  float64
		wantPoints int
	}{
		{"incorrect earns nothing", false, models.DifficultyAdvanced, 30, 95, 0},
		{"base correct", true, models.DifficultyBeginner, 0, 50, 10},
		{"unknown difficulty falls back", true, "", 0, 50, 10},
		{"intermediate", true, models.DifficultyIntermediate, 0, 50, 15},
		{"advanced", true, models.DifficultyAdvanced, 0, 50, 20},
		{"week streak", true, models.DifficultyBeginner, 7, 50, 13},
		{"month streak doubles", true, models.DifficultyBeginner, 30, 50, 20},
		{"mastered bonus", true, models.DifficultyBeginner, 0, 92, 15},
		{"all multipliers stack", true, models.DifficultyAdvanced, 30, 95, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReviewPoints(tt.correct, tt.difficulty, tt.streakDays, tt.retention)
			if got.Points != tt.wantPoints {
				t.Errorf("ReviewPoints() = %d points, want %d", got.Points, tt.wantPoints)
			}
		})
	}
}

func TestTotalPointsIncludesAchievementBonuses(t *testing.T) {
	// 10 passing attempts earn 250 base points plus the 10-session
	// practice achievement bonus.
	s := Stats{TotalAttempts: 10, PassedAttempts: 10}

	got := TotalPoints(s)
	want := 10*PointsAttemptPassed + 100
	if got != want {
		t.Errorf("TotalPoints = %d, want %d", got, want)
	}
}

func TestUnlockedThresholds(t *testing.T) {
	s := Stats{StreakDays: 7, PerfectAttempts: 1}

	ids := make(map[string]bool)
	for _, a := range Unlocked(s, 0) {
		ids[a.ID] = true
	}

	for _, want := range []string{"streak-3", "streak-7", "perfect-1"} {
		if !ids[want] {
			t.Errorf("expected %s unlocked", want)
		}
	}
	for _, not := range []string{"streak-14", "perfect-10", "reviews-10"} {
		if ids[not] {
			t.Errorf("did not expect %s unlocked", not)
		}
	}
}

func TestSummarizeConsistency(t *testing.T) {
	s := Stats{
		StreakDays:     3,
		TotalAttempts:  12,
		PassedAttempts: 8,
		CorrectReviews: 40,
		TotalReviews:   50,
	}

	sum := Summarize(s)

	if sum.Level.TotalPoints != TotalPoints(s) {
		t.Errorf("summary total %d disagrees with TotalPoints %d", sum.Level.TotalPoints, TotalPoints(s))
	}
	if len(sum.Achievements) == 0 {
		t.Fatal("expected streak-3, practice-10 and reviews-10 unlocked")
	}

	// Locked achievements must not also appear as progress-complete.
	for _, p := range sum.Progress {
		if p.Current >= p.Required {
			t.Errorf("achievement %s reported locked at %d/%d", p.AchievementID, p.Current, p.Required)
		}
		if p.Percentage < 0 || p.Percentage >= 100 {
			t.Errorf("achievement %s progress %f out of range", p.AchievementID, p.Percentage)
		}
	}
}
