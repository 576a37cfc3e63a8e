// Package gamification derives points, levels and achievements from a
// user's lifetime study counters. Everything here is pure: the dashboard
// recomputes the whole picture from repository stats on each read, so
// there is no separate points ledger to keep consistent.
package gamification

import (
	"math"

	"tco-prep-backend/internal/models"
)

// Base point values per rewarded event.
const (
	PointsReviewCorrect   = 10
	PointsPracticeCorrect = 5
	PointsAttemptPassed   = 25
	PointsPerfectAttempt  = 50
	PointsModuleComplete  = 100
)

// levelThresholds[i] is the total-point floor of level i+1.
var levelThresholds = []int{
	0, 100, 250, 500, 1000, 2000, 4000, 7500,
	12000, 20000, 30000, 45000, 65000, 90000, 120000,
}

var difficultyMultipliers = map[string]float64{
	models.DifficultyBeginner:     1.0,
	models.DifficultyIntermediate: 1.5,
	models.DifficultyAdvanced:     2.0,
}

// masteredRetention is the retention rate, in percent, above which an item
// counts as mastered and correct reviews earn the mastery bonus.
const masteredRetention = 90.0

// Stats are the lifetime counters the scoring model is derived from.
type Stats struct {
	StreakDays       int `json:"streak_days"`
	TotalAttempts    int `json:"total_attempts"`
	PassedAttempts   int `json:"passed_attempts"`
	PerfectAttempts  int `json:"perfect_attempts"`
	CorrectAnswers   int `json:"correct_answers"`
	TotalReviews     int `json:"total_reviews"`
	CorrectReviews   int `json:"correct_reviews"`
	ItemsMastered    int `json:"items_mastered"`
	CompletedModules int `json:"completed_modules"`
}

// Level describes where the user sits in the level progression.
type Level struct {
	Level           int     `json:"level"`
	TotalPoints     int     `json:"total_points"`
	CurrentFloor    int     `json:"current_level_points"`
	NextLevelPoints int     `json:"next_level_points"`
	Progress        float64 `json:"progress"`
}

// basePoints scores the lifetime counters before achievement bonuses.
func basePoints(s Stats) int {
	return s.CorrectReviews*PointsReviewCorrect +
		s.CorrectAnswers*PointsPracticeCorrect +
		s.PassedAttempts*PointsAttemptPassed +
		s.PerfectAttempts*PointsPerfectAttempt +
		s.CompletedModules*PointsModuleComplete
}

// TotalPoints scores the lifetime counters, including the bonus points of
// every achievement those counters unlock.
func TotalPoints(s Stats) int {
	points := basePoints(s)
	for _, a := range Unlocked(s, points) {
		points += a.Points
	}
	return points
}

// Summary is the full derived gamification picture for one user.
type Summary struct {
	Stats        Stats         `json:"stats"`
	Level        Level         `json:"level"`
	Achievements []Achievement `json:"achievements"`
	Progress     []Progress    `json:"achievement_progress"`
}

// Summarize derives the whole picture in one pass. Achievements unlock
// against pre-bonus points, the level against the bonus-inclusive total.
func Summarize(s Stats) Summary {
	base := basePoints(s)
	unlocked := Unlocked(s, base)

	total := base
	for _, a := range unlocked {
		total += a.Points
	}

	return Summary{
		Stats:        s,
		Level:        LevelFor(total),
		Achievements: unlocked,
		Progress:     ProgressFor(s, base),
	}
}

// LevelFor maps total points onto the level ladder. Past the last
// threshold the level stops growing and progress stays at 100.
func LevelFor(totalPoints int) Level {
	level := 1
	for i := len(levelThresholds) - 1; i >= 0; i-- {
		if totalPoints >= levelThresholds[i] {
			level = i + 1
			break
		}
	}

	floor := levelThresholds[level-1]
	next := levelThresholds[len(levelThresholds)-1]
	if level < len(levelThresholds) {
		next = levelThresholds[level]
	}

	progress := 100.0
	if next > floor {
		progress = math.Min(100, float64(totalPoints-floor)/float64(next-floor)*100)
	}

	return Level{
		Level:           level,
		TotalPoints:     totalPoints,
		CurrentFloor:    floor,
		NextLevelPoints: next,
		Progress:        progress,
	}
}

// PointsAward is the outcome of scoring a single review.
type PointsAward struct {
	Points     int     `json:"points"`
	Multiplier float64 `json:"multiplier"`
}

// ReviewPoints scores one review with difficulty, streak and mastery
// multipliers. Incorrect reviews earn nothing. An unknown or empty
// difficulty falls back to the beginner multiplier.
func ReviewPoints(correct bool, difficulty string, streakDays int, retention float64) PointsAward {
	if !correct {
		return PointsAward{}
	}

	multiplier := 1.0
	if m, ok := difficultyMultipliers[difficulty]; ok {
		multiplier *= m
	}
	multiplier *= streakMultiplier(streakDays)
	if retention >= masteredRetention {
		multiplier *= 1.5
	}

	return PointsAward{
		Points:     int(math.Round(PointsReviewCorrect * multiplier)),
		Multiplier: multiplier,
	}
}

func streakMultiplier(days int) float64 {
	switch {
	case days >= 30:
		return 2.0
	case days >= 14:
		return 1.5
	case days >= 7:
		return 1.25
	case days >= 3:
		return 1.1
	default:
		return 1.0
	}
}
