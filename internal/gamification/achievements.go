package gamification

// Requirement kinds an achievement can be gated on.
const (
	ReqStreakDays       = "streak_days"
	ReqPerfectAttempts  = "perfect_attempts"
	ReqTotalReviews     = "total_reviews"
	ReqTotalPoints      = "total_points"
	ReqItemsMastered    = "items_mastered"
	ReqPracticeAttempts = "practice_attempts"
	ReqModulesCompleted = "modules_completed"
)

type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Requirement string `json:"requirement"`
	Threshold   int    `json:"threshold"`
	Points      int    `json:"points"`
	Rarity      string `json:"rarity"`
}

// Achievements is the full catalogue, ordered by category then threshold.
var Achievements = []Achievement{
	{ID: "streak-3", Name: "Getting Started", Description: "Study 3 days in a row", Category: "streak", Requirement: ReqStreakDays, Threshold: 3, Points: 25, Rarity: "common"},
	{ID: "streak-7", Name: "Week Warrior", Description: "Study 7 days in a row", Category: "streak", Requirement: ReqStreakDays, Threshold: 7, Points: 100, Rarity: "uncommon"},
	{ID: "streak-14", Name: "Two Week Titan", Description: "Study 14 days in a row", Category: "streak", Requirement: ReqStreakDays, Threshold: 14, Points: 250, Rarity: "rare"},
	{ID: "streak-30", Name: "Monthly Master", Description: "Study 30 days in a row", Category: "streak", Requirement: ReqStreakDays, Threshold: 30, Points: 500, Rarity: "epic"},
	{ID: "streak-100", Name: "Centurion", Description: "Study 100 days in a row", Category: "streak", Requirement: ReqStreakDays, Threshold: 100, Points: 2000, Rarity: "legendary"},

	{ID: "perfect-1", Name: "Flawless Victory", Description: "Finish a practice session with a perfect score", Category: "mastery", Requirement: ReqPerfectAttempts, Threshold: 1, Points: 50, Rarity: "common"},
	{ID: "perfect-10", Name: "Perfectionist", Description: "Finish 10 perfect practice sessions", Category: "mastery", Requirement: ReqPerfectAttempts, Threshold: 10, Points: 300, Rarity: "rare"},
	{ID: "mastered-10", Name: "Quick Learner", Description: "Master 10 flashcards", Category: "mastery", Requirement: ReqItemsMastered, Threshold: 10, Points: 200, Rarity: "uncommon"},
	{ID: "mastered-50", Name: "Expert", Description: "Master 50 flashcards", Category: "mastery", Requirement: ReqItemsMastered, Threshold: 50, Points: 750, Rarity: "epic"},

	{ID: "reviews-10", Name: "Dedicated Student", Description: "Complete 10 reviews", Category: "completion", Requirement: ReqTotalReviews, Threshold: 10, Points: 100, Rarity: "common"},
	{ID: "reviews-50", Name: "Committed Learner", Description: "Complete 50 reviews", Category: "completion", Requirement: ReqTotalReviews, Threshold: 50, Points: 400, Rarity: "uncommon"},
	{ID: "reviews-100", Name: "Review Champion", Description: "Complete 100 reviews", Category: "completion", Requirement: ReqTotalReviews, Threshold: 100, Points: 1000, Rarity: "rare"},

	{ID: "points-500", Name: "Rising Star", Description: "Earn 500 points", Category: "completion", Requirement: ReqTotalPoints, Threshold: 500, Points: 50, Rarity: "common"},
	{ID: "points-2500", Name: "Point Prodigy", Description: "Earn 2,500 points", Category: "completion", Requirement: ReqTotalPoints, Threshold: 2500, Points: 250, Rarity: "uncommon"},
	{ID: "points-10000", Name: "Score Sorcerer", Description: "Earn 10,000 points", Category: "completion", Requirement: ReqTotalPoints, Threshold: 10000, Points: 1000, Rarity: "rare"},

	{ID: "practice-10", Name: "Practice Makes Perfect", Description: "Complete 10 practice sessions", Category: "practice", Requirement: ReqPracticeAttempts, Threshold: 10, Points: 100, Rarity: "common"},
	{ID: "modules-all", Name: "Certified Ready", Description: "Complete every section of 5 modules", Category: "completion", Requirement: ReqModulesCompleted, Threshold: 5, Points: 500, Rarity: "epic"},
}

func requirementValue(s Stats, basePoints int, requirement string) int {
	switch requirement {
	case ReqStreakDays:
		return s.StreakDays
	case ReqPerfectAttempts:
		return s.PerfectAttempts
	case ReqTotalReviews:
		return s.TotalReviews
	case ReqTotalPoints:
		return basePoints
	case ReqItemsMastered:
		return s.ItemsMastered
	case ReqPracticeAttempts:
		return s.TotalAttempts
	case ReqModulesCompleted:
		return s.CompletedModules
	default:
		return 0
	}
}

// Unlocked returns every achievement the counters satisfy. Point-gated
// achievements check basePoints, the score before achievement bonuses, so
// unlocking stays a single deterministic pass.
func Unlocked(s Stats, basePoints int) []Achievement {
	var out []Achievement
	for _, a := range Achievements {
		if requirementValue(s, basePoints, a.Requirement) >= a.Threshold {
			out = append(out, a)
		}
	}
	return out
}

// Progress reports how far along each locked achievement is, in percent.
type Progress struct {
	AchievementID string  `json:"achievement_id"`
	Current       int     `json:"current"`
	Required      int     `json:"required"`
	Percentage    float64 `json:"percentage"`
}

func ProgressFor(s Stats, basePoints int) []Progress {
	var out []Progress
	for _, a := range Achievements {
		current := requirementValue(s, basePoints, a.Requirement)
		if current >= a.Threshold {
			continue
		}
		out = append(out, Progress{
			AchievementID: a.ID,
			Current:       current,
			Required:      a.Threshold,
			Percentage:    float64(current) / float64(a.Threshold) * 100,
		})
	}
	return out
}
