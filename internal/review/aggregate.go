package review

import (
	"math"
	"sort"
	"time"

	"tco-prep-backend/internal/models"
)

// MixedReviewMaxQuestions bounds the size of a mixed-review session.
const MixedReviewMaxQuestions = 25

// SectionRef identifies one flagged section inside a module.
type SectionRef struct {
	SectionID    string `json:"section_id"`
	SectionTitle string `json:"section_title"`
}

// ModuleReview groups the needs-review sections of one module.
type ModuleReview struct {
	ModuleID string       `json:"module_id"`
	Domain   string       `json:"domain"`
	Sections []SectionRef `json:"sections"`
}

// MixedReview recommends one practice session spanning every flagged module.
// Present only when at least two distinct modules are flagged.
type MixedReview struct {
	Domains       []string `json:"domains"`
	QuestionCount int      `json:"question_count"`
}

// Result is never nil: zero flagged sections yields CaughtUp=true.
type Result struct {
	CaughtUp bool           `json:"caught_up"`
	Modules  []ModuleReview `json:"modules"`
	Mixed    *MixedReview   `json:"mixed_review,omitempty"`
}

// ModuleDomains maps study module slugs to their exam domain, used to
// parameterize mixed-review practice sessions.
var ModuleDomains = map[string]string{
	"platform-foundation":            models.DomainFundamentals,
	"asking-questions":               models.DomainAsking,
	"refining-questions-targeting":   models.DomainRefining,
	"taking-action-packages-actions": models.DomainTakingAction,
	"navigation-basic-modules":       models.DomainNavigation,
	"reporting-data-export":          models.DomainReporting,
}

// Aggregate groups a user's needs-review progress records by module and, when
// two or more modules are flagged, derives a mixed-review recommendation.
// Pure aggregation over already-loaded rows; no I/O.
func Aggregate(records []models.StudyProgress) Result {
	byModule := make(map[string][]SectionRef)
	totalFlagged := 0
	for _, rec := range records {
		if rec.Status != models.StatusNeedsReview {
			continue
		}
		if rec.ModuleID == "" || rec.SectionID == "" {
			continue
		}
		byModule[rec.ModuleID] = append(byModule[rec.ModuleID], SectionRef{
			SectionID:    rec.SectionID,
			SectionTitle: rec.SectionTitle,
		})
		totalFlagged++
	}

	if totalFlagged == 0 {
		return Result{CaughtUp: true, Modules: []ModuleReview{}}
	}

	modules := make([]ModuleReview, 0, len(byModule))
	for moduleID, sections := range byModule {
		sort.Slice(sections, func(i, j int) bool { return sections[i].SectionID < sections[j].SectionID })
		modules = append(modules, ModuleReview{
			ModuleID: moduleID,
			Domain:   ModuleDomains[moduleID],
			Sections: sections,
		})
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].ModuleID < modules[j].ModuleID })

	result := Result{Modules: modules}

	if len(modules) >= 2 {
		domainSet := make(map[string]bool)
		var domains []string
		for _, m := range modules {
			if m.Domain == "" || domainSet[m.Domain] {
				continue
			}
			domainSet[m.Domain] = true
			domains = append(domains, m.Domain)
		}
		count := totalFlagged
		if count > MixedReviewMaxQuestions {
			count = MixedReviewMaxQuestions
		}
		result.Mixed = &MixedReview{Domains: domains, QuestionCount: count}
	}

	return result
}

// QueueItem is one due entry of the unified review queue, covering both
// flashcards and question reviews.
type QueueItem struct {
	ItemType      string    `json:"item_type"` // "flashcard" | "question"
	ItemID        string    `json:"item_id"`
	Due           time.Time `json:"due"`
	IntervalDays  int       `json:"interval_days"`
	Ease          float64   `json:"ease"`
	Mastery       float64   `json:"mastery"`
	PriorityScore float64   `json:"priority_score"`

	Flashcard      *models.Flashcard      `json:"flashcard,omitempty"`
	QuestionReview *models.QuestionReview `json:"question_review,omitempty"`
	Question       *models.Question       `json:"question,omitempty"`
}

// questionWeight biases the queue toward exam-relevant question reviews.
const questionWeight = 1.2

// Priority scores an item for queue ordering: low mastery, more overdue and
// higher importance all push it up. Overdue days contribute logarithmically.
func Priority(mastery, daysOverdue, importanceWeight float64) float64 {
	if daysOverdue < 1 {
		daysOverdue = 1
	}
	return (1.0 - mastery) * (math.Log10(daysOverdue+1) + 1) * importanceWeight * 100
}

// BuildQueue merges due flashcards and question reviews into one
// priority-ordered queue, truncated to limit.
func BuildQueue(cards []models.Flashcard, reviews []models.QuestionReview, questions map[string]models.Question, now time.Time, limit int) []QueueItem {
	items := make([]QueueItem, 0, len(cards)+len(reviews))

	for i := range cards {
		c := cards[i]
		mastery := 0.0
		if c.TotalReviews > 0 {
			mastery = float64(c.CorrectReviews) / float64(c.TotalReviews)
		}
		overdue := now.Sub(c.SRSDue).Hours() / 24
		items = append(items, QueueItem{
			ItemType:      "flashcard",
			ItemID:        c.ID.String(),
			Due:           c.SRSDue,
			IntervalDays:  c.SRSInterval,
			Ease:          c.SRSEase,
			Mastery:       mastery,
			PriorityScore: Priority(mastery, overdue, 1.0),
			Flashcard:     &c,
		})
	}

	for i := range reviews {
		qr := reviews[i]
		mastery := qr.MasteryLevel()
		overdue := now.Sub(qr.SRSDue).Hours() / 24
		item := QueueItem{
			ItemType:       "question",
			ItemID:         qr.ID.String(),
			Due:            qr.SRSDue,
			IntervalDays:   qr.SRSInterval,
			Ease:           qr.SRSEase,
			Mastery:        mastery,
			PriorityScore:  Priority(mastery, overdue, questionWeight),
			QuestionReview: &qr,
		}
		if q, ok := questions[qr.QuestionID.String()]; ok {
			item.Question = &q
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].PriorityScore > items[j].PriorityScore })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
