package review

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"tco-prep-backend/internal/models"
)

func flagged(moduleID, sectionID string) models.StudyProgress {
	return models.StudyProgress{
		UserID:    uuid.New(),
		ModuleID:  moduleID,
		SectionID: sectionID,
		Status:    models.StatusNeedsReview,
	}
}

func TestAggregateNoFlaggedSections(t *testing.T) {
	records := []models.StudyProgress{
		{ModuleID: "asking-questions", SectionID: "s1", Status: models.StatusCompleted},
		{ModuleID: "platform-foundation", SectionID: "s2", Status: models.StatusInProgress},
	}

	result := Aggregate(records)

	if !result.CaughtUp {
		t.Error("expected caught-up result for zero flagged sections")
	}
	if result.Modules == nil {
		t.Error("modules must be an empty slice, not nil")
	}
	if len(result.Modules) != 0 {
		t.Errorf("got %d module groups, want 0", len(result.Modules))
	}
	if result.Mixed != nil {
		t.Error("no mixed review expected when nothing is flagged")
	}
}

func TestAggregateGroupsByModule(t *testing.T) {
	records := []models.StudyProgress{
		flagged("asking-questions", "s2"),
		flagged("asking-questions", "s1"),
		flagged("taking-action-packages-actions", "s9"),
		{ModuleID: "asking-questions", SectionID: "s3", Status: models.StatusCompleted},
	}

	result := Aggregate(records)

	if result.CaughtUp {
		t.Fatal("caught up despite flagged sections")
	}
	if len(result.Modules) != 2 {
		t.Fatalf("got %d module groups, want 2", len(result.Modules))
	}

	first := result.Modules[0]
	if first.ModuleID != "asking-questions" || len(first.Sections) != 2 {
		t.Errorf("unexpected first group: %+v", first)
	}
	if first.Sections[0].SectionID != "s1" {
		t.Errorf("sections not sorted: %+v", first.Sections)
	}
	if first.Domain != models.DomainAsking {
		t.Errorf("domain = %q, want %q", first.Domain, models.DomainAsking)
	}
}

func TestAggregateMixedReviewRequiresTwoModules(t *testing.T) {
	oneModule := Aggregate([]models.StudyProgress{
		flagged("asking-questions", "s1"),
		flagged("asking-questions", "s2"),
	})
	if oneModule.Mixed != nil {
		t.Error("mixed review recommended with only one flagged module")
	}

	twoModules := Aggregate([]models.StudyProgress{
		flagged("asking-questions", "s1"),
		flagged("reporting-data-export", "s1"),
	})
	if twoModules.Mixed == nil {
		t.Fatal("mixed review missing with two flagged modules")
	}
	if twoModules.Mixed.QuestionCount != 2 {
		t.Errorf("question count = %d, want 2", twoModules.Mixed.QuestionCount)
	}
	if len(twoModules.Mixed.Domains) != 2 {
		t.Errorf("domains = %v, want two distinct domains", twoModules.Mixed.Domains)
	}
}

func TestAggregateMixedReviewCapped(t *testing.T) {
	var records []models.StudyProgress
	for i := 0; i < 30; i++ {
		moduleID := "asking-questions"
		if i%2 == 0 {
			moduleID = "platform-foundation"
		}
		records = append(records, flagged(moduleID, uuid.NewString()))
	}

	result := Aggregate(records)

	if result.Mixed == nil {
		t.Fatal("mixed review missing")
	}
	if result.Mixed.QuestionCount != MixedReviewMaxQuestions {
		t.Errorf("question count = %d, want cap %d", result.Mixed.QuestionCount, MixedReviewMaxQuestions)
	}
}

func TestPriorityOrdering(t *testing.T) {
	// Lower mastery must outrank higher mastery at the same overdue age.
	struggling := Priority(0.2, 3, 1.0)
	mastered := Priority(0.9, 3, 1.0)
	if struggling <= mastered {
		t.Errorf("struggling (%f) should outrank mastered (%f)", struggling, mastered)
	}

	// More overdue must outrank less overdue at equal mastery.
	older := Priority(0.5, 10, 1.0)
	newer := Priority(0.5, 1, 1.0)
	if older <= newer {
		t.Errorf("older (%f) should outrank newer (%f)", older, newer)
	}
}

func TestBuildQueueMergesAndSorts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dayAgo := now.AddDate(0, 0, -1)

	card := models.Flashcard{
		ID:             uuid.New(),
		SRSDue:         dayAgo,
		SRSInterval:    3,
		SRSEase:        2.5,
		TotalReviews:   10,
		CorrectReviews: 9,
	}
	qr := models.QuestionReview{
		ID:            uuid.New(),
		QuestionID:    uuid.New(),
		SRSDue:        dayAgo,
		SRSInterval:   3,
		SRSEase:       2.5,
		TotalAttempts: 10,
		// 2/10 correct: struggling, should land first even before weighting
		CorrectAttempts: 2,
	}
	question := models.Question{ID: qr.QuestionID, Prompt: "what is a sensor"}

	queue := BuildQueue(
		[]models.Flashcard{card},
		[]models.QuestionReview{qr},
		map[string]models.Question{qr.QuestionID.String(): question},
		now,
		0,
	)

	if len(queue) != 2 {
		t.Fatalf("queue length = %d, want 2", len(queue))
	}
	if queue[0].ItemType != "question" {
		t.Errorf("struggling question review should be first, got %q", queue[0].ItemType)
	}
	if queue[0].Question == nil || queue[0].Question.Prompt != "what is a sensor" {
		t.Error("question content not attached to queue item")
	}

	limited := BuildQueue([]models.Flashcard{card}, []models.QuestionReview{qr}, nil, now, 1)
	if len(limited) != 1 {
		t.Errorf("limit ignored: got %d items", len(limited))
	}
}
