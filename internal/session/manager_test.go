package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"tco-prep-backend/internal/models"
)

func makePool(n int) []models.Question {
	pool := make([]models.Question, 0, n)
	domains := models.ExamDomains
	for i := 0; i < n; i++ {
		pool = append(pool, models.Question{
			ID:     uuid.New(),
			Prompt: fmt.Sprintf("question %d", i),
			Choices: []models.Choice{
				{ID: "a", Text: "first"},
				{ID: "b", Text: "second"},
				{ID: "c", Text: "third"},
			},
			CorrectChoiceID: "a",
			Domain:          domains[i%len(domains)],
			Difficulty:      models.Difficulties[i%len(models.Difficulties)],
		})
	}
	return pool
}

func TestStartSelectsUniqueQuestionsFromPool(t *testing.T) {
	pool := makePool(10)
	poolIDs := make(map[uuid.UUID]bool, len(pool))
	for _, q := range pool {
		poolIDs[q.ID] = true
	}

	mgr, err := Start(uuid.New(), Config{QuestionCount: 5, PassingScore: 80}, pool, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	questions := mgr.Questions()
	if len(questions) != 5 {
		t.Fatalf("got %d questions, want 5", len(questions))
	}

	seen := make(map[uuid.UUID]bool)
	for _, q := range questions {
		if seen[q.ID] {
			t.Errorf("duplicate question %s in session", q.ID)
		}
		seen[q.ID] = true
		if !poolIDs[q.ID] {
			t.Errorf("question %s not in source pool", q.ID)
		}
	}
}

func TestStartRejectsBadPools(t *testing.T) {
	if _, err := Start(uuid.New(), Config{QuestionCount: 5}, nil, nil); !errors.Is(err, ErrEmptyPool) {
		t.Errorf("empty pool: got %v, want ErrEmptyPool", err)
	}
	if _, err := Start(uuid.New(), Config{QuestionCount: 5}, makePool(3), nil); !errors.Is(err, ErrNotEnoughQuestions) {
		t.Errorf("undersized pool: got %v, want ErrNotEnoughQuestions", err)
	}
}

func TestAnswerRejectsUnknownQuestion(t *testing.T) {
	mgr, err := Start(uuid.New(), Config{QuestionCount: 3, PassingScore: 80}, makePool(5), nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := mgr.Answer(uuid.New(), "a"); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("got %v, want ErrQuestionNotFound", err)
	}
}

func TestAnswerResubmissionRejected(t *testing.T) {
	mgr, err := Start(uuid.New(), Config{QuestionCount: 3, PassingScore: 80}, makePool(5), nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	q := mgr.Current()
	if _, err := mgr.Answer(q.ID, "a"); err != nil {
		t.Fatalf("first answer: %v", err)
	}

	if _, err := mgr.Answer(q.ID, "b"); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("second answer: got %v, want ErrAlreadyAnswered", err)
	}

	// The original answer must be untouched.
	recorded, ok := mgr.AnswerFor(q.ID)
	if !ok || recorded.ChoiceID != "a" || !recorded.Correct {
		t.Errorf("recorded answer changed after rejected resubmission: %+v", recorded)
	}
}

func TestAllCorrectScoresHundred(t *testing.T) {
	var got *Summary
	mgr, err := Start(uuid.New(), Config{QuestionCount: 4, PassingScore: 100}, makePool(6), func(s Summary) {
		got = &s
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for {
		q := mgr.Current()
		if _, err := mgr.Answer(q.ID, q.CorrectChoiceID); err != nil {
			t.Fatalf("Answer: %v", err)
		}
		_, summary, err := mgr.Advance()
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if summary != nil {
			break
		}
	}

	if got == nil {
		t.Fatal("completion callback never fired")
	}
	if got.Score != 100 {
		t.Errorf("score = %d, want 100", got.Score)
	}
	if !got.Passed {
		t.Error("passed = false, want true with passing score 100")
	}
	if mgr.State() != StateCompleted {
		t.Errorf("state = %q, want completed", mgr.State())
	}
}

func TestExampleScenarioFourOfFive(t *testing.T) {
	// questionCount 5, passingScore 80, 4 correct and 1 wrong -> 80, passed.
	callbacks := 0
	var got Summary
	mgr, err := Start(uuid.New(), Config{QuestionCount: 5, PassingScore: 80}, makePool(10), func(s Summary) {
		callbacks++
		got = s
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	answered := 0
	for {
		q := mgr.Current()
		choice := q.CorrectChoiceID
		if answered == 2 {
			choice = "b" // one deliberate miss
		}
		if _, err := mgr.Answer(q.ID, choice); err != nil {
			t.Fatalf("Answer: %v", err)
		}
		answered++
		_, summary, err := mgr.Advance()
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if summary != nil {
			break
		}
	}

	if callbacks != 1 {
		t.Fatalf("completion callback fired %d times, want exactly 1", callbacks)
	}
	if got.CorrectCount != 4 || got.TotalQuestions != 5 {
		t.Errorf("correct/total = %d/%d, want 4/5", got.CorrectCount, got.TotalQuestions)
	}
	if got.Score != 80 {
		t.Errorf("score = %d, want 80", got.Score)
	}
	if !got.Passed {
		t.Error("passed = false, want true (80 >= 80)")
	}
}

func TestAdvanceRequiresAnswer(t *testing.T) {
	mgr, err := Start(uuid.New(), Config{QuestionCount: 2, PassingScore: 80}, makePool(4), nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, _, err := mgr.Advance(); !errors.Is(err, ErrNotAnswered) {
		t.Errorf("got %v, want ErrNotAnswered", err)
	}
}

func TestBackKeepsAnswersAndStopsAtFirst(t *testing.T) {
	mgr, err := Start(uuid.New(), Config{QuestionCount: 3, PassingScore: 80}, makePool(5), nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := mgr.Back(); !errors.Is(err, ErrAtFirstQuestion) {
		t.Errorf("back on first question: got %v, want ErrAtFirstQuestion", err)
	}

	first := mgr.Current()
	if _, err := mgr.Answer(first.ID, first.CorrectChoiceID); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if _, _, err := mgr.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	prev, err := mgr.Back()
	if err != nil {
		t.Fatalf("Back: %v", err)
	}
	if prev.ID != first.ID {
		t.Errorf("back landed on %s, want %s", prev.ID, first.ID)
	}
	if _, ok := mgr.AnswerFor(first.ID); !ok {
		t.Error("back cleared a recorded answer")
	}
}

func TestAbandonSkipsCallbackAndFreesRegistry(t *testing.T) {
	registry := NewRegistry()
	owner := uuid.New()

	fired := false
	mgr, err := registry.Start(owner, Config{QuestionCount: 3, PassingScore: 80}, makePool(5), func(Summary) {
		fired = true
	})
	if err != nil {
		t.Fatalf("registry start: %v", err)
	}

	// A second session for the same owner must be refused while active.
	if _, err := registry.Start(owner, Config{QuestionCount: 3}, makePool(5), nil); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("got %v, want ErrSessionAlreadyActive", err)
	}

	if err := mgr.Abandon(); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	registry.Release(owner)

	if fired {
		t.Error("completion callback fired for abandoned session")
	}
	if mgr.State() != StateAbandoned {
		t.Errorf("state = %q, want abandoned", mgr.State())
	}

	// Owner can start again after release.
	if _, err := registry.Start(owner, Config{QuestionCount: 3}, makePool(5), nil); err != nil {
		t.Fatalf("restart after abandon: %v", err)
	}
}

func TestElapsedMonotonicallyNonDecreasing(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	mgr, err := startAt(uuid.New(), Config{QuestionCount: 3, PassingScore: 80}, makePool(5), nil, now)
	if err != nil {
		t.Fatalf("startAt: %v", err)
	}

	var last time.Duration
	for i := 0; i < 3; i++ {
		clock = clock.Add(time.Duration(i+1) * 10 * time.Second)
		q := mgr.Current()
		if _, err := mgr.Answer(q.ID, q.CorrectChoiceID); err != nil {
			t.Fatalf("Answer: %v", err)
		}
		if mgr.Elapsed() < last {
			t.Fatalf("elapsed decreased: %v -> %v", last, mgr.Elapsed())
		}
		last = mgr.Elapsed()
		if _, _, err := mgr.Advance(); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}

	if want := 60 * time.Second; mgr.Elapsed() != want {
		t.Errorf("elapsed = %v, want %v", mgr.Elapsed(), want)
	}
}
