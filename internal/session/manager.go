package session

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"tco-prep-backend/internal/models"
)

// State is the lifecycle position of a practice session.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateAbandoned  State = "abandoned"
)

var (
	ErrNoActiveSession   = errors.New("no active practice session")
	ErrSessionCompleted  = errors.New("practice session already finished")
	ErrQuestionNotFound  = errors.New("question not found in current session")
	ErrAlreadyAnswered   = errors.New("question already answered in this session")
	ErrNotAnswered       = errors.New("current question has not been answered")
	ErrAtFirstQuestion   = errors.New("already on the first question")
	ErrEmptyPool         = errors.New("question pool is empty")
	ErrNotEnoughQuestions = errors.New("question pool smaller than requested count")
)

// Config fixes the shape of one practice session at start time.
type Config struct {
	ModuleID      *string
	Domains       []string
	QuestionCount int
	PassingScore  int // percentage, 0-100
}

// Answer is the immutable record of one answered question.
type Answer struct {
	ChoiceID  string
	Correct   bool
	TimeSpent time.Duration
	At        time.Time
}

// DomainStats is the per-domain (or per-difficulty) slice of a summary.
type DomainStats struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Summary is produced exactly once, when a session completes.
type Summary struct {
	SessionID           uuid.UUID              `json:"session_id"`
	Score               int                    `json:"score"`
	CorrectCount        int                    `json:"correct_count"`
	TotalQuestions      int                    `json:"total_questions"`
	TimeSpent           time.Duration          `json:"time_spent"`
	Passed              bool                   `json:"passed"`
	DomainBreakdown     map[string]DomainStats `json:"domain_breakdown"`
	DifficultyBreakdown map[string]DomainStats `json:"difficulty_breakdown"`
	ImprovementAreas    []string               `json:"improvement_areas"`
	StrongAreas         []string               `json:"strong_areas"`
}

// CompleteFunc receives the finalized summary. It fires exactly once per
// session, and never for abandoned sessions.
type CompleteFunc func(Summary)

// Manager owns the lifecycle of one question-answering session. It is an
// explicit handle: callers hold it for the session's lifetime, and nothing
// here is a process-wide singleton. It performs no I/O; all errors are
// local precondition violations.
//
// A Manager must not be shared across goroutines without external
// synchronization; the Registry provides that for the HTTP layer.
type Manager struct {
	id         uuid.UUID
	owner      uuid.UUID
	config     Config
	questions  []models.Question
	answers    map[uuid.UUID]Answer
	current    int
	startedAt  time.Time
	lastMoveAt time.Time
	elapsed    time.Duration
	state      State
	onComplete CompleteFunc
	now        func() time.Time
}

// Start selects and fixes a shuffled subset of the pool. The snapshot is
// immutable for the session's lifetime; shuffling happens exactly once here.
func Start(owner uuid.UUID, config Config, pool []models.Question, onComplete CompleteFunc) (*Manager, error) {
	return startAt(owner, config, pool, onComplete, time.Now)
}

func startAt(owner uuid.UUID, config Config, pool []models.Question, onComplete CompleteFunc, now func() time.Time) (*Manager, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	if config.QuestionCount <= 0 {
		config.QuestionCount = len(pool)
	}
	if config.QuestionCount > len(pool) {
		return nil, ErrNotEnoughQuestions
	}

	shuffled := make([]models.Question, len(pool))
	copy(shuffled, pool)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	start := now()
	return &Manager{
		id:         uuid.New(),
		owner:      owner,
		config:     config,
		questions:  shuffled[:config.QuestionCount],
		answers:    make(map[uuid.UUID]Answer, config.QuestionCount),
		current:    0,
		startedAt:  start,
		lastMoveAt: start,
		state:      StateInProgress,
		onComplete: onComplete,
		now:        now,
	}, nil
}

func (m *Manager) ID() uuid.UUID      { return m.id }
func (m *Manager) Owner() uuid.UUID   { return m.owner }
func (m *Manager) State() State       { return m.state }
func (m *Manager) Config() Config     { return m.config }
func (m *Manager) StartedAt() time.Time { return m.startedAt }

// Questions returns the fixed question snapshot.
func (m *Manager) Questions() []models.Question { return m.questions }

// Current returns the question at the cursor, or nil when the session is
// no longer in progress.
func (m *Manager) Current() *models.Question {
	if m.state != StateInProgress || m.current >= len(m.questions) {
		return nil
	}
	return &m.questions[m.current]
}

// AnswerFor returns the recorded answer for a question, if any.
func (m *Manager) AnswerFor(questionID uuid.UUID) (Answer, bool) {
	a, ok := m.answers[questionID]
	return a, ok
}

// Answer records the user's choice for a question in the fixed set.
// Answers are immutable: a second submission for the same question is
// rejected with ErrAlreadyAnswered.
func (m *Manager) Answer(questionID uuid.UUID, choiceID string) (bool, error) {
	if m.state != StateInProgress {
		return false, ErrNoActiveSession
	}

	var question *models.Question
	for i := range m.questions {
		if m.questions[i].ID == questionID {
			question = &m.questions[i]
			break
		}
	}
	if question == nil {
		return false, ErrQuestionNotFound
	}

	if _, dup := m.answers[questionID]; dup {
		return false, ErrAlreadyAnswered
	}

	at := m.now()
	spent := at.Sub(m.lastMoveAt)
	if spent < 0 {
		spent = 0
	}
	m.elapsed += spent
	m.lastMoveAt = at

	correct := choiceID == question.CorrectChoiceID
	m.answers[questionID] = Answer{
		ChoiceID:  choiceID,
		Correct:   correct,
		TimeSpent: spent,
		At:        at,
	}
	return correct, nil
}

// Advance moves to the next question. Called on the last question it
// finalizes the session, computes the summary, and fires the completion
// callback exactly once.
func (m *Manager) Advance() (*models.Question, *Summary, error) {
	if m.state != StateInProgress {
		return nil, nil, ErrNoActiveSession
	}
	if _, answered := m.answers[m.questions[m.current].ID]; !answered {
		return nil, nil, ErrNotAnswered
	}

	if m.current < len(m.questions)-1 {
		m.current++
		m.lastMoveAt = m.now()
		return m.Current(), nil, nil
	}

	summary := m.complete()
	return nil, &summary, nil
}

// Back moves to the previous question. Recorded answers are kept.
func (m *Manager) Back() (*models.Question, error) {
	if m.state != StateInProgress {
		return nil, ErrNoActiveSession
	}
	if m.current == 0 {
		return nil, ErrAtFirstQuestion
	}
	m.current--
	m.lastMoveAt = m.now()
	return m.Current(), nil
}

// Abandon terminates the session without a summary. The completion
// callback does not fire.
func (m *Manager) Abandon() error {
	if m.state != StateInProgress {
		return ErrNoActiveSession
	}
	m.state = StateAbandoned
	return nil
}

// Progress reports how many questions have been answered so far.
func (m *Manager) Progress() (answered, total, percentage int) {
	total = len(m.questions)
	answered = len(m.answers)
	if total > 0 {
		percentage = int(float64(answered) / float64(total) * 100)
	}
	return answered, total, percentage
}

// CorrectCount recomputes the running score from recorded answers.
func (m *Manager) CorrectCount() int {
	correct := 0
	for _, a := range m.answers {
		if a.Correct {
			correct++
		}
	}
	return correct
}

// Elapsed is the total time spent answering; monotonically non-decreasing.
func (m *Manager) Elapsed() time.Duration { return m.elapsed }

func (m *Manager) complete() Summary {
	m.state = StateCompleted
	summary := m.buildSummary()
	if m.onComplete != nil {
		cb := m.onComplete
		m.onComplete = nil
		cb(summary)
	}
	return summary
}

func (m *Manager) buildSummary() Summary {
	correct := m.CorrectCount()
	total := len(m.questions)
	score := 0
	if total > 0 {
		score = int(float64(correct)/float64(total)*100 + 0.5)
	}

	domains := make(map[string]DomainStats)
	difficulties := make(map[string]DomainStats)
	for i := range m.questions {
		q := &m.questions[i]
		answer, answered := m.answers[q.ID]

		d := domains[q.Domain]
		d.Total++
		if answered && answer.Correct {
			d.Correct++
		}
		domains[q.Domain] = d

		df := difficulties[q.Difficulty]
		df.Total++
		if answered && answer.Correct {
			df.Correct++
		}
		difficulties[q.Difficulty] = df
	}

	var improvement, strong []string
	for name, stats := range domains {
		stats.Percentage = percent(stats.Correct, stats.Total)
		domains[name] = stats
		if stats.Percentage < 70 {
			improvement = append(improvement, name)
		} else if stats.Percentage >= 85 {
			strong = append(strong, name)
		}
	}
	for name, stats := range difficulties {
		stats.Percentage = percent(stats.Correct, stats.Total)
		difficulties[name] = stats
	}

	return Summary{
		SessionID:           m.id,
		Score:               score,
		CorrectCount:        correct,
		TotalQuestions:      total,
		TimeSpent:           m.elapsed,
		Passed:              score >= m.config.PassingScore,
		DomainBreakdown:     domains,
		DifficultyBreakdown: difficulties,
		ImprovementAreas:    improvement,
		StrongAreas:         strong,
	}
}

func percent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(correct)/float64(total)*100 + 0.5)
}
