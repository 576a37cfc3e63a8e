package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"google.golang.org/api/option"

	"tco-prep-backend/internal/models"
	"tco-prep-backend/internal/repository"
)

// TutorService wraps Gemini for explanation generation, question drafting
// and the study chat. All calls go through a concurrency token bucket.
type TutorService struct {
	client       *genai.Client
	model        *genai.GenerativeModel
	questionRepo *repository.QuestionRepo
	noteRepo     *repository.NoteRepo
	jobRepo      *repository.JobRepo
	redis        *redis.Client
	rateChan     chan struct{}
}

func NewTutorService(
	apiKey string,
	concurrentReqs int,
	questionRepo *repository.QuestionRepo,
	noteRepo *repository.NoteRepo,
	jobRepo *repository.JobRepo,
	redisClient *redis.Client,
) (*TutorService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &TutorService{
		client:       client,
		model:        model,
		questionRepo: questionRepo,
		noteRepo:     noteRepo,
		jobRepo:      jobRepo,
		redis:        redisClient,
		rateChan:     rateChan,
	}, nil
}

func (s *TutorService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *TutorService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *TutorService) releaseRate() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (s *TutorService) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}

// GenerateExplanation produces a rationale for a practice question: why the
// correct choice is right and each distractor is wrong. The result is saved
// on the question and cached in Redis for a day.
func (s *TutorService) GenerateExplanation(ctx context.Context, job *models.Job) error {
	if err := s.acquireRate(ctx); err != nil {
		return err
	}
	defer s.releaseRate()

	question, err := s.questionRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to load question for explanation: %w", err)
	}

	cacheKey := "explanation:" + question.ID.String()
	if cached, cerr := s.redis.Get(ctx, cacheKey).Result(); cerr == nil && cached != "" {
		return s.questionRepo.UpdateExplanation(ctx, question.ID, cached)
	}

	prompt := buildExplanationPrompt(question)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return fmt.Errorf("Gemini API error: %w", err)
	}

	explanation := strings.TrimSpace(extractText(resp))
	if explanation == "" {
		return fmt.Errorf("Gemini returned empty explanation")
	}

	if err := s.questionRepo.UpdateExplanation(ctx, question.ID, explanation); err != nil {
		return err
	}

	s.redis.Set(ctx, cacheKey, explanation, 24*time.Hour)

	s.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "job_completed",
		Payload: models.CompletedEvent{
			JobID: job.ID, ResultID: question.ID, ResultType: "explanation",
		},
	})
	return nil
}

const tutorChatTTL = 2 * time.Hour
const tutorChatMaxTurns = 20

type chatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Chat answers a study question with recent conversation context. History
// lives in Redis per user with a short TTL.
func (s *TutorService) Chat(ctx context.Context, userID uuid.UUID, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", &ValidationError{Fields: map[string]string{"message": "Message is required"}}
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	historyKey := "tutor_chat:" + userID.String()
	rawTurns, _ := s.redis.LRange(ctx, historyKey, 0, tutorChatMaxTurns-1).Result()

	var b strings.Builder
	b.WriteString("You are a patient tutor helping a student prepare for the Tanium Certified Operator exam. ")
	b.WriteString("Answer questions about Tanium fundamentals, sensors, questions, packages, actions, Trends and Connect. ")
	b.WriteString("Be concise and concrete. If the student asks something unrelated to the exam, gently steer them back.\n\n")

	// Stored newest-first; replay oldest-first.
	for i := len(rawTurns) - 1; i >= 0; i-- {
		var turn chatTurn
		if json.Unmarshal([]byte(rawTurns[i]), &turn) != nil {
			continue
		}
		b.WriteString(strings.ToUpper(turn.Role[:1]) + turn.Role[1:] + ": " + turn.Text + "\n")
	}
	b.WriteString("Student: " + message + "\nTutor:")

	resp, err := s.model.GenerateContent(ctx, genai.Text(b.String()))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	reply := strings.TrimSpace(extractText(resp))
	if reply == "" {
		return "", fmt.Errorf("Gemini returned empty reply")
	}

	userTurn, _ := json.Marshal(chatTurn{Role: "student", Text: message})
	tutorTurn, _ := json.Marshal(chatTurn{Role: "tutor", Text: reply})
	pipe := s.redis.Pipeline()
	pipe.LPush(ctx, historyKey, userTurn, tutorTurn)
	pipe.LTrim(ctx, historyKey, 0, tutorChatMaxTurns-1)
	pipe.Expire(ctx, historyKey, tutorChatTTL)
	pipe.Exec(ctx)

	return reply, nil
}

// ClearChat drops the stored conversation.
func (s *TutorService) ClearChat(ctx context.Context, userID uuid.UUID) error {
	return s.redis.Del(ctx, "tutor_chat:"+userID.String()).Err()
}

// DraftQuestions turns study material (an imported note or video transcript)
// into multiple-choice questions for the bank.
func (s *TutorService) DraftQuestions(ctx context.Context, content, domain, difficulty string, count int) ([]models.Question, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildQuestionPrompt(content, domain, difficulty, count)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	rawText := stripFences(extractText(resp))

	type questionJSON struct {
		Prompt      string   `json:"prompt"`
		Choices     []string `json:"choices"`
		CorrectIdx  int      `json:"correct_index"`
		Explanation string   `json:"explanation"`
	}

	var drafts []questionJSON
	if err := json.Unmarshal([]byte(rawText), &drafts); err != nil {
		start := strings.Index(rawText, "[")
		end := strings.LastIndex(rawText, "]")
		if start >= 0 && end > start {
			json.Unmarshal([]byte(rawText[start:end+1]), &drafts)
		}
	}

	choiceIDs := []string{"a", "b", "c", "d"}
	var questions []models.Question
	for _, d := range drafts {
		if d.Prompt == "" || len(d.Choices) != 4 {
			continue
		}
		if d.CorrectIdx < 0 || d.CorrectIdx > 3 {
			d.CorrectIdx = 0
		}
		choices := make([]models.Choice, 4)
		for i, text := range d.Choices {
			choices[i] = models.Choice{ID: choiceIDs[i], Text: text}
		}
		explanation := d.Explanation
		questions = append(questions, models.Question{
			Prompt:          d.Prompt,
			Choices:         choices,
			CorrectChoiceID: choiceIDs[d.CorrectIdx],
			Explanation:     &explanation,
			Domain:          domain,
			Difficulty:      difficulty,
		})
	}

	if len(questions) == 0 {
		log.Println("WARNING: Gemini produced no usable question drafts")
	}
	return questions, nil
}

// TranscribeAudio sends raw audio to Gemini and returns the spoken text.
// Used as a fallback when a video has no captions.
func (s *TutorService) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	format := strings.TrimPrefix(mimeType, "audio/")
	if idx := strings.Index(format, ";"); idx > 0 {
		format = format[:idx]
	}

	resp, err := s.model.GenerateContent(ctx,
		genai.Text("Transcribe this audio recording verbatim. Return only the spoken text with no commentary."),
		genai.Blob{MIMEType: "audio/" + format, Data: audio},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini transcription error: %w", err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("transcription produced no text")
	}
	return text, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func buildExplanationPrompt(q *models.Question) string {
	var b strings.Builder

	b.WriteString("You are an expert on the Tanium platform writing rationales for certification practice questions.\n\n")
	b.WriteString("Explain in 2-4 sentences why the correct answer is right, then briefly why each other choice is wrong. Plain text only, no markdown.\n\n")
	b.WriteString("Question: " + q.Prompt + "\n")
	for _, c := range q.Choices {
		marker := " "
		if c.ID == q.CorrectChoiceID {
			marker = "*"
		}
		b.WriteString(fmt.Sprintf("%s %s) %s\n", marker, c.ID, c.Text))
	}
	b.WriteString("\nThe choice marked * is correct.\n")

	return b.String()
}

func buildQuestionPrompt(content, domain, difficulty string, count int) string {
	var b strings.Builder

	b.WriteString("You are an expert assessment writer for the Tanium Certified Operator exam. Generate multiple-choice questions from the study material below.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Generate exactly %d questions for the %q exam domain.\n", count, domain))
	b.WriteString(fmt.Sprintf("Difficulty: %s\n", difficulty))

	switch difficulty {
	case "beginner":
		b.WriteString("Beginner = direct recall from the material.\n")
	case "intermediate":
		b.WriteString("Intermediate = application of concepts to operator workflows.\n")
	case "advanced":
		b.WriteString("Advanced = analysis or inference beyond what is explicitly stated.\n")
	}

	b.WriteString(`
JSON schema per question:
{"prompt": "string", "choices": ["string", "string", "string", "string"], "correct_index": int, "explanation": "string"}

Exactly 4 choices per question. Distractors must be plausible operator mistakes, not jokes.
`)

	b.WriteString("\n---MATERIAL---\n")
	b.WriteString(content)
	b.WriteString("\n---END---\n")

	return b.String()
}
