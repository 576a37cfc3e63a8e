package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tco-prep-backend/internal/models"
)

type QuestionRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionRepo(pool *pgxpool.Pool) *QuestionRepo {
	return &QuestionRepo{pool: pool}
}

func (r *QuestionRepo) Create(ctx context.Context, q *models.Question) error {
	q.ID = uuid.New()
	choicesBytes, err := json.Marshal(q.Choices)
	if err != nil {
		return err
	}

	query := `INSERT INTO questions (id, prompt, choices_json, correct_choice_id, explanation, domain, difficulty, module_id, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		q.ID, q.Prompt, choicesBytes, q.CorrectChoiceID, q.Explanation,
		q.Domain, q.Difficulty, q.ModuleID, q.Tags,
	).Scan(&q.CreatedAt)
}

func (r *QuestionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	q := &models.Question{}
	var choicesBytes []byte
	query := `SELECT id, prompt, choices_json, correct_choice_id, explanation, domain, difficulty, module_id, tags, created_at
		FROM questions WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&q.ID, &q.Prompt, &choicesBytes, &q.CorrectChoiceID, &q.Explanation,
		&q.Domain, &q.Difficulty, &q.ModuleID, &q.Tags, &q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(choicesBytes, &q.Choices); err != nil {
		return nil, err
	}
	return q, nil
}

// List returns questions filtered by any combination of domain, difficulty
// and module. Empty filter values match everything.
func (r *QuestionRepo) List(ctx context.Context, domain, difficulty, moduleID string, limit int) ([]models.Question, error) {
	query := `SELECT id, prompt, choices_json, correct_choice_id, explanation, domain, difficulty, module_id, tags, created_at
		FROM questions
		WHERE ($1 = '' OR domain = $1)
		  AND ($2 = '' OR difficulty = $2)
		  AND ($3 = '' OR module_id = $3)
		ORDER BY created_at DESC
		LIMIT $4`

	rows, err := r.pool.Query(ctx, query, domain, difficulty, moduleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// RandomPool draws a random sample of questions across the given domains,
// used to seed practice sessions. An empty domain list means all domains.
func (r *QuestionRepo) RandomPool(ctx context.Context, domains []string, difficulty string, limit int) ([]models.Question, error) {
	query := `SELECT id, prompt, choices_json, correct_choice_id, explanation, domain, difficulty, module_id, tags, created_at
		FROM questions
		WHERE (cardinality($1::text[]) = 0 OR domain = ANY($1))
		  AND ($2 = '' OR difficulty = $2)
		ORDER BY random()
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domains, difficulty, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// GetByIDs loads a specific question set, preserving no particular order.
func (r *QuestionRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Question, error) {
	query := `SELECT id, prompt, choices_json, correct_choice_id, explanation, domain, difficulty, module_id, tags, created_at
		FROM questions WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func (r *QuestionRepo) CountByDomain(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, "SELECT domain, COUNT(*) FROM questions GROUP BY domain")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var domain string
		var count int
		if err := rows.Scan(&domain, &count); err != nil {
			return nil, err
		}
		counts[domain] = count
	}
	return counts, rows.Err()
}

func (r *QuestionRepo) UpdateExplanation(ctx context.Context, id uuid.UUID, explanation string) error {
	_, err := r.pool.Exec(ctx, "UPDATE questions SET explanation = $1 WHERE id = $2", explanation, id)
	return err
}

func (r *QuestionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM questions WHERE id = $1", id)
	return err
}

func scanQuestions(rows pgx.Rows) ([]models.Question, error) {
	var questions []models.Question
	for rows.Next() {
		q := models.Question{}
		var choicesBytes []byte
		err := rows.Scan(
			&q.ID, &q.Prompt, &choicesBytes, &q.CorrectChoiceID, &q.Explanation,
			&q.Domain, &q.Difficulty, &q.ModuleID, &q.Tags, &q.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(choicesBytes, &q.Choices); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
