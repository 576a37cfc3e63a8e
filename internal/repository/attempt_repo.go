package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tco-prep-backend/internal/models"
)

type AttemptRepo struct {
	pool *pgxpool.Pool
}

func NewAttemptRepo(pool *pgxpool.Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

const attemptColumns = `id, user_id, module_id, domains, question_count, correct_count,
	score, passed, time_spent_seconds, summary_json, started_at, completed_at, abandoned`

func (r *AttemptRepo) Create(ctx context.Context, a *models.PracticeAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	summaryBytes := []byte(a.SummaryJSON)
	if summaryBytes == nil {
		summaryBytes = []byte("{}")
	}

	query := `INSERT INTO practice_attempts (` + attemptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.UserID, a.ModuleID, a.Domains, a.QuestionCount, a.CorrectCount,
		a.Score, a.Passed, a.TimeSpentSeconds, summaryBytes, a.StartedAt, a.CompletedAt, a.Abandoned,
	)
	return err
}

func (r *AttemptRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.PracticeAttempt, error) {
	a := &models.PracticeAttempt{}
	query := `SELECT ` + attemptColumns + ` FROM practice_attempts WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&a.ID, &a.UserID, &a.ModuleID, &a.Domains, &a.QuestionCount, &a.CorrectCount,
		&a.Score, &a.Passed, &a.TimeSpentSeconds, &a.SummaryJSON, &a.StartedAt, &a.CompletedAt, &a.Abandoned,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AttemptRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.PracticeAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM practice_attempts
		WHERE user_id = $1 ORDER BY completed_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttempts(rows)
}

type AttemptStats struct {
	TotalAttempts  int     `json:"total_attempts"`
	Passed         int     `json:"passed"`
	Perfect        int     `json:"perfect"`
	CorrectAnswers int     `json:"correct_answers"`
	AvgScore       float64 `json:"avg_score"`
	BestScore      int     `json:"best_score"`
	AvgSeconds     float64 `json:"avg_seconds"`
}

// GetStats excludes abandoned attempts so walking away from a session never
// drags the averages down.
func (r *AttemptRepo) GetStats(ctx context.Context, userID uuid.UUID) (*AttemptStats, error) {
	stats := &AttemptStats{}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE passed),
			COUNT(*) FILTER (WHERE score = 100),
			COALESCE(SUM(correct_count), 0),
			COALESCE(AVG(score), 0),
			COALESCE(MAX(score), 0),
			COALESCE(AVG(time_spent_seconds), 0)
		FROM practice_attempts
		WHERE user_id = $1 AND abandoned = FALSE
	`, userID).Scan(&stats.TotalAttempts, &stats.Passed, &stats.Perfect, &stats.CorrectAnswers,
		&stats.AvgScore, &stats.BestScore, &stats.AvgSeconds)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ScoresByDomain averages the per-domain percentages stored in each
// attempt's summary, used for the readiness breakdown.
func (r *AttemptRepo) ScoresByDomain(ctx context.Context, userID uuid.UUID) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT breakdown.key, AVG((breakdown.value->>'percentage')::float8)
		FROM practice_attempts,
			LATERAL jsonb_each(summary_json->'domain_breakdown') AS breakdown
		WHERE user_id = $1 AND abandoned = FALSE
		GROUP BY breakdown.key
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var domain string
		var avg float64
		if err := rows.Scan(&domain, &avg); err != nil {
			return nil, err
		}
		scores[domain] = avg
	}
	return scores, rows.Err()
}

func (r *AttemptRepo) CountByDay(ctx context.Context, userID uuid.UUID, days int) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT completed_at::date::text, COUNT(*)
		FROM practice_attempts
		WHERE user_id = $1 AND abandoned = FALSE
		  AND completed_at >= NOW() - ($2 || ' days')::interval
		GROUP BY completed_at::date
	`, userID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		counts[day] = count
	}
	return counts, rows.Err()
}

func scanAttempts(rows pgx.Rows) ([]models.PracticeAttempt, error) {
	var attempts []models.PracticeAttempt
	for rows.Next() {
		a := models.PracticeAttempt{}
		err := rows.Scan(
			&a.ID, &a.UserID, &a.ModuleID, &a.Domains, &a.QuestionCount, &a.CorrectCount,
			&a.Score, &a.Passed, &a.TimeSpentSeconds, &a.SummaryJSON, &a.StartedAt, &a.CompletedAt, &a.Abandoned,
		)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
