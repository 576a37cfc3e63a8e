package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tco-prep-backend/internal/models"
)

type ProgressRepo struct {
	pool *pgxpool.Pool
}

func NewProgressRepo(pool *pgxpool.Pool) *ProgressRepo {
	return &ProgressRepo{pool: pool}
}

const progressColumns = `id, user_id, module_id, section_id, section_title, status,
	time_spent_seconds, completed_at, created_at, updated_at`

// Upsert is keyed on (user_id, module_id, section_id); the row id only
// disambiguates inserts. Newest updated_at wins, and time spent accumulates
// rather than being replaced so offline and online sessions both count. The
// guard requires a strictly newer updated_at, which makes replaying the same
// queued write a no-op instead of counting its time twice.
func (r *ProgressRepo) Upsert(ctx context.Context, p *models.StudyProgress) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	if p.Status == models.StatusCompleted && p.CompletedAt == nil {
		now := time.Now()
		p.CompletedAt = &now
	}

	query := `INSERT INTO study_progress (` + progressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), $9)
		ON CONFLICT (user_id, module_id, section_id) DO UPDATE SET
			section_title = EXCLUDED.section_title,
			status = EXCLUDED.status,
			time_spent_seconds = study_progress.time_spent_seconds + EXCLUDED.time_spent_seconds,
			completed_at = COALESCE(study_progress.completed_at, EXCLUDED.completed_at),
			updated_at = EXCLUDED.updated_at
		WHERE study_progress.updated_at < EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.UserID, p.ModuleID, p.SectionID, p.SectionTitle, p.Status,
		p.TimeSpentSeconds, p.CompletedAt, p.UpdatedAt,
	)
	return err
}

func (r *ProgressRepo) Get(ctx context.Context, userID uuid.UUID, moduleID, sectionID string) (*models.StudyProgress, error) {
	p := &models.StudyProgress{}
	query := `SELECT ` + progressColumns + ` FROM study_progress
		WHERE user_id = $1 AND module_id = $2 AND section_id = $3`

	err := r.pool.QueryRow(ctx, query, userID, moduleID, sectionID).Scan(
		&p.ID, &p.UserID, &p.ModuleID, &p.SectionID, &p.SectionTitle, &p.Status,
		&p.TimeSpentSeconds, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProgressRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StudyProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM study_progress
		WHERE user_id = $1 ORDER BY module_id, section_id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProgress(rows)
}

// ListNeedsReview feeds the review center: every section the user flagged.
func (r *ProgressRepo) ListNeedsReview(ctx context.Context, userID uuid.UUID) ([]models.StudyProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM study_progress
		WHERE user_id = $1 AND status = $2 ORDER BY module_id, section_id`

	rows, err := r.pool.Query(ctx, query, userID, models.StatusNeedsReview)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProgress(rows)
}

type ModuleProgressSummary struct {
	ModuleID         string `json:"module_id"`
	TotalSections    int    `json:"total_sections"`
	Completed        int    `json:"completed"`
	InProgress       int    `json:"in_progress"`
	NeedsReview      int    `json:"needs_review"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

func (r *ProgressRepo) SummaryByModule(ctx context.Context, userID uuid.UUID) ([]ModuleProgressSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT module_id,
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'needs_review'),
			COALESCE(SUM(time_spent_seconds), 0)
		FROM study_progress
		WHERE user_id = $1
		GROUP BY module_id
		ORDER BY module_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]ModuleProgressSummary, 0)
	for rows.Next() {
		var s ModuleProgressSummary
		err := rows.Scan(&s.ModuleID, &s.TotalSections, &s.Completed, &s.InProgress, &s.NeedsReview, &s.TimeSpentSeconds)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *ProgressRepo) TotalStudySeconds(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(time_spent_seconds), 0) FROM study_progress
		WHERE user_id = $1 AND updated_at >= $2
	`, userID, since).Scan(&total)
	return total, err
}

func scanProgress(rows pgx.Rows) ([]models.StudyProgress, error) {
	var items []models.StudyProgress
	for rows.Next() {
		p := models.StudyProgress{}
		err := rows.Scan(
			&p.ID, &p.UserID, &p.ModuleID, &p.SectionID, &p.SectionTitle, &p.Status,
			&p.TimeSpentSeconds, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
