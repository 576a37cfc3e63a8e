package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tco-prep-backend/internal/models"
)

type FlashcardRepo struct {
	pool *pgxpool.Pool
}

func NewFlashcardRepo(pool *pgxpool.Pool) *FlashcardRepo {
	return &FlashcardRepo{pool: pool}
}

const flashcardColumns = `id, user_id, front_text, back_text, hint, module_id, section_id, tags,
	srs_due, srs_interval, srs_ease, srs_reps, srs_lapses,
	total_reviews, correct_reviews, last_reviewed_at, created_at, updated_at`

// Upsert writes a card with last-write-wins semantics: an existing row is
// only overwritten when the incoming copy is at least as new. Offline sync
// can replay writes in any order without clobbering later edits.
func (r *FlashcardRepo) Upsert(ctx context.Context, c *models.Flashcard) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}

	query := `INSERT INTO flashcards (` + flashcardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), $17)
		ON CONFLICT (id) DO UPDATE SET
			front_text = EXCLUDED.front_text,
			back_text = EXCLUDED.back_text,
			hint = EXCLUDED.hint,
			module_id = EXCLUDED.module_id,
			section_id = EXCLUDED.section_id,
			tags = EXCLUDED.tags,
			srs_due = EXCLUDED.srs_due,
			srs_interval = EXCLUDED.srs_interval,
			srs_ease = EXCLUDED.srs_ease,
			srs_reps = EXCLUDED.srs_reps,
			srs_lapses = EXCLUDED.srs_lapses,
			total_reviews = EXCLUDED.total_reviews,
			correct_reviews = EXCLUDED.correct_reviews,
			last_reviewed_at = EXCLUDED.last_reviewed_at,
			updated_at = EXCLUDED.updated_at
		WHERE flashcards.updated_at <= EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.UserID, c.FrontText, c.BackText, c.Hint, c.ModuleID, c.SectionID, c.Tags,
		c.SRSDue, c.SRSInterval, c.SRSEase, c.SRSReps, c.SRSLapses,
		c.TotalReviews, c.CorrectReviews, c.LastReviewedAt, c.UpdatedAt,
	)
	return err
}

func (r *FlashcardRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Flashcard, error) {
	c := &models.Flashcard{}
	query := `SELECT ` + flashcardColumns + ` FROM flashcards WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&c.ID, &c.UserID, &c.FrontText, &c.BackText, &c.Hint, &c.ModuleID, &c.SectionID, &c.Tags,
		&c.SRSDue, &c.SRSInterval, &c.SRSEase, &c.SRSReps, &c.SRSLapses,
		&c.TotalReviews, &c.CorrectReviews, &c.LastReviewedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *FlashcardRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Flashcard, error) {
	query := `SELECT ` + flashcardColumns + ` FROM flashcards WHERE user_id = $1 ORDER BY srs_due ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFlashcards(rows)
}

// ListDue returns cards whose review is due at or before now.
func (r *FlashcardRepo) ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]models.Flashcard, error) {
	query := `SELECT ` + flashcardColumns + ` FROM flashcards
		WHERE user_id = $1 AND srs_due <= $2 ORDER BY srs_due ASC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFlashcards(rows)
}

func (r *FlashcardRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM flashcards WHERE id = $1 AND user_id = $2", id, userID)
	return err
}

func (r *FlashcardRepo) CreateReview(ctx context.Context, rev *models.FlashcardReview) error {
	rev.ID = uuid.New()

	query := `INSERT INTO flashcard_reviews (id, flashcard_id, user_id, rating, time_spent_seconds,
		srs_interval_before, srs_interval_after, srs_ease_before, srs_ease_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING reviewed_at`

	return r.pool.QueryRow(ctx, query,
		rev.ID, rev.FlashcardID, rev.UserID, rev.Rating, rev.TimeSpentSeconds,
		rev.SRSIntervalBefore, rev.SRSIntervalAfter, rev.SRSEaseBefore, rev.SRSEaseAfter,
	).Scan(&rev.ReviewedAt)
}

func (r *FlashcardRepo) GetStats(ctx context.Context, userID uuid.UUID) (*models.FlashcardStats, error) {
	stats := &models.FlashcardStats{}

	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE srs_due <= NOW()),
			COUNT(*) FILTER (WHERE srs_reps = 0),
			COUNT(*) FILTER (WHERE srs_reps > 0 AND srs_interval < 21),
			COUNT(*) FILTER (WHERE srs_interval >= 21),
			COALESCE(AVG(CASE WHEN total_reviews > 0
				THEN correct_reviews::float8 / total_reviews ELSE NULL END) * 100, 0)
		FROM flashcards WHERE user_id = $1
	`, userID).Scan(
		&stats.TotalCards, &stats.DueToday, &stats.NewCards,
		&stats.LearningCards, &stats.MatureCards, &stats.AvgRetentionRate,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// LifetimeCounts sums the per-card review counters for the scoring model.
// A card counts as mastered after 5 reviews at 90 percent or better.
func (r *FlashcardRepo) LifetimeCounts(ctx context.Context, userID uuid.UUID) (total, correct, mastered int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total_reviews), 0),
			COALESCE(SUM(correct_reviews), 0),
			COUNT(*) FILTER (WHERE total_reviews >= 5
				AND correct_reviews::float8 / total_reviews >= 0.9)
		FROM flashcards WHERE user_id = $1
	`, userID).Scan(&total, &correct, &mastered)
	return total, correct, mastered, err
}

// ReviewCountsByDay returns reviews-per-day for the trailing window, used
// by the dashboard streak and activity chart.
func (r *FlashcardRepo) ReviewCountsByDay(ctx context.Context, userID uuid.UUID, days int) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT reviewed_at::date::text, COUNT(*)
		FROM flashcard_reviews
		WHERE user_id = $1 AND reviewed_at >= NOW() - ($2 || ' days')::interval
		GROUP BY reviewed_at::date
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

func scanFlashcards(rows pgx.Rows) ([]models.Flashcard, error) {
	var cards []models.Flashcard
	for rows.Next() {
		c := models.Flashcard{}
		err := rows.Scan(
			&c.ID, &c.UserID, &c.FrontText, &c.BackText, &c.Hint, &c.ModuleID, &c.SectionID, &c.Tags,
			&c.SRSDue, &c.SRSInterval, &c.SRSEase, &c.SRSReps, &c.SRSLapses,
			&c.TotalReviews, &c.CorrectReviews, &c.LastReviewedAt, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}
