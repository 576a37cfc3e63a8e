package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tco-prep-backend/internal/models"
)

type QuestionReviewRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionReviewRepo(pool *pgxpool.Pool) *QuestionReviewRepo {
	return &QuestionReviewRepo{pool: pool}
}

const questionReviewColumns = `id, user_id, question_id,
	srs_due, srs_interval, srs_ease, srs_reps, srs_lapses,
	total_attempts, correct_attempts, last_reviewed_at, created_at, updated_at`

// Upsert is keyed on (user_id, question_id): one review row per question
// per user, however many times it is missed.
func (r *QuestionReviewRepo) Upsert(ctx context.Context, qr *models.QuestionReview) error {
	if qr.ID == uuid.Nil {
		qr.ID = uuid.New()
	}
	if qr.UpdatedAt.IsZero() {
		qr.UpdatedAt = time.Now()
	}

	query := `INSERT INTO question_reviews (` + questionReviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), $12)
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			srs_due = EXCLUDED.srs_due,
			srs_interval = EXCLUDED.srs_interval,
			srs_ease = EXCLUDED.srs_ease,
			srs_reps = EXCLUDED.srs_reps,
			srs_lapses = EXCLUDED.srs_lapses,
			total_attempts = EXCLUDED.total_attempts,
			correct_attempts = EXCLUDED.correct_attempts,
			last_reviewed_at = EXCLUDED.last_reviewed_at,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		qr.ID, qr.UserID, qr.QuestionID,
		qr.SRSDue, qr.SRSInterval, qr.SRSEase, qr.SRSReps, qr.SRSLapses,
		qr.TotalAttempts, qr.CorrectAttempts, qr.LastReviewedAt, qr.UpdatedAt,
	)
	return err
}

func (r *QuestionReviewRepo) Get(ctx context.Context, userID, questionID uuid.UUID) (*models.QuestionReview, error) {
	qr := &models.QuestionReview{}
	query := `SELECT ` + questionReviewColumns + ` FROM question_reviews
		WHERE user_id = $1 AND question_id = $2`

	err := r.pool.QueryRow(ctx, query, userID, questionID).Scan(
		&qr.ID, &qr.UserID, &qr.QuestionID,
		&qr.SRSDue, &qr.SRSInterval, &qr.SRSEase, &qr.SRSReps, &qr.SRSLapses,
		&qr.TotalAttempts, &qr.CorrectAttempts, &qr.LastReviewedAt, &qr.CreatedAt, &qr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return qr, nil
}

func (r *QuestionReviewRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.QuestionReview, error) {
	query := `SELECT ` + questionReviewColumns + ` FROM question_reviews
		WHERE user_id = $1 ORDER BY srs_due ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestionReviews(rows)
}

func (r *QuestionReviewRepo) ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]models.QuestionReview, error) {
	query := `SELECT ` + questionReviewColumns + ` FROM question_reviews
		WHERE user_id = $1 AND srs_due <= $2 ORDER BY srs_due ASC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestionReviews(rows)
}

// RecordAttempt bumps the attempt counters for a question answered during
// practice. A missing row is created with fresh SRS state due immediately,
// which is what pulls missed questions into the review queue.
func (r *QuestionReviewRepo) RecordAttempt(ctx context.Context, userID, questionID uuid.UUID, correct bool) error {
	correctInc := 0
	if correct {
		correctInc = 1
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO question_reviews (id, user_id, question_id, srs_due, srs_interval, srs_ease, srs_reps, srs_lapses,
			total_attempts, correct_attempts, updated_at)
		VALUES ($1, $2, $3, NOW(), 0, 2.5, 0, 0, 1, $4, NOW())
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			total_attempts = question_reviews.total_attempts + 1,
			correct_attempts = question_reviews.correct_attempts + $4,
			updated_at = NOW()
	`, uuid.New(), userID, questionID, correctInc)
	return err
}

// LifetimeCounts sums per-question review counters across the user's
// review rows.
func (r *QuestionReviewRepo) LifetimeCounts(ctx context.Context, userID uuid.UUID) (total, correct int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_attempts), 0), COALESCE(SUM(correct_attempts), 0)
		FROM question_reviews WHERE user_id = $1
	`, userID).Scan(&total, &correct)
	return total, correct, err
}

func (r *QuestionReviewRepo) GetDailyStats(ctx context.Context, userID uuid.UUID) (*models.DailyReviewStats, error) {
	stats := &models.DailyReviewStats{}
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM flashcards WHERE user_id = $1 AND srs_due <= NOW()),
			(SELECT COUNT(*) FROM question_reviews WHERE user_id = $1 AND srs_due <= NOW()),
			(SELECT COUNT(*) FROM flashcards WHERE user_id = $1),
			(SELECT COUNT(*) FROM question_reviews WHERE user_id = $1),
			(SELECT COUNT(*) FROM flashcard_reviews WHERE user_id = $1 AND reviewed_at::date = CURRENT_DATE),
			(SELECT COUNT(*) FROM flashcard_reviews WHERE user_id = $1 AND reviewed_at >= NOW() - INTERVAL '7 days')
	`, userID).Scan(
		&stats.FlashcardsDue, &stats.QuestionsDue, &stats.FlashcardsAll,
		&stats.QuestionsAll, &stats.ReviewsToday, &stats.ReviewsThisWeek,
	)
	if err != nil {
		return nil, err
	}
	stats.TotalDue = stats.FlashcardsDue + stats.QuestionsDue
	return stats, nil
}

func scanQuestionReviews(rows pgx.Rows) ([]models.QuestionReview, error) {
	var reviews []models.QuestionReview
	for rows.Next() {
		qr := models.QuestionReview{}
		err := rows.Scan(
			&qr.ID, &qr.UserID, &qr.QuestionID,
			&qr.SRSDue, &qr.SRSInterval, &qr.SRSEase, &qr.SRSReps, &qr.SRSLapses,
			&qr.TotalAttempts, &qr.CorrectAttempts, &qr.LastReviewedAt, &qr.CreatedAt, &qr.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, qr)
	}
	return reviews, rows.Err()
}
