package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tco-prep-backend/internal/models"
)

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

func (r *VideoRepo) Create(ctx context.Context, v *models.StudyVideo) error {
	v.ID = uuid.New()
	v.Status = "pending"

	query := `INSERT INTO study_videos (id, user_id, youtube_id, title, channel_name, thumbnail_url,
		duration_seconds, module_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		v.ID, v.UserID, v.YouTubeID, v.Title, v.ChannelName, v.ThumbnailURL,
		v.DurationSeconds, v.ModuleID, v.Status,
	).Scan(&v.CreatedAt)
}

func (r *VideoRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StudyVideo, error) {
	v := &models.StudyVideo{}
	query := `SELECT id, user_id, youtube_id, title, channel_name, thumbnail_url,
		duration_seconds, module_id, transcript, status, created_at, imported_at
		FROM study_videos WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.UserID, &v.YouTubeID, &v.Title, &v.ChannelName, &v.ThumbnailURL,
		&v.DurationSeconds, &v.ModuleID, &v.Transcript, &v.Status, &v.CreatedAt, &v.ImportedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *VideoRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StudyVideo, error) {
	query := `SELECT id, user_id, youtube_id, title, channel_name, thumbnail_url,
		duration_seconds, module_id, transcript, status, created_at, imported_at
		FROM study_videos WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []models.StudyVideo
	for rows.Next() {
		v := models.StudyVideo{}
		err := rows.Scan(
			&v.ID, &v.UserID, &v.YouTubeID, &v.Title, &v.ChannelName, &v.ThumbnailURL,
			&v.DurationSeconds, &v.ModuleID, &v.Transcript, &v.Status, &v.CreatedAt, &v.ImportedAt,
		)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *VideoRepo) UpdateMetadata(ctx context.Context, v *models.StudyVideo) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE study_videos SET title = $1, channel_name = $2, thumbnail_url = $3, duration_seconds = $4
		 WHERE id = $5`,
		v.Title, v.ChannelName, v.ThumbnailURL, v.DurationSeconds, v.ID,
	)
	return err
}

func (r *VideoRepo) UpdateTranscript(ctx context.Context, id uuid.UUID, transcript string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE study_videos SET transcript = $1, status = 'ready', imported_at = NOW() WHERE id = $2",
		transcript, id,
	)
	return err
}

func (r *VideoRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, "UPDATE study_videos SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *VideoRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM study_videos WHERE id = $1 AND user_id = $2", id, userID)
	return err
}
