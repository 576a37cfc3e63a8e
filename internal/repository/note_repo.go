package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tco-prep-backend/internal/models"
)

type NoteRepo struct {
	pool *pgxpool.Pool
}

func NewNoteRepo(pool *pgxpool.Pool) *NoteRepo {
	return &NoteRepo{pool: pool}
}

const noteColumns = `id, user_id, text, tags, module_id, section_id,
	srs_due, srs_interval, srs_ease, srs_reps, srs_lapses, created_at, updated_at`

// Upsert writes a note with last-write-wins semantics keyed on updated_at,
// same contract as FlashcardRepo.Upsert.
func (r *NoteRepo) Upsert(ctx context.Context, n *models.Note) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = time.Now()
	}

	query := `INSERT INTO notes (` + noteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), $12)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			tags = EXCLUDED.tags,
			module_id = EXCLUDED.module_id,
			section_id = EXCLUDED.section_id,
			srs_due = EXCLUDED.srs_due,
			srs_interval = EXCLUDED.srs_interval,
			srs_ease = EXCLUDED.srs_ease,
			srs_reps = EXCLUDED.srs_reps,
			srs_lapses = EXCLUDED.srs_lapses,
			updated_at = EXCLUDED.updated_at
		WHERE notes.updated_at <= EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		n.ID, n.UserID, n.Text, n.Tags, n.ModuleID, n.SectionID,
		n.SRSDue, n.SRSInterval, n.SRSEase, n.SRSReps, n.SRSLapses, n.UpdatedAt,
	)
	return err
}

func (r *NoteRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Note, error) {
	n := &models.Note{}
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&n.ID, &n.UserID, &n.Text, &n.Tags, &n.ModuleID, &n.SectionID,
		&n.SRSDue, &n.SRSInterval, &n.SRSEase, &n.SRSReps, &n.SRSLapses,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *NoteRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

func (r *NoteRepo) ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes
		WHERE user_id = $1 AND srs_due <= $2 ORDER BY srs_due ASC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

func (r *NoteRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM notes WHERE id = $1 AND user_id = $2", id, userID)
	return err
}

func scanNotes(rows pgx.Rows) ([]models.Note, error) {
	var notes []models.Note
	for rows.Next() {
		n := models.Note{}
		err := rows.Scan(
			&n.ID, &n.UserID, &n.Text, &n.Tags, &n.ModuleID, &n.SectionID,
			&n.SRSDue, &n.SRSInterval, &n.SRSEase, &n.SRSReps, &n.SRSLapses,
			&n.CreatedAt, &n.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
