package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/internal/models"
)

const silenceColumns = `id, name, matchers, starts_at, ends_at, created_by, reason,
	is_active, created_at, updated_at`

func scanSilence(row pgx.Row) (*models.SilenceWindow, error) {
	var s models.SilenceWindow
	err := row.Scan(&s.ID, &s.Name, &s.Matchers, &s.StartsAt, &s.EndsAt,
		&s.CreatedBy, &s.Reason, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type SilenceRepository struct {
	q Querier
}

func NewSilenceRepository(db *Database) *SilenceRepository {
	return &SilenceRepository{q: db.Pool}
}

func (r *SilenceRepository) WithTx(tx pgx.Tx) *SilenceRepository {
	return &SilenceRepository{q: tx}
}

func (r *SilenceRepository) Create(ctx context.Context, silence *models.SilenceWindow) error {
	if silence.ID == uuid.Nil {
		silence.ID = uuid.New()
	}
	now := time.Now().UTC()
	silence.CreatedAt = now
	silence.UpdatedAt = now

	_, err := r.q.Exec(ctx, `
		INSERT INTO silence_windows (`+silenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, silence.ID, silence.Name, silence.Matchers, silence.StartsAt, silence.EndsAt,
		silence.CreatedBy, silence.Reason, silence.IsActive, silence.CreatedAt, silence.UpdatedAt)
	return err
}

func (r *SilenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SilenceWindow, error) {
	return scanSilence(r.q.QueryRow(ctx, `SELECT `+silenceColumns+` FROM silence_windows WHERE id = $1`, id))
}

// List filters by lifecycle state: "active" (covering now), "expired"
// (window passed, still enabled), anything else lists all.
func (r *SilenceRepository) List(ctx context.Context, state string, page, pageSize int) ([]models.SilenceWindow, int, error) {
	where := "TRUE"
	switch state {
	case "active":
		where = "is_active AND starts_at <= NOW() AND ends_at >= NOW()"
	case "expired":
		where = "is_active AND ends_at < NOW()"
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM silence_windows WHERE `+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT `+silenceColumns+` FROM silence_windows WHERE `+where+`
		ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var silences []models.SilenceWindow
	for rows.Next() {
		s, err := scanSilence(rows)
		if err != nil {
			return nil, 0, err
		}
		silences = append(silences, *s)
	}
	return silences, total, rows.Err()
}

// ListCurrent returns silences whose window covers the given instant.
func (r *SilenceRepository) ListCurrent(ctx context.Context, at time.Time) ([]models.SilenceWindow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+silenceColumns+` FROM silence_windows
		WHERE is_active AND starts_at <= $1 AND ends_at > $1
	`, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var silences []models.SilenceWindow
	for rows.Next() {
		s, err := scanSilence(rows)
		if err != nil {
			return nil, err
		}
		silences = append(silences, *s)
	}
	return silences, rows.Err()
}

func (r *SilenceRepository) Update(ctx context.Context, silence *models.SilenceWindow) error {
	silence.UpdatedAt = time.Now().UTC()
	_, err := r.q.Exec(ctx, `
		UPDATE silence_windows
		SET name = $2, matchers = $3, starts_at = $4, ends_at = $5,
			created_by = $6, reason = $7, is_active = $8, updated_at = $9
		WHERE id = $1
	`, silence.ID, silence.Name, silence.Matchers, silence.StartsAt, silence.EndsAt,
		silence.CreatedBy, silence.Reason, silence.IsActive, silence.UpdatedAt)
	return err
}

// Delete deactivates the window; rows are kept for audit.
func (r *SilenceRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE silence_windows SET is_active = FALSE, updated_at = $2 WHERE id = $1
	`, id, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
