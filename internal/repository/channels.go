package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/internal/models"
)

const channelColumns = `id, name, channel_type, config, filters, is_active, created_at, updated_at`

func scanChannel(row pgx.Row) (*models.NotificationChannel, error) {
	var c models.NotificationChannel
	err := row.Scan(&c.ID, &c.Name, &c.ChannelType, &c.Config, &c.Filters,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type ChannelRepository struct {
	q Querier
}

func NewChannelRepository(db *Database) *ChannelRepository {
	return &ChannelRepository{q: db.Pool}
}

func (r *ChannelRepository) Create(ctx context.Context, channel *models.NotificationChannel) error {
	if channel.ID == uuid.Nil {
		channel.ID = uuid.New()
	}
	now := time.Now().UTC()
	channel.CreatedAt = now
	channel.UpdatedAt = now

	_, err := r.q.Exec(ctx, `
		INSERT INTO notification_channels (`+channelColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, channel.ID, channel.Name, channel.ChannelType, channel.Config, channel.Filters,
		channel.IsActive, channel.CreatedAt, channel.UpdatedAt)
	return err
}

func (r *ChannelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.NotificationChannel, error) {
	return scanChannel(r.q.QueryRow(ctx, `SELECT `+channelColumns+` FROM notification_channels WHERE id = $1`, id))
}

func (r *ChannelRepository) List(ctx context.Context) ([]models.NotificationChannel, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+channelColumns+` FROM notification_channels ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.NotificationChannel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *c)
	}
	return channels, rows.Err()
}

func (r *ChannelRepository) ListActive(ctx context.Context) ([]models.NotificationChannel, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+channelColumns+` FROM notification_channels WHERE is_active ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.NotificationChannel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *c)
	}
	return channels, rows.Err()
}

func (r *ChannelRepository) Update(ctx context.Context, channel *models.NotificationChannel) error {
	channel.UpdatedAt = time.Now().UTC()
	_, err := r.q.Exec(ctx, `
		UPDATE notification_channels
		SET name = $2, channel_type = $3, config = $4, filters = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`, channel.ID, channel.Name, channel.ChannelType, channel.Config, channel.Filters,
		channel.IsActive, channel.UpdatedAt)
	return err
}

// Delete deactivates the channel; history in the notification log keeps
// referencing it.
func (r *ChannelRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE notification_channels SET is_active = FALSE, updated_at = $2 WHERE id = $1
	`, id, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type NotificationLogRepository struct {
	q Querier
}

func NewNotificationLogRepository(db *Database) *NotificationLogRepository {
	return &NotificationLogRepository{q: db.Pool}
}

func (r *NotificationLogRepository) Create(ctx context.Context, log *models.NotificationLog) error {
	log.ID = uuid.New()
	log.CreatedAt = time.Now().UTC()
	_, err := r.q.Exec(ctx, `
		INSERT INTO notification_logs (id, channel_id, incident_id, event_type, status, error_message, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, log.ID, log.ChannelID, log.IncidentID, log.EventType, log.Status,
		log.ErrorMessage, log.SentAt, log.CreatedAt)
	return err
}

func (r *NotificationLogRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	_, err := r.q.Exec(ctx, `
		UPDATE notification_logs SET status = 'sent', sent_at = $2 WHERE id = $1
	`, id, now)
	return err
}

func (r *NotificationLogRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	if len(message) > 500 {
		message = message[:500]
	}
	_, err := r.q.Exec(ctx, `
		UPDATE notification_logs SET status = 'failed', error_message = $2 WHERE id = $1
	`, id, message)
	return err
}

func (r *NotificationLogRepository) List(ctx context.Context, channelID, incidentID *uuid.UUID, page, pageSize int) ([]models.NotificationLog, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM notification_logs
		WHERE ($1::uuid IS NULL OR channel_id = $1) AND ($2::uuid IS NULL OR incident_id = $2)
	`, channelID, incidentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, channel_id, incident_id, event_type, status, error_message, sent_at, created_at
		FROM notification_logs
		WHERE ($1::uuid IS NULL OR channel_id = $1) AND ($2::uuid IS NULL OR incident_id = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, channelID, incidentID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []models.NotificationLog
	for rows.Next() {
		var l models.NotificationLog
		if err := rows.Scan(&l.ID, &l.ChannelID, &l.IncidentID, &l.EventType, &l.Status,
			&l.ErrorMessage, &l.SentAt, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}
