package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/internal/models"
)

const incidentColumns = `id, title, status, severity, summary, phase, started_at,
	acknowledged_at, resolved_at, assigned_to, created_at, updated_at`

func scanIncident(row pgx.Row) (*models.Incident, error) {
	var i models.Incident
	err := row.Scan(&i.ID, &i.Title, &i.Status, &i.Severity, &i.Summary, &i.Phase,
		&i.StartedAt, &i.AcknowledgedAt, &i.ResolvedAt, &i.AssignedTo, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

type IncidentRepository struct {
	q Querier
}

func NewIncidentRepository(db *Database) *IncidentRepository {
	return &IncidentRepository{q: db.Pool}
}

func (r *IncidentRepository) WithTx(tx pgx.Tx) *IncidentRepository {
	return &IncidentRepository{q: tx}
}

func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	if incident.ID == uuid.Nil {
		incident.ID = uuid.New()
	}
	now := time.Now().UTC()
	incident.CreatedAt = now
	incident.UpdatedAt = now

	_, err := r.q.Exec(ctx, `
		INSERT INTO incidents (`+incidentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, incident.ID, incident.Title, incident.Status, incident.Severity, incident.Summary,
		incident.Phase, incident.StartedAt, incident.AcknowledgedAt, incident.ResolvedAt,
		incident.AssignedTo, incident.CreatedAt, incident.UpdatedAt)
	return err
}

func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	return scanIncident(r.q.QueryRow(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id))
}

type ListIncidentsParams struct {
	Status   string
	Severity string
	Search   string
	SortBy   string
	SortDesc bool
	Page     int
	PageSize int
}

var incidentSortColumns = map[string]bool{
	"started_at": true,
	"created_at": true,
	"severity":   true,
	"status":     true,
	"title":      true,
}

func (r *IncidentRepository) List(ctx context.Context, p ListIncidentsParams) ([]models.Incident, int, error) {
	conds := []string{"TRUE"}
	args := []any{}

	if p.Status != "" {
		args = append(args, p.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if p.Severity != "" {
		args = append(args, p.Severity)
		conds = append(conds, fmt.Sprintf("severity = $%d", len(args)))
	}
	if p.Search != "" {
		args = append(args, "%"+p.Search+"%")
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	sortBy := p.SortBy
	if !incidentSortColumns[sortBy] {
		sortBy = "started_at"
	}
	direction := "ASC"
	if p.SortDesc {
		direction = "DESC"
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM incidents WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, p.PageSize, (p.Page-1)*p.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		incidentColumns, where, sortBy, direction, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var incidents []models.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, 0, err
		}
		incidents = append(incidents, *incident)
	}
	return incidents, total, rows.Err()
}

// FindCorrelatable returns the most recently started open or acknowledged
// incident within the window that has a member alert for the given service,
// or nil when there is none.
func (r *IncidentRepository) FindCorrelatable(ctx context.Context, service string, window time.Duration) (*models.Incident, error) {
	cutoff := time.Now().UTC().Add(-window)
	incident, err := scanIncident(r.q.QueryRow(ctx, `
		SELECT `+incidentColumns+` FROM incidents i
		WHERE i.status IN ('open', 'acknowledged')
			AND i.started_at >= $2
			AND EXISTS (SELECT 1 FROM alerts a WHERE a.incident_id = i.id AND a.service = $1)
		ORDER BY i.started_at DESC
		LIMIT 1
	`, service, cutoff))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return incident, nil
}

func (r *IncidentRepository) UpdateSeverity(ctx context.Context, id uuid.UUID, severity models.Severity) error {
	_, err := r.q.Exec(ctx, `
		UPDATE incidents SET severity = $2, updated_at = $3 WHERE id = $1
	`, id, severity, time.Now().UTC())
	return err
}

func (r *IncidentRepository) Acknowledge(ctx context.Context, id uuid.UUID, assignedTo *uuid.UUID) (*models.Incident, error) {
	now := time.Now().UTC()
	return scanIncident(r.q.QueryRow(ctx, `
		UPDATE incidents
		SET status = 'acknowledged', acknowledged_at = $2,
			assigned_to = COALESCE($3, assigned_to), updated_at = $2
		WHERE id = $1 AND status = 'open'
		RETURNING `+incidentColumns, id, now, assignedTo))
}

func (r *IncidentRepository) Resolve(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	now := time.Now().UTC()
	return scanIncident(r.q.QueryRow(ctx, `
		UPDATE incidents
		SET status = 'resolved', resolved_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ('open', 'acknowledged')
		RETURNING `+incidentColumns, id, now))
}

// AddEvent appends an audit event. eventData may be nil.
func (r *IncidentRepository) AddEvent(ctx context.Context, incidentID uuid.UUID, eventType, description string, actor *string, eventData any) error {
	var data json.RawMessage
	if eventData != nil {
		encoded, err := json.Marshal(eventData)
		if err != nil {
			return fmt.Errorf("encoding event data: %w", err)
		}
		data = encoded
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO incident_events (id, incident_id, event_type, description, actor, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), incidentID, eventType, description, actor, data, time.Now().UTC())
	return err
}

func (r *IncidentRepository) ListEvents(ctx context.Context, incidentID uuid.UUID) ([]models.IncidentEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, incident_id, event_type, description, actor, event_data, created_at
		FROM incident_events WHERE incident_id = $1 ORDER BY created_at ASC
	`, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.IncidentEvent
	for rows.Next() {
		var e models.IncidentEvent
		if err := rows.Scan(&e.ID, &e.IncidentID, &e.EventType, &e.Description, &e.Actor, &e.EventData, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
