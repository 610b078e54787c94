package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/internal/models"
)

const alertColumns = `id, fingerprint, source, source_instance, status, severity, name, description,
	service, environment, host, labels, annotations, tags, raw_payload,
	starts_at, ends_at, last_received_at, acknowledged_at, acknowledged_by, resolved_at,
	duplicate_count, generator_url, runbook_url, ticket_url, archived_at, incident_id,
	created_at, updated_at`

func scanAlert(row pgx.Row) (*models.Alert, error) {
	var a models.Alert
	err := row.Scan(&a.ID, &a.Fingerprint, &a.Source, &a.SourceInstance, &a.Status, &a.Severity,
		&a.Name, &a.Description, &a.Service, &a.Environment, &a.Host,
		&a.Labels, &a.Annotations, &a.Tags, &a.RawPayload,
		&a.StartsAt, &a.EndsAt, &a.LastReceivedAt, &a.AcknowledgedAt, &a.AcknowledgedBy, &a.ResolvedAt,
		&a.DuplicateCount, &a.GeneratorURL, &a.RunbookURL, &a.TicketURL, &a.ArchivedAt, &a.IncidentID,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type AlertRepository struct {
	q Querier
}

func NewAlertRepository(db *Database) *AlertRepository {
	return &AlertRepository{q: db.Pool}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *AlertRepository) WithTx(tx pgx.Tx) *AlertRepository {
	return &AlertRepository{q: tx}
}

func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	now := time.Now().UTC()
	alert.CreatedAt = now
	alert.UpdatedAt = now
	if alert.Labels == nil {
		alert.Labels = map[string]string{}
	}
	if alert.Annotations == nil {
		alert.Annotations = map[string]string{}
	}
	if alert.Tags == nil {
		alert.Tags = []string{}
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`, alert.ID, alert.Fingerprint, alert.Source, alert.SourceInstance, alert.Status, alert.Severity,
		alert.Name, alert.Description, alert.Service, alert.Environment, alert.Host,
		alert.Labels, alert.Annotations, alert.Tags, alert.RawPayload,
		alert.StartsAt, alert.EndsAt, alert.LastReceivedAt, alert.AcknowledgedAt, alert.AcknowledgedBy,
		alert.ResolvedAt, alert.DuplicateCount, alert.GeneratorURL, alert.RunbookURL, alert.TicketURL,
		alert.ArchivedAt, alert.IncidentID, alert.CreatedAt, alert.UpdatedAt)
	return err
}

func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	return scanAlert(r.q.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
}

// FindDuplicate returns the most recent active alert with the given
// fingerprint seen within the window, or nil when there is none.
func (r *AlertRepository) FindDuplicate(ctx context.Context, fingerprint string, window time.Duration) (*models.Alert, error) {
	cutoff := time.Now().UTC().Add(-window)
	alert, err := scanAlert(r.q.QueryRow(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE fingerprint = $1
			AND status IN ('firing', 'acknowledged')
			AND last_received_at >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`, fingerprint, cutoff))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// RecordDuplicate bumps the duplicate counter and the last-received time,
// returning the updated alert.
func (r *AlertRepository) RecordDuplicate(ctx context.Context, id uuid.UUID, receivedAt time.Time) (*models.Alert, error) {
	return scanAlert(r.q.QueryRow(ctx, `
		UPDATE alerts
		SET duplicate_count = duplicate_count + 1, last_received_at = $2, updated_at = $2
		WHERE id = $1
		RETURNING `+alertColumns, id, receivedAt))
}

type ListAlertsParams struct {
	Status      string
	Severity    string
	Service     string
	Source      string
	Environment string
	IncidentID  *uuid.UUID
	Tag         string
	Search      string
	SortBy      string
	SortDesc    bool
	Page        int
	PageSize    int
}

// Columns accepted for ORDER BY; anything else falls back to created_at.
var alertSortColumns = map[string]bool{
	"created_at":       true,
	"severity":         true,
	"name":             true,
	"service":          true,
	"status":           true,
	"starts_at":        true,
	"last_received_at": true,
	"duplicate_count":  true,
}

func (r *AlertRepository) List(ctx context.Context, p ListAlertsParams) ([]models.Alert, int, error) {
	conds := []string{"archived_at IS NULL"}
	args := []any{}

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if p.Status != "" {
		add("status = $%d", p.Status)
	}
	if p.Severity != "" {
		add("severity = $%d", p.Severity)
	}
	if p.Service != "" {
		add("service = $%d", p.Service)
	}
	if p.Source != "" {
		add("source = $%d", p.Source)
	}
	if p.Environment != "" {
		add("environment = $%d", p.Environment)
	}
	if p.IncidentID != nil {
		add("incident_id = $%d", *p.IncidentID)
	}
	if p.Tag != "" {
		// JSONB array containment for the exact tag.
		add("tags @> $%d", []string{p.Tag})
	}
	if p.Search != "" {
		args = append(args, "%"+p.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(name ILIKE $%d OR description ILIKE $%d OR service ILIKE $%d OR host ILIKE $%d)",
			n, n, n, n))
	}
	where := strings.Join(conds, " AND ")

	sortBy := p.SortBy
	if !alertSortColumns[sortBy] {
		sortBy = "created_at"
	}
	direction := "ASC"
	if p.SortDesc {
		direction = "DESC"
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM alerts WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, p.PageSize, (p.Page-1)*p.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		alertColumns, where, sortBy, direction, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, total, rows.Err()
}

func (r *AlertRepository) ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]models.Alert, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+alertColumns+` FROM alerts WHERE incident_id = $1 ORDER BY starts_at ASC
	`, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

func (r *AlertRepository) Acknowledge(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*models.Alert, error) {
	now := time.Now().UTC()
	return scanAlert(r.q.QueryRow(ctx, `
		UPDATE alerts
		SET status = 'acknowledged', acknowledged_at = $2, acknowledged_by = $3, updated_at = $2
		WHERE id = $1 AND status = 'firing'
		RETURNING `+alertColumns, id, now, userID))
}

func (r *AlertRepository) Resolve(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	now := time.Now().UTC()
	return scanAlert(r.q.QueryRow(ctx, `
		UPDATE alerts
		SET status = 'resolved', resolved_at = $2, ends_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ('firing', 'acknowledged')
		RETURNING `+alertColumns, id, now))
}

// BulkAcknowledge acknowledges every firing alert in ids and returns how
// many rows changed.
func (r *AlertRepository) BulkAcknowledge(ctx context.Context, ids []uuid.UUID, userID *uuid.UUID) (int64, error) {
	now := time.Now().UTC()
	tag, err := r.q.Exec(ctx, `
		UPDATE alerts
		SET status = 'acknowledged', acknowledged_at = $2, acknowledged_by = $3, updated_at = $2
		WHERE id = ANY($1) AND status = 'firing'
	`, ids, now, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *AlertRepository) BulkResolve(ctx context.Context, ids []uuid.UUID) (int64, error) {
	now := time.Now().UTC()
	tag, err := r.q.Exec(ctx, `
		UPDATE alerts
		SET status = 'resolved', resolved_at = $2, ends_at = $2, updated_at = $2
		WHERE id = ANY($1) AND status IN ('firing', 'acknowledged')
	`, ids, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *AlertRepository) SetTags(ctx context.Context, id uuid.UUID, tags []string) (*models.Alert, error) {
	if tags == nil {
		tags = []string{}
	}
	return scanAlert(r.q.QueryRow(ctx, `
		UPDATE alerts SET tags = $2, updated_at = $3 WHERE id = $1
		RETURNING `+alertColumns, id, tags, time.Now().UTC()))
}

func (r *AlertRepository) SetIncident(ctx context.Context, id, incidentID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `
		UPDATE alerts SET incident_id = $2, updated_at = $3 WHERE id = $1
	`, id, incidentID, time.Now().UTC())
	return err
}

// AllResolvedInIncident reports whether every member alert of the incident
// is resolved.
func (r *AlertRepository) AllResolvedInIncident(ctx context.Context, incidentID uuid.UUID) (bool, error) {
	var unresolved int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM alerts WHERE incident_id = $1 AND status <> 'resolved'
	`, incidentID).Scan(&unresolved)
	if err != nil {
		return false, err
	}
	return unresolved == 0, nil
}

// AcknowledgeByIncident acknowledges every firing member alert of the
// incident and returns how many rows changed.
func (r *AlertRepository) AcknowledgeByIncident(ctx context.Context, incidentID uuid.UUID, userID *uuid.UUID, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE alerts
		SET status = 'acknowledged', acknowledged_at = $2, acknowledged_by = $3, updated_at = $2
		WHERE incident_id = $1 AND status = 'firing'
	`, incidentID, now, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ResolveByIncident resolves every active member alert of the incident and
// returns how many rows changed.
func (r *AlertRepository) ResolveByIncident(ctx context.Context, incidentID uuid.UUID, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE alerts
		SET status = 'resolved', resolved_at = $2, ends_at = $2, updated_at = $2
		WHERE incident_id = $1 AND status IN ('firing', 'acknowledged')
	`, incidentID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ArchiveResolvedBefore marks resolved alerts older than the cutoff as
// archived and returns the number affected.
func (r *AlertRepository) ArchiveResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	tag, err := r.q.Exec(ctx, `
		UPDATE alerts
		SET status = 'archived', archived_at = $2, updated_at = $2
		WHERE status = 'resolved' AND archived_at IS NULL AND resolved_at < $1
	`, cutoff, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type OccurrenceRepository struct {
	q Querier
}

func NewOccurrenceRepository(db *Database) *OccurrenceRepository {
	return &OccurrenceRepository{q: db.Pool}
}

func (r *OccurrenceRepository) WithTx(tx pgx.Tx) *OccurrenceRepository {
	return &OccurrenceRepository{q: tx}
}

func (r *OccurrenceRepository) Create(ctx context.Context, alertID uuid.UUID, receivedAt time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO alert_occurrences (id, alert_id, received_at) VALUES ($1, $2, $3)
	`, uuid.New(), alertID, receivedAt)
	return err
}

func (r *OccurrenceRepository) ListByAlert(ctx context.Context, alertID uuid.UUID, limit int) ([]models.AlertOccurrence, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, alert_id, received_at FROM alert_occurrences
		WHERE alert_id = $1 ORDER BY received_at DESC LIMIT $2
	`, alertID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var occurrences []models.AlertOccurrence
	for rows.Next() {
		var o models.AlertOccurrence
		if err := rows.Scan(&o.ID, &o.AlertID, &o.ReceivedAt); err != nil {
			return nil, err
		}
		occurrences = append(occurrences, o)
	}
	return occurrences, rows.Err()
}

type NoteRepository struct {
	q Querier
}

func NewNoteRepository(db *Database) *NoteRepository {
	return &NoteRepository{q: db.Pool}
}

func (r *NoteRepository) Create(ctx context.Context, note *models.AlertNote) error {
	note.ID = uuid.New()
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now
	_, err := r.q.Exec(ctx, `
		INSERT INTO alert_notes (id, alert_id, text, author, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, note.ID, note.AlertID, note.Text, note.Author, note.CreatedAt, note.UpdatedAt)
	return err
}

func (r *NoteRepository) ListByAlert(ctx context.Context, alertID uuid.UUID) ([]models.AlertNote, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, alert_id, text, author, created_at, updated_at
		FROM alert_notes WHERE alert_id = $1 ORDER BY created_at DESC
	`, alertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []models.AlertNote
	for rows.Next() {
		var n models.AlertNote
		if err := rows.Scan(&n.ID, &n.AlertID, &n.Text, &n.Author, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *NoteRepository) Update(ctx context.Context, noteID uuid.UUID, text string) (*models.AlertNote, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE alert_notes SET text = $2, updated_at = $3 WHERE id = $1
		RETURNING id, alert_id, text, author, created_at, updated_at
	`, noteID, text, time.Now().UTC())
	var n models.AlertNote
	if err := row.Scan(&n.ID, &n.AlertID, &n.Text, &n.Author, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NoteRepository) Delete(ctx context.Context, noteID uuid.UUID) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM alert_notes WHERE id = $1`, noteID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
