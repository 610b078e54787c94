package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/internal/models"
)

const scheduleColumns = `id, name, description, timezone, rotation_type, members, handoff_time,
	rotation_interval_days, rotation_interval_hours, effective_from, is_active, created_at, updated_at`

func scanSchedule(row pgx.Row) (*models.OnCallSchedule, error) {
	var s models.OnCallSchedule
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Timezone, &s.RotationType, &s.Members,
		&s.HandoffTime, &s.RotationIntervalDays, &s.RotationIntervalHours,
		&s.EffectiveFrom, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type ScheduleRepository struct {
	q Querier
}

func NewScheduleRepository(db *Database) *ScheduleRepository {
	return &ScheduleRepository{q: db.Pool}
}

func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.OnCallSchedule) error {
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	if schedule.Members == nil {
		schedule.Members = []models.ScheduleMember{}
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO oncall_schedules (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, schedule.ID, schedule.Name, schedule.Description, schedule.Timezone, schedule.RotationType,
		schedule.Members, schedule.HandoffTime, schedule.RotationIntervalDays,
		schedule.RotationIntervalHours, schedule.EffectiveFrom, schedule.IsActive,
		schedule.CreatedAt, schedule.UpdatedAt)
	return err
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OnCallSchedule, error) {
	return scanSchedule(r.q.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM oncall_schedules WHERE id = $1`, id))
}

func (r *ScheduleRepository) List(ctx context.Context) ([]models.OnCallSchedule, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+scheduleColumns+` FROM oncall_schedules ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []models.OnCallSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.OnCallSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	_, err := r.q.Exec(ctx, `
		UPDATE oncall_schedules
		SET name = $2, description = $3, timezone = $4, rotation_type = $5, members = $6,
			handoff_time = $7, rotation_interval_days = $8, rotation_interval_hours = $9,
			effective_from = $10, is_active = $11, updated_at = $12
		WHERE id = $1
	`, schedule.ID, schedule.Name, schedule.Description, schedule.Timezone, schedule.RotationType,
		schedule.Members, schedule.HandoffTime, schedule.RotationIntervalDays,
		schedule.RotationIntervalHours, schedule.EffectiveFrom, schedule.IsActive, schedule.UpdatedAt)
	return err
}

func (r *ScheduleRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM oncall_schedules WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ScheduleRepository) CreateOverride(ctx context.Context, override *models.OnCallOverride) error {
	if override.ID == uuid.Nil {
		override.ID = uuid.New()
	}
	override.CreatedAt = time.Now().UTC()
	_, err := r.q.Exec(ctx, `
		INSERT INTO oncall_overrides (id, schedule_id, user_id, starts_at, ends_at, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, override.ID, override.ScheduleID, override.UserID, override.StartsAt,
		override.EndsAt, override.Reason, override.CreatedAt)
	return err
}

// ListOverrides returns the schedule's overrides newest-created first, which
// is also the precedence order when overrides overlap.
func (r *ScheduleRepository) ListOverrides(ctx context.Context, scheduleID uuid.UUID) ([]models.OnCallOverride, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, schedule_id, user_id, starts_at, ends_at, reason, created_at
		FROM oncall_overrides WHERE schedule_id = $1 ORDER BY created_at DESC
	`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []models.OnCallOverride
	for rows.Next() {
		var o models.OnCallOverride
		if err := rows.Scan(&o.ID, &o.ScheduleID, &o.UserID, &o.StartsAt, &o.EndsAt, &o.Reason, &o.CreatedAt); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func (r *ScheduleRepository) DeleteOverride(ctx context.Context, overrideID uuid.UUID) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM oncall_overrides WHERE id = $1`, overrideID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const policyColumns = `id, name, description, repeat_count, levels, created_at, updated_at`

func scanPolicy(row pgx.Row) (*models.EscalationPolicy, error) {
	var p models.EscalationPolicy
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.RepeatCount, &p.Levels, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type EscalationRepository struct {
	q Querier
}

func NewEscalationRepository(db *Database) *EscalationRepository {
	return &EscalationRepository{q: db.Pool}
}

func (r *EscalationRepository) CreatePolicy(ctx context.Context, policy *models.EscalationPolicy) error {
	if policy.ID == uuid.Nil {
		policy.ID = uuid.New()
	}
	now := time.Now().UTC()
	policy.CreatedAt = now
	policy.UpdatedAt = now
	if policy.Levels == nil {
		policy.Levels = []models.EscalationLevel{}
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO escalation_policies (`+policyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, policy.ID, policy.Name, policy.Description, policy.RepeatCount, policy.Levels,
		policy.CreatedAt, policy.UpdatedAt)
	return err
}

func (r *EscalationRepository) GetPolicy(ctx context.Context, id uuid.UUID) (*models.EscalationPolicy, error) {
	return scanPolicy(r.q.QueryRow(ctx, `SELECT `+policyColumns+` FROM escalation_policies WHERE id = $1`, id))
}

func (r *EscalationRepository) ListPolicies(ctx context.Context) ([]models.EscalationPolicy, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+policyColumns+` FROM escalation_policies ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []models.EscalationPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	return policies, rows.Err()
}

func (r *EscalationRepository) UpdatePolicy(ctx context.Context, policy *models.EscalationPolicy) error {
	policy.UpdatedAt = time.Now().UTC()
	_, err := r.q.Exec(ctx, `
		UPDATE escalation_policies
		SET name = $2, description = $3, repeat_count = $4, levels = $5, updated_at = $6
		WHERE id = $1
	`, policy.ID, policy.Name, policy.Description, policy.RepeatCount, policy.Levels, policy.UpdatedAt)
	return err
}

func (r *EscalationRepository) DeletePolicy(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM escalation_policies WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *EscalationRepository) CreateMapping(ctx context.Context, mapping *models.ServiceEscalationMapping) error {
	if mapping.ID == uuid.Nil {
		mapping.ID = uuid.New()
	}
	mapping.CreatedAt = time.Now().UTC()
	_, err := r.q.Exec(ctx, `
		INSERT INTO service_escalation_mappings (id, service_pattern, severity_filter, escalation_policy_id, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, mapping.ID, mapping.ServicePattern, mapping.SeverityFilter,
		mapping.EscalationPolicyID, mapping.Priority, mapping.CreatedAt)
	return err
}

// ListMappings returns mappings in match order: priority ascending, then
// creation time ascending as the tie-break.
func (r *EscalationRepository) ListMappings(ctx context.Context) ([]models.ServiceEscalationMapping, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, service_pattern, severity_filter, escalation_policy_id, priority, created_at
		FROM service_escalation_mappings
		ORDER BY priority ASC, created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []models.ServiceEscalationMapping
	for rows.Next() {
		var m models.ServiceEscalationMapping
		if err := rows.Scan(&m.ID, &m.ServicePattern, &m.SeverityFilter, &m.EscalationPolicyID, &m.Priority, &m.CreatedAt); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

func (r *EscalationRepository) DeleteMapping(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM service_escalation_mappings WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
