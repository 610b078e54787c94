package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/internal/models"
)

const runbookColumns = `id, service_pattern, name_pattern, runbook_url_template, description,
	priority, is_active, created_at, updated_at`

func scanRunbookRule(row pgx.Row) (*models.RunbookRule, error) {
	var rule models.RunbookRule
	err := row.Scan(&rule.ID, &rule.ServicePattern, &rule.NamePattern, &rule.RunbookURLTemplate,
		&rule.Description, &rule.Priority, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

type RunbookRepository struct {
	q Querier
}

func NewRunbookRepository(db *Database) *RunbookRepository {
	return &RunbookRepository{q: db.Pool}
}

func (r *RunbookRepository) WithTx(tx pgx.Tx) *RunbookRepository {
	return &RunbookRepository{q: tx}
}

func (r *RunbookRepository) Create(ctx context.Context, rule *models.RunbookRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err := r.q.Exec(ctx, `
		INSERT INTO runbook_rules (`+runbookColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rule.ID, rule.ServicePattern, rule.NamePattern, rule.RunbookURLTemplate,
		rule.Description, rule.Priority, rule.IsActive, rule.CreatedAt, rule.UpdatedAt)
	return err
}

func (r *RunbookRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RunbookRule, error) {
	return scanRunbookRule(r.q.QueryRow(ctx, `SELECT `+runbookColumns+` FROM runbook_rules WHERE id = $1`, id))
}

func (r *RunbookRepository) List(ctx context.Context) ([]models.RunbookRule, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+runbookColumns+` FROM runbook_rules ORDER BY priority ASC, created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.RunbookRule
	for rows.Next() {
		rule, err := scanRunbookRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// ListActive returns active rules in match order: priority ascending, then
// creation time ascending.
func (r *RunbookRepository) ListActive(ctx context.Context) ([]models.RunbookRule, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+runbookColumns+` FROM runbook_rules
		WHERE is_active ORDER BY priority ASC, created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.RunbookRule
	for rows.Next() {
		rule, err := scanRunbookRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func (r *RunbookRepository) Update(ctx context.Context, rule *models.RunbookRule) error {
	rule.UpdatedAt = time.Now().UTC()
	_, err := r.q.Exec(ctx, `
		UPDATE runbook_rules
		SET service_pattern = $2, name_pattern = $3, runbook_url_template = $4,
			description = $5, priority = $6, is_active = $7, updated_at = $8
		WHERE id = $1
	`, rule.ID, rule.ServicePattern, rule.NamePattern, rule.RunbookURLTemplate,
		rule.Description, rule.Priority, rule.IsActive, rule.UpdatedAt)
	return err
}

func (r *RunbookRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM runbook_rules WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
