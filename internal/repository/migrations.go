package repository

import (
	"context"
	"fmt"
)

// Schema statements are idempotent and run in order at startup. The schema
// is small enough that full migration tooling would be overhead.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		must_change_password BOOLEAN NOT NULL DEFAULT FALSE,
		last_login_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS incidents (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		severity TEXT NOT NULL DEFAULT 'warning',
		summary TEXT,
		phase TEXT,
		started_at TIMESTAMPTZ NOT NULL,
		acknowledged_at TIMESTAMPTZ,
		resolved_at TIMESTAMPTZ,
		assigned_to UUID REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_status ON incidents (status)`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_started_at ON incidents (started_at)`,

	`CREATE TABLE IF NOT EXISTS alerts (
		id UUID PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		source TEXT NOT NULL,
		source_instance TEXT,
		status TEXT NOT NULL DEFAULT 'firing',
		severity TEXT NOT NULL DEFAULT 'warning',
		name TEXT NOT NULL,
		description TEXT,
		service TEXT,
		environment TEXT,
		host TEXT,
		labels JSONB NOT NULL DEFAULT '{}',
		annotations JSONB NOT NULL DEFAULT '{}',
		tags JSONB NOT NULL DEFAULT '[]',
		raw_payload JSONB,
		starts_at TIMESTAMPTZ NOT NULL,
		ends_at TIMESTAMPTZ,
		last_received_at TIMESTAMPTZ NOT NULL,
		acknowledged_at TIMESTAMPTZ,
		acknowledged_by UUID REFERENCES users(id),
		resolved_at TIMESTAMPTZ,
		duplicate_count INTEGER NOT NULL DEFAULT 1,
		generator_url TEXT,
		runbook_url TEXT,
		ticket_url TEXT,
		archived_at TIMESTAMPTZ,
		incident_id UUID REFERENCES incidents(id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_fingerprint ON alerts (fingerprint)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts (status)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_incident_id ON alerts (incident_id)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_service ON alerts (service)`,

	`CREATE TABLE IF NOT EXISTS alert_occurrences (
		id UUID PRIMARY KEY,
		alert_id UUID NOT NULL REFERENCES alerts(id) ON DELETE CASCADE,
		received_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alert_occurrences_alert_id ON alert_occurrences (alert_id)`,

	`CREATE TABLE IF NOT EXISTS alert_notes (
		id UUID PRIMARY KEY,
		alert_id UUID NOT NULL REFERENCES alerts(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		author TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alert_notes_alert_id ON alert_notes (alert_id)`,

	`CREATE TABLE IF NOT EXISTS incident_events (
		id UUID PRIMARY KEY,
		incident_id UUID NOT NULL REFERENCES incidents(id) ON DELETE CASCADE,
		event_type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		actor TEXT,
		event_data JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_incident_events_incident_id ON incident_events (incident_id)`,

	`CREATE TABLE IF NOT EXISTS silence_windows (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		matchers JSONB NOT NULL DEFAULT '{}',
		starts_at TIMESTAMPTZ NOT NULL,
		ends_at TIMESTAMPTZ NOT NULL,
		created_by TEXT,
		reason TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS notification_channels (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		channel_type TEXT NOT NULL,
		config JSONB NOT NULL DEFAULT '{}',
		filters JSONB NOT NULL DEFAULT '{}',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS notification_logs (
		id UUID PRIMARY KEY,
		channel_id UUID NOT NULL REFERENCES notification_channels(id) ON DELETE CASCADE,
		incident_id UUID NOT NULL REFERENCES incidents(id) ON DELETE CASCADE,
		event_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT,
		sent_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_logs_incident_id ON notification_logs (incident_id)`,

	`CREATE TABLE IF NOT EXISTS oncall_schedules (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		rotation_type TEXT NOT NULL DEFAULT 'weekly',
		members JSONB NOT NULL DEFAULT '[]',
		handoff_time TEXT NOT NULL DEFAULT '09:00',
		rotation_interval_days INTEGER NOT NULL DEFAULT 7,
		rotation_interval_hours INTEGER NOT NULL DEFAULT 1,
		effective_from TIMESTAMPTZ NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS oncall_overrides (
		id UUID PRIMARY KEY,
		schedule_id UUID NOT NULL REFERENCES oncall_schedules(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id),
		starts_at TIMESTAMPTZ NOT NULL,
		ends_at TIMESTAMPTZ NOT NULL,
		reason TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_oncall_overrides_schedule_id ON oncall_overrides (schedule_id)`,

	`CREATE TABLE IF NOT EXISTS escalation_policies (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		repeat_count INTEGER NOT NULL DEFAULT 0,
		levels JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS service_escalation_mappings (
		id UUID PRIMARY KEY,
		service_pattern TEXT NOT NULL,
		severity_filter JSONB,
		escalation_policy_id UUID NOT NULL REFERENCES escalation_policies(id) ON DELETE CASCADE,
		priority INTEGER NOT NULL DEFAULT 100,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS runbook_rules (
		id UUID PRIMARY KEY,
		service_pattern TEXT NOT NULL,
		name_pattern TEXT,
		runbook_url_template TEXT NOT NULL,
		description TEXT,
		priority INTEGER NOT NULL DEFAULT 100,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates all tables and indexes that do not exist yet.
func (d *Database) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
