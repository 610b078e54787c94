package repository

import (
	"context"
	"math"

	"github.com/jackc/pgx/v5"
)

// DashboardStats aggregates the counts and response-time averages shown on
// the dashboard landing page.
type DashboardStats struct {
	Alerts      AlertStats    `json:"alerts"`
	Incidents   IncidentStats `json:"incidents"`
	MTTASeconds *float64      `json:"mtta_seconds"`
	MTTRSeconds *float64      `json:"mttr_seconds"`
}

type AlertStats struct {
	ByStatus   map[string]int `json:"by_status"`
	BySeverity map[string]int `json:"by_severity"`
	Total      int            `json:"total"`
	Active     int            `json:"active"`
}

type IncidentStats struct {
	ByStatus map[string]int `json:"by_status"`
	Total    int            `json:"total"`
}

type StatsRepository struct {
	q Querier
}

func NewStatsRepository(db *Database) *StatsRepository {
	return &StatsRepository{q: db.Pool}
}

var alertStatuses = []string{"firing", "acknowledged", "resolved", "suppressed", "archived"}
var severities = []string{"info", "low", "warning", "high", "critical"}
var incidentStatuses = []string{"open", "acknowledged", "resolved"}

// Dashboard computes alert and incident counts plus MTTA/MTTR over alerts
// acknowledged or resolved in the last 24 hours.
func (r *StatsRepository) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		Alerts: AlertStats{
			ByStatus:   map[string]int{},
			BySeverity: map[string]int{},
		},
		Incidents: IncidentStats{ByStatus: map[string]int{}},
	}

	rows, err := r.q.Query(ctx, `SELECT status, COUNT(*) FROM alerts GROUP BY status`)
	if err != nil {
		return nil, err
	}
	counts, err := collectCounts(rows)
	if err != nil {
		return nil, err
	}
	for _, status := range alertStatuses {
		stats.Alerts.ByStatus[status] = counts[status]
		stats.Alerts.Total += counts[status]
	}
	stats.Alerts.Active = counts["firing"] + counts["acknowledged"]

	rows, err = r.q.Query(ctx, `
		SELECT severity, COUNT(*) FROM alerts
		WHERE status IN ('firing', 'acknowledged') GROUP BY severity
	`)
	if err != nil {
		return nil, err
	}
	counts, err = collectCounts(rows)
	if err != nil {
		return nil, err
	}
	for _, sev := range severities {
		stats.Alerts.BySeverity[sev] = counts[sev]
	}

	rows, err = r.q.Query(ctx, `SELECT status, COUNT(*) FROM incidents GROUP BY status`)
	if err != nil {
		return nil, err
	}
	counts, err = collectCounts(rows)
	if err != nil {
		return nil, err
	}
	for _, status := range incidentStatuses {
		stats.Incidents.ByStatus[status] = counts[status]
		stats.Incidents.Total += counts[status]
	}

	if err := r.q.QueryRow(ctx, `
		SELECT AVG(EXTRACT(EPOCH FROM acknowledged_at) - EXTRACT(EPOCH FROM starts_at))
		FROM alerts
		WHERE acknowledged_at IS NOT NULL AND acknowledged_at >= NOW() - INTERVAL '24 hours'
	`).Scan(&stats.MTTASeconds); err != nil {
		return nil, err
	}

	if err := r.q.QueryRow(ctx, `
		SELECT AVG(EXTRACT(EPOCH FROM resolved_at) - EXTRACT(EPOCH FROM starts_at))
		FROM alerts
		WHERE resolved_at IS NOT NULL AND resolved_at >= NOW() - INTERVAL '24 hours'
	`).Scan(&stats.MTTRSeconds); err != nil {
		return nil, err
	}

	roundTenth(stats.MTTASeconds)
	roundTenth(stats.MTTRSeconds)
	return stats, nil
}

func roundTenth(v *float64) {
	if v != nil {
		*v = math.Round(*v*10) / 10
	}
}

func collectCounts(rows pgx.Rows) (map[string]int, error) {
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}
