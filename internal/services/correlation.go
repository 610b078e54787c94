package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/internal/models"
	"github.com/springdom/solace/internal/repository"
)

// Correlator groups related alerts into incidents. Strategy (rule-based):
// alerts sharing a service correlate to the most recent open incident for
// that service started within the correlation window; incident severity is
// promoted to the max of its member alerts.
type Correlator struct {
	alerts    *repository.AlertRepository
	incidents *repository.IncidentRepository
	window    time.Duration
}

func NewCorrelator(db *repository.Database, window time.Duration) *Correlator {
	return &Correlator{
		alerts:    repository.NewAlertRepository(db),
		incidents: repository.NewIncidentRepository(db),
		window:    window,
	}
}

// WithTx returns a correlator whose repositories run inside the transaction.
func (c *Correlator) WithTx(tx pgx.Tx) *Correlator {
	return &Correlator{
		alerts:    c.alerts.WithTx(tx),
		incidents: c.incidents.WithTx(tx),
		window:    c.window,
	}
}

// Correlate attaches the alert to an existing or new incident. The returned
// event type is models.EventIncidentCreated when a new incident was opened,
// models.EventSeverityChanged when attaching escalated an existing
// incident, and "" otherwise.
func (c *Correlator) Correlate(ctx context.Context, alert *models.Alert) (*models.Incident, string, error) {
	if alert.Status == models.AlertResolved {
		incident, err := c.handleResolvedAlert(ctx, alert)
		return incident, "", err
	}

	var incident *models.Incident
	if alert.Service != nil && *alert.Service != "" {
		found, err := c.incidents.FindCorrelatable(ctx, *alert.Service, c.window)
		if err != nil {
			return nil, "", err
		}
		incident = found
	}

	if incident != nil {
		eventType, err := c.attachToIncident(ctx, alert, incident)
		return incident, eventType, err
	}
	return c.createIncident(ctx, alert)
}

func (c *Correlator) attachToIncident(ctx context.Context, alert *models.Alert, incident *models.Incident) (string, error) {
	if err := c.alerts.SetIncident(ctx, alert.ID, incident.ID); err != nil {
		return "", err
	}
	alert.IncidentID = &incident.ID

	newSeverity := models.MaxSeverity(incident.Severity, alert.Severity)
	promoted := newSeverity != incident.Severity
	if promoted {
		if err := c.incidents.UpdateSeverity(ctx, incident.ID, newSeverity); err != nil {
			return "", err
		}
		incident.Severity = newSeverity
	}

	err := c.incidents.AddEvent(ctx, incident.ID, models.EventAlertAdded,
		fmt.Sprintf("Alert '%s' correlated to incident", alert.Name), nil,
		map[string]any{
			"alert_id":          alert.ID.String(),
			"alert_name":        alert.Name,
			"alert_severity":    string(alert.Severity),
			"alert_host":        alert.Host,
			"severity_promoted": promoted,
		})
	if err != nil {
		return "", err
	}

	if !promoted {
		log.Printf("alert %q attached to incident %q", alert.Name, incident.Title)
		return "", nil
	}

	err = c.incidents.AddEvent(ctx, incident.ID, models.EventSeverityChanged,
		fmt.Sprintf("Severity escalated to %s", newSeverity), nil,
		map[string]any{
			"from":             string(models.PreviousSeverity(newSeverity)),
			"to":               string(newSeverity),
			"trigger_alert_id": alert.ID.String(),
		})
	if err != nil {
		return "", err
	}

	log.Printf("alert %q escalated incident %q to %s", alert.Name, incident.Title, newSeverity)
	return models.EventSeverityChanged, nil
}

func (c *Correlator) createIncident(ctx context.Context, alert *models.Alert) (*models.Incident, string, error) {
	startedAt := alert.StartsAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	incident := &models.Incident{
		Title:     incidentTitle(alert),
		Status:    models.IncidentOpen,
		Severity:  alert.Severity,
		Summary:   alert.Description,
		StartedAt: startedAt,
	}
	if err := c.incidents.Create(ctx, incident); err != nil {
		return nil, "", err
	}

	if err := c.alerts.SetIncident(ctx, alert.ID, incident.ID); err != nil {
		return nil, "", err
	}
	alert.IncidentID = &incident.ID

	actor := "system"
	err := c.incidents.AddEvent(ctx, incident.ID, models.EventIncidentCreated,
		fmt.Sprintf("Incident created from alert '%s'", alert.Name), &actor,
		map[string]any{
			"trigger_alert_id": alert.ID.String(),
			"alert_name":       alert.Name,
			"service":          alert.Service,
			"host":             alert.Host,
		})
	if err != nil {
		return nil, "", err
	}

	log.Printf("new incident %q (severity=%s)", incident.Title, incident.Severity)
	return incident, models.EventIncidentCreated, nil
}

// handleResolvedAlert auto-resolves an incident once its last unresolved
// member alert resolves.
func (c *Correlator) handleResolvedAlert(ctx context.Context, alert *models.Alert) (*models.Incident, error) {
	if alert.IncidentID == nil {
		return nil, nil
	}

	incident, err := c.incidents.GetByID(ctx, *alert.IncidentID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if incident.Status == models.IncidentResolved {
		return incident, nil
	}

	allResolved, err := c.alerts.AllResolvedInIncident(ctx, incident.ID)
	if err != nil {
		return nil, err
	}
	if !allResolved {
		return incident, nil
	}

	resolved, err := c.incidents.Resolve(ctx, incident.ID)
	if err != nil {
		return nil, err
	}

	actor := "system"
	err = c.incidents.AddEvent(ctx, incident.ID, models.EventIncidentAutoResolved,
		"All alerts resolved — incident auto-resolved", &actor,
		map[string]any{"resolved_alert_id": alert.ID.String()})
	if err != nil {
		return nil, err
	}

	log.Printf("incident %q auto-resolved", incident.Title)
	return resolved, nil
}

// incidentTitle builds a readable title from the triggering alert.
func incidentTitle(alert *models.Alert) string {
	if alert.Service != nil && *alert.Service != "" {
		return *alert.Service + " — " + alert.Name
	}
	return alert.Name
}
