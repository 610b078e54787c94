package services

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/internal/config"
	"github.com/springdom/solace/internal/models"
	"github.com/springdom/solace/internal/normalizer"
	"github.com/springdom/solace/internal/repository"
)

// EventSink receives real-time events for connected dashboard clients.
type EventSink interface {
	Publish(eventType string, data map[string]any)
}

// NopSink drops events; used by workers and tests.
type NopSink struct{}

func (NopSink) Publish(string, map[string]any) {}

// IngestResult is the outcome of running one normalized alert through the
// pipeline.
type IngestResult struct {
	Alert       *models.Alert
	IsDuplicate bool
	Incident    *models.Incident
}

// Ingestor runs the alert pipeline: fingerprint, dedup, runbook attach,
// silence check, persist, correlate, notify.
type Ingestor struct {
	db          *repository.Database
	alerts      *repository.AlertRepository
	occurrences *repository.OccurrenceRepository
	silences    *repository.SilenceRepository
	runbooks    *repository.RunbookRepository
	correlator  *Correlator
	notifier    *Notifier
	sink        EventSink
	dedupWindow time.Duration
}

func NewIngestor(db *repository.Database, cfg config.Config, notifier *Notifier, sink EventSink) *Ingestor {
	if sink == nil {
		sink = NopSink{}
	}
	return &Ingestor{
		db:          db,
		alerts:      repository.NewAlertRepository(db),
		occurrences: repository.NewOccurrenceRepository(db),
		silences:    repository.NewSilenceRepository(db),
		runbooks:    repository.NewRunbookRepository(db),
		correlator:  NewCorrelator(db, time.Duration(cfg.CorrelationWindowSeconds)*time.Second),
		notifier:    notifier,
		sink:        sink,
		dedupWindow: time.Duration(cfg.DedupWindowSeconds) * time.Second,
	}
}

// Ingest runs one normalized alert through the pipeline. Persistence and
// correlation happen in a single transaction serialized per fingerprint, so
// concurrent deliveries of the same alert cannot both create a record.
// Notifications and sink events go out after commit.
func (i *Ingestor) Ingest(ctx context.Context, normalized normalizer.NormalizedAlert) (*IngestResult, error) {
	fingerprint := Fingerprint(normalized)

	var (
		result    IngestResult
		eventType string
	)
	err := i.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := repository.AdvisoryLock(ctx, tx, fingerprint); err != nil {
			return err
		}

		alerts := i.alerts.WithTx(tx)
		occurrences := i.occurrences.WithTx(tx)

		existing, err := alerts.FindDuplicate(ctx, fingerprint, i.dedupWindow)
		if err != nil {
			return err
		}
		if existing != nil {
			now := time.Now().UTC()
			updated, err := alerts.RecordDuplicate(ctx, existing.ID, now)
			if err != nil {
				return err
			}
			if err := occurrences.Create(ctx, updated.ID, now); err != nil {
				return err
			}
			log.Printf("duplicate alert: %s (fingerprint=%s, count=%d)",
				normalized.Name, fingerprint, updated.DuplicateCount)
			result = IngestResult{Alert: updated, IsDuplicate: true}
			return nil
		}

		alert := i.buildAlert(fingerprint, normalized)

		if alert.RunbookURL == nil {
			if url := i.resolveRunbook(ctx, tx, alert); url != "" {
				alert.RunbookURL = &url
				log.Printf("auto-attached runbook URL for alert %q: %s", alert.Name, url)
			}
		}

		silences, err := i.silences.WithTx(tx).ListCurrent(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		if silence := FindSilence(silences, alert); silence != nil {
			alert.Status = models.AlertSuppressed
			if err := alerts.Create(ctx, alert); err != nil {
				return err
			}
			log.Printf("alert suppressed by silence %q: %s (fingerprint=%s)",
				silence.Name, alert.Name, fingerprint)
			result = IngestResult{Alert: alert}
			return nil
		}

		if err := alerts.Create(ctx, alert); err != nil {
			return err
		}
		if err := occurrences.Create(ctx, alert.ID, alert.LastReceivedAt); err != nil {
			return err
		}

		incident, evt, err := i.correlator.WithTx(tx).Correlate(ctx, alert)
		if err != nil {
			return err
		}
		result = IngestResult{Alert: alert, Incident: incident}
		eventType = evt
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.IsDuplicate {
		i.sink.Publish("alert.updated", map[string]any{
			"alert_id":        result.Alert.ID.String(),
			"duplicate_count": result.Alert.DuplicateCount,
		})
		return &result, nil
	}
	if result.Alert.Status == models.AlertSuppressed {
		return &result, nil
	}

	if result.Incident != nil &&
		(eventType == models.EventIncidentCreated || eventType == models.EventSeverityChanged) {
		i.notifier.Dispatch(ctx, result.Incident, eventType)
	}

	i.sink.Publish("alert.created", map[string]any{
		"alert_id": result.Alert.ID.String(),
		"name":     result.Alert.Name,
	})
	switch {
	case result.Incident != nil && eventType == models.EventIncidentCreated:
		i.sink.Publish("incident.created", map[string]any{
			"incident_id": result.Incident.ID.String(),
			"title":       result.Incident.Title,
		})
	case result.Incident != nil && eventType == models.EventSeverityChanged:
		i.sink.Publish("incident.updated", map[string]any{
			"incident_id": result.Incident.ID.String(),
			"title":       result.Incident.Title,
		})
	}
	return &result, nil
}

func (i *Ingestor) buildAlert(fingerprint string, n normalizer.NormalizedAlert) *models.Alert {
	now := time.Now().UTC()
	startsAt := now
	if n.StartsAt != nil {
		startsAt = *n.StartsAt
	}

	alert := &models.Alert{
		Fingerprint:    fingerprint,
		Source:         n.Source,
		SourceInstance: optional(n.SourceInstance),
		Status:         n.Status,
		Severity:       n.Severity,
		Name:           n.Name,
		Description:    optional(n.Description),
		Service:        optional(n.Service),
		Environment:    optional(n.Environment),
		Host:           optional(n.Host),
		Labels:         n.Labels,
		Annotations:    n.Annotations,
		Tags:           n.Tags,
		RawPayload:     n.RawPayload,
		StartsAt:       startsAt,
		EndsAt:         n.EndsAt,
		LastReceivedAt: now,
		DuplicateCount: 1,
		GeneratorURL:   optional(n.GeneratorURL),
		RunbookURL:     optional(n.RunbookURL),
		TicketURL:      optional(n.TicketURL),
	}

	// Sources can deliver alerts that already resolved.
	if alert.Status == models.AlertResolved && alert.EndsAt != nil {
		alert.ResolvedAt = alert.EndsAt
	}
	return alert
}

func (i *Ingestor) resolveRunbook(ctx context.Context, tx pgx.Tx, alert *models.Alert) string {
	rules, err := i.runbooks.WithTx(tx).ListActive(ctx)
	if err != nil {
		log.Printf("loading runbook rules: %v", err)
		return ""
	}
	return ResolveRunbookURL(rules, alert)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
