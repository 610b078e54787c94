package services

import (
	"context"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/springdom/solace/internal/config"
	"github.com/springdom/solace/internal/models"
	"github.com/springdom/solace/internal/repository"
)

var severityColors = map[models.Severity]string{
	models.SeverityCritical: "#ef4444",
	models.SeverityHigh:     "#f97316",
	models.SeverityWarning:  "#eab308",
	models.SeverityLow:      "#3b82f6",
	models.SeverityInfo:     "#6b7280",
}

var eventLabels = map[string]string{
	"incident_created":  "New Incident",
	"severity_changed":  "Severity Escalated",
	"incident_resolved": "Incident Resolved",
}

var pagerdutySeverities = map[models.Severity]string{
	models.SeverityCritical: "critical",
	models.SeverityHigh:     "error",
	models.SeverityWarning:  "warning",
	models.SeverityLow:      "info",
	models.SeverityInfo:     "info",
}

func severityColor(s models.Severity) string {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return "#6b7280"
}

func eventLabel(eventType string) string {
	if l, ok := eventLabels[eventType]; ok {
		return l
	}
	return eventType
}

// Notifier fans incident events out to every matching active channel,
// recording each attempt in the notification log.
type Notifier struct {
	channels *repository.ChannelRepository
	logs     *repository.NotificationLogRepository
	alerts   *repository.AlertRepository
	cooldown Cooldown
	cfg      config.Config
	client   *http.Client
}

func NewNotifier(db *repository.Database, cooldown Cooldown, cfg config.Config) *Notifier {
	return &Notifier{
		channels: repository.NewChannelRepository(db),
		logs:     repository.NewNotificationLogRepository(db),
		alerts:   repository.NewAlertRepository(db),
		cooldown: cooldown,
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Dispatch sends the incident event to all active channels that pass their
// filters and the cooldown. Send failures are logged per channel, never
// returned: one broken channel must not block the others.
func (n *Notifier) Dispatch(ctx context.Context, incident *models.Incident, eventType string) {
	if incident.Alerts == nil {
		alerts, err := n.alerts.ListByIncident(ctx, incident.ID)
		if err != nil {
			log.Printf("notifier: loading incident alerts: %v", err)
			return
		}
		incident.Alerts = alerts
	}

	channels, err := n.channels.ListActive(ctx)
	if err != nil {
		log.Printf("notifier: listing channels: %v", err)
		return
	}

	for _, channel := range channels {
		if !matchesFilters(&channel, incident) {
			continue
		}

		allowed, err := n.cooldown.Allow(ctx, channel.ID, incident.ID)
		if err != nil {
			log.Printf("notifier: cooldown check failed for channel %q: %v", channel.Name, err)
			continue
		}
		if !allowed {
			continue
		}

		entry := &models.NotificationLog{
			ChannelID:  channel.ID,
			IncidentID: incident.ID,
			EventType:  eventType,
			Status:     models.NotificationPending,
		}
		if err := n.logs.Create(ctx, entry); err != nil {
			log.Printf("notifier: creating log entry: %v", err)
			continue
		}

		if err := n.send(ctx, &channel, incident, eventType); err != nil {
			if logErr := n.logs.MarkFailed(ctx, entry.ID, err.Error()); logErr != nil {
				log.Printf("notifier: marking log failed: %v", logErr)
			}
			log.Printf("notification failed: channel=%s incident=%s error=%v",
				channel.Name, incident.Title, err)
			continue
		}

		if err := n.logs.MarkSent(ctx, entry.ID); err != nil {
			log.Printf("notifier: marking log sent: %v", err)
		}
		log.Printf("notification sent: channel=%s incident=%s event=%s",
			channel.Name, incident.Title, eventType)
	}
}

// SendTest delivers a test notification through the channel, skipping
// filters, cooldown, and the notification log.
func (n *Notifier) SendTest(ctx context.Context, channel *models.NotificationChannel, incident *models.Incident) error {
	if incident.Alerts == nil {
		alerts, err := n.alerts.ListByIncident(ctx, incident.ID)
		if err != nil {
			return err
		}
		incident.Alerts = alerts
	}
	return n.send(ctx, channel, incident, models.EventIncidentCreated)
}

func (n *Notifier) send(ctx context.Context, channel *models.NotificationChannel, incident *models.Incident, eventType string) error {
	switch channel.ChannelType {
	case models.ChannelSlack:
		return n.sendSlack(ctx, channel, incident, eventType)
	case models.ChannelTeams:
		return n.sendTeams(ctx, channel, incident, eventType)
	case models.ChannelWebhook:
		return n.sendWebhook(ctx, channel, incident, eventType)
	case models.ChannelPagerDuty:
		return n.sendPagerDuty(ctx, channel, incident, eventType)
	case models.ChannelEmail:
		return n.sendEmail(channel, incident, eventType)
	}
	return errUnknownChannelType(channel.ChannelType)
}

// matchesFilters checks the channel's severity and service filters against
// the incident. The service filter passes when any member alert's service
// is listed.
func matchesFilters(channel *models.NotificationChannel, incident *models.Incident) bool {
	if len(channel.Filters.Severity) > 0 &&
		!containsString(channel.Filters.Severity, string(incident.Severity)) {
		return false
	}

	if len(channel.Filters.Service) > 0 {
		matched := false
		for _, service := range incidentServices(incident) {
			if containsString(channel.Filters.Service, service) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// incidentServices returns the distinct services of member alerts, sorted.
func incidentServices(incident *models.Incident) []string {
	seen := map[string]bool{}
	for _, alert := range incident.Alerts {
		if alert.Service != nil && *alert.Service != "" {
			seen[*alert.Service] = true
		}
	}
	services := make([]string, 0, len(seen))
	for service := range seen {
		services = append(services, service)
	}
	sort.Strings(services)
	return services
}

func serviceText(incident *models.Incident) string {
	services := incidentServices(incident)
	if len(services) == 0 {
		return "unknown"
	}
	text := services[0]
	for _, s := range services[1:] {
		text += ", " + s
	}
	return text
}
