package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/springdom/solace/internal/config"
	"github.com/springdom/solace/internal/models"
)

func testIncident(severity models.Severity, services ...string) *models.Incident {
	incident := &models.Incident{
		ID:       uuid.New(),
		Title:    "checkout — HighErrorRate",
		Status:   models.IncidentOpen,
		Severity: severity,
	}
	for _, svc := range services {
		s := svc
		incident.Alerts = append(incident.Alerts, models.Alert{
			ID:       uuid.New(),
			Name:     "HighErrorRate",
			Severity: severity,
			Status:   models.AlertFiring,
			Service:  &s,
		})
	}
	return incident
}

func TestMatchesFilters(t *testing.T) {
	incident := testIncident(models.SeverityCritical, "checkout", "billing")

	tests := []struct {
		name    string
		filters models.ChannelFilters
		want    bool
	}{
		{"no filters", models.ChannelFilters{}, true},
		{"severity match", models.ChannelFilters{Severity: []string{"critical"}}, true},
		{"severity miss", models.ChannelFilters{Severity: []string{"info"}}, false},
		{"service match", models.ChannelFilters{Service: []string{"billing"}}, true},
		{"service miss", models.ChannelFilters{Service: []string{"search"}}, false},
		{
			"both filters pass",
			models.ChannelFilters{Severity: []string{"critical", "high"}, Service: []string{"checkout"}},
			true,
		},
		{
			"severity passes but service fails",
			models.ChannelFilters{Severity: []string{"critical"}, Service: []string{"search"}},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel := &models.NotificationChannel{Filters: tt.filters}
			if got := matchesFilters(channel, incident); got != tt.want {
				t.Fatalf("matchesFilters() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIncidentServices(t *testing.T) {
	incident := testIncident(models.SeverityHigh, "zeta", "alpha", "zeta")

	services := incidentServices(incident)
	if len(services) != 2 || services[0] != "alpha" || services[1] != "zeta" {
		t.Fatalf("incidentServices() = %v, want [alpha zeta]", services)
	}

	if got := serviceText(incident); got != "alpha, zeta" {
		t.Fatalf("serviceText() = %q", got)
	}
	if got := serviceText(testIncident(models.SeverityHigh)); got != "unknown" {
		t.Fatalf("serviceText() with no services = %q, want unknown", got)
	}
}

func TestSeverityColor(t *testing.T) {
	if severityColor(models.SeverityCritical) != "#ef4444" {
		t.Fatal("wrong color for critical")
	}
	if severityColor(models.Severity("bogus")) != "#6b7280" {
		t.Fatal("unknown severities should use the neutral color")
	}
}

func TestEventLabel(t *testing.T) {
	if eventLabel("incident_created") != "New Incident" {
		t.Fatal("wrong label for incident_created")
	}
	if eventLabel("custom_thing") != "custom_thing" {
		t.Fatal("unknown event types should pass through")
	}
}

func TestPagerdutyEvent(t *testing.T) {
	n := &Notifier{cfg: config.Config{DashboardURL: "https://solace.example.com"}}
	incident := testIncident(models.SeverityCritical, "checkout")

	event := n.pagerdutyEvent(incident, "incident_created", "routing-123")
	if event["event_action"] != "trigger" {
		t.Fatalf("event_action = %v, want trigger", event["event_action"])
	}
	if event["routing_key"] != "routing-123" {
		t.Fatalf("routing_key = %v", event["routing_key"])
	}
	payload, ok := event["payload"].(map[string]any)
	if !ok {
		t.Fatal("trigger event missing payload")
	}
	if payload["severity"] != "critical" {
		t.Fatalf("payload severity = %v", payload["severity"])
	}
	summary, _ := payload["summary"].(string)
	if !strings.Contains(summary, "CRITICAL") || !strings.Contains(summary, incident.Title) {
		t.Fatalf("unexpected summary: %q", summary)
	}

	resolved := n.pagerdutyEvent(incident, "incident_resolved", "routing-123")
	if resolved["event_action"] != "resolve" {
		t.Fatalf("event_action = %v, want resolve", resolved["event_action"])
	}
	if _, hasPayload := resolved["payload"]; hasPayload {
		t.Fatal("resolve event should not carry a payload")
	}
	if resolved["dedup_key"] != event["dedup_key"] {
		t.Fatal("resolve must reuse the trigger dedup key")
	}
}

func TestWebhookPayload(t *testing.T) {
	n := &Notifier{cfg: config.Config{DashboardURL: "https://solace.example.com"}}
	incident := testIncident(models.SeverityHigh, "checkout")

	payload := n.webhookPayload(incident, "severity_changed")
	if payload["event_type"] != "severity_changed" {
		t.Fatalf("event_type = %v", payload["event_type"])
	}
	if payload["source"] != "solace" {
		t.Fatalf("source = %v", payload["source"])
	}
	inc, ok := payload["incident"].(map[string]any)
	if !ok {
		t.Fatal("missing incident object")
	}
	if inc["alert_count"] != 1 {
		t.Fatalf("alert_count = %v", inc["alert_count"])
	}
}

func TestWebhookPayloadCapsAlerts(t *testing.T) {
	n := &Notifier{cfg: config.Config{}}
	incident := testIncident(models.SeverityHigh)
	for i := 0; i < 30; i++ {
		incident.Alerts = append(incident.Alerts, models.Alert{ID: uuid.New(), Name: "A"})
	}

	payload := n.webhookPayload(incident, "incident_created")
	inc := payload["incident"].(map[string]any)
	alerts := inc["alerts"].([]map[string]any)
	if len(alerts) != 20 {
		t.Fatalf("expected alert list capped at 20, got %d", len(alerts))
	}
	if inc["alert_count"] != 30 {
		t.Fatalf("alert_count should report all alerts, got %v", inc["alert_count"])
	}
}

func TestEmailHTML(t *testing.T) {
	n := &Notifier{cfg: config.Config{DashboardURL: "https://solace.example.com"}}
	incident := testIncident(models.SeverityCritical, "checkout")

	subject, html := n.emailHTML(incident, "incident_created")
	if !strings.HasPrefix(subject, "[Solace] [CRITICAL] New Incident:") {
		t.Fatalf("unexpected subject: %q", subject)
	}
	if !strings.Contains(html, incident.Title) {
		t.Fatal("body missing incident title")
	}
	if !strings.Contains(html, "https://solace.example.com") {
		t.Fatal("body missing dashboard link")
	}
	if !strings.Contains(html, "Correlated Alerts") {
		t.Fatal("body missing alert table")
	}
}

func TestSlackMessage(t *testing.T) {
	n := &Notifier{cfg: config.Config{DashboardURL: "https://solace.example.com"}}
	incident := testIncident(models.SeverityHigh, "checkout")

	msg := n.slackMessage(incident, "incident_created")
	attachments := msg["attachments"].([]map[string]any)
	if len(attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(attachments))
	}
	if attachments[0]["color"] != "#f97316" {
		t.Fatalf("color = %v", attachments[0]["color"])
	}
}
