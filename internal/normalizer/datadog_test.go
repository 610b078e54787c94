package normalizer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/springdom/solace/internal/models"
)

const datadogWebhook = `{
	"id": "123456",
	"title": "[Triggered] High CPU on web-01",
	"text": "CPU usage above 90% for 15 minutes",
	"date": 1770000000,
	"alert_id": 789,
	"alert_type": "error",
	"alert_transition": "Triggered",
	"event_type": "metric_alert_monitor",
	"hostname": "web-01",
	"priority": "P2",
	"tags": "service:checkout,env:prod,team:payments,standalone",
	"org": {"id": "11", "name": "acme"},
	"url": "https://app.datadoghq.com/event/123456"
}`

func TestDatadogValidate(t *testing.T) {
	n := &DatadogNormalizer{}

	if !n.Validate(json.RawMessage(datadogWebhook)) {
		t.Fatal("valid Datadog payload rejected")
	}
	if n.Validate(json.RawMessage(`{"title": "x"}`)) {
		t.Fatal("payload without transition or type accepted")
	}
	if n.Validate(json.RawMessage(`{"alert_type": "error"}`)) {
		t.Fatal("payload without title accepted")
	}
}

func TestDatadogNormalize(t *testing.T) {
	n := &DatadogNormalizer{}
	alerts, err := n.Normalize(json.RawMessage(datadogWebhook))
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	alert := alerts[0]
	if alert.Name != "High CPU on web-01" {
		t.Errorf("Name = %q (transition prefix should be stripped)", alert.Name)
	}
	if alert.Source != "datadog" {
		t.Errorf("Source = %q", alert.Source)
	}
	if alert.Severity != models.SeverityHigh {
		t.Errorf("Severity = %q (P2 maps to high)", alert.Severity)
	}
	if alert.Status != models.AlertFiring {
		t.Errorf("Status = %q", alert.Status)
	}
	if alert.Service != "checkout" {
		t.Errorf("Service = %q", alert.Service)
	}
	if alert.Environment != "prod" {
		t.Errorf("Environment = %q", alert.Environment)
	}
	if alert.Host != "web-01" {
		t.Errorf("Host = %q", alert.Host)
	}
	if alert.Labels["team"] != "payments" {
		t.Errorf("tag labels = %v", alert.Labels)
	}
	if _, ok := alert.Labels["standalone"]; !ok {
		t.Error("valueless tag dropped")
	}
	if alert.Labels["datadog_alert_id"] != "789" {
		t.Errorf("datadog_alert_id = %q", alert.Labels["datadog_alert_id"])
	}
	if alert.StartsAt == nil || !alert.StartsAt.Equal(time.Unix(1770000000, 0)) {
		t.Errorf("StartsAt = %v", alert.StartsAt)
	}
}

func TestDatadogRecovered(t *testing.T) {
	payload := `{"title": "[Recovered] High CPU", "alert_transition": "Recovered", "alert_type": "success"}`
	n := &DatadogNormalizer{}
	alerts, err := n.Normalize(json.RawMessage(payload))
	if err != nil {
		t.Fatal(err)
	}
	if alerts[0].Status != models.AlertResolved {
		t.Fatalf("Status = %q, want resolved", alerts[0].Status)
	}
	if alerts[0].Name != "High CPU" {
		t.Fatalf("Name = %q", alerts[0].Name)
	}
}

func TestDDSeverityFallbacks(t *testing.T) {
	tests := []struct {
		priority, alertType string
		want                models.Severity
	}{
		{"P1", "", models.SeverityCritical},
		{"p5", "error", models.SeverityInfo},
		{"", "error", models.SeverityCritical},
		{"", "warning", models.SeverityWarning},
		{"", "", models.SeverityWarning},
	}
	for _, tt := range tests {
		if got := ddSeverity(tt.priority, tt.alertType); got != tt.want {
			t.Errorf("ddSeverity(%q, %q) = %q, want %q", tt.priority, tt.alertType, got, tt.want)
		}
	}
}

func TestParseDatadogTags(t *testing.T) {
	tags := parseDatadogTags(" service:api , env:prod,flag, key : spaced ")
	if tags["service"] != "api" || tags["env"] != "prod" {
		t.Fatalf("tags = %v", tags)
	}
	if _, ok := tags["flag"]; !ok {
		t.Fatalf("valueless tag missing: %v", tags)
	}
	if tags["key"] != "spaced" {
		t.Fatalf("whitespace not trimmed: %v", tags)
	}
	if len(parseDatadogTags("")) != 0 {
		t.Fatal("empty tag string should produce no tags")
	}
}
