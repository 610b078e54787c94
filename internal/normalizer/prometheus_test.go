package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/springdom/solace/internal/models"
)

const alertmanagerWebhook = `{
	"version": "4",
	"status": "firing",
	"receiver": "solace",
	"externalURL": "http://alertmanager.example.com",
	"alerts": [
		{
			"status": "firing",
			"labels": {
				"alertname": "HighErrorRate",
				"severity": "critical",
				"service": "checkout",
				"env": "prod",
				"instance": "web-01:9090",
				"shard": "3"
			},
			"annotations": {
				"description": "Error rate above 5% for 10 minutes",
				"runbook": "https://wiki/errors"
			},
			"startsAt": "2026-02-10T08:00:00Z",
			"endsAt": "0001-01-01T00:00:00Z",
			"generatorURL": "http://prometheus/graph?g0"
		},
		{
			"status": "resolved",
			"labels": {"alertname": "DiskFull", "severity": "warning", "node": "db-02"},
			"annotations": {"summary": "Disk usage back under threshold"},
			"startsAt": "2026-02-10T06:00:00Z",
			"endsAt": "2026-02-10T07:45:00Z"
		}
	]
}`

func TestPrometheusValidate(t *testing.T) {
	n := &PrometheusNormalizer{}

	if !n.Validate(json.RawMessage(alertmanagerWebhook)) {
		t.Fatal("valid Alertmanager payload rejected")
	}
	if n.Validate(json.RawMessage(`{"alerts": []}`)) {
		t.Fatal("payload with no alerts accepted")
	}
	if n.Validate(json.RawMessage(`{"alerts": [{"labels": {"severity": "high"}}]}`)) {
		t.Fatal("alert without alertname accepted")
	}
	if n.Validate(json.RawMessage(`not json`)) {
		t.Fatal("non-JSON accepted")
	}
}

func TestPrometheusNormalize(t *testing.T) {
	n := &PrometheusNormalizer{}
	alerts, err := n.Normalize(json.RawMessage(alertmanagerWebhook))
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}

	first := alerts[0]
	if first.Name != "HighErrorRate" {
		t.Errorf("Name = %q", first.Name)
	}
	if first.Source != "prometheus" {
		t.Errorf("Source = %q", first.Source)
	}
	if first.Severity != models.SeverityCritical {
		t.Errorf("Severity = %q", first.Severity)
	}
	if first.Status != models.AlertFiring {
		t.Errorf("Status = %q", first.Status)
	}
	if first.Service != "checkout" {
		t.Errorf("Service = %q", first.Service)
	}
	if first.Environment != "prod" {
		t.Errorf("Environment = %q", first.Environment)
	}
	if first.Host != "web-01" {
		t.Errorf("Host = %q (port should be stripped)", first.Host)
	}
	if first.Description != "Error rate above 5% for 10 minutes" {
		t.Errorf("Description = %q", first.Description)
	}
	if first.SourceInstance != "http://alertmanager.example.com" {
		t.Errorf("SourceInstance = %q", first.SourceInstance)
	}
	if first.StartsAt == nil {
		t.Error("StartsAt not parsed")
	}
	if first.EndsAt != nil {
		t.Error("zero endsAt should be nil")
	}

	// Extracted labels must not leak into the stored label set.
	for _, key := range []string{"alertname", "severity", "service", "env"} {
		if _, ok := first.Labels[key]; ok {
			t.Errorf("extracted label %q still present", key)
		}
	}
	if first.Labels["shard"] != "3" {
		t.Errorf("non-extracted label lost: %v", first.Labels)
	}

	second := alerts[1]
	if second.Status != models.AlertResolved {
		t.Errorf("second Status = %q", second.Status)
	}
	if second.Host != "db-02" {
		t.Errorf("second Host = %q", second.Host)
	}
	if second.EndsAt == nil {
		t.Error("resolved alert should carry endsAt")
	}
}

func TestLabelSeveritySynonyms(t *testing.T) {
	tests := []struct {
		labels map[string]string
		want   models.Severity
	}{
		{map[string]string{"severity": "page"}, models.SeverityCritical},
		{map[string]string{"severity": "major"}, models.SeverityHigh},
		{map[string]string{"priority": "warn"}, models.SeverityWarning},
		{map[string]string{"level": "informational"}, models.SeverityInfo},
		{map[string]string{"severity": "unheard-of"}, models.SeverityWarning},
		{map[string]string{}, models.SeverityWarning},
	}
	for _, tt := range tests {
		if got := labelSeverity(tt.labels); got != tt.want {
			t.Errorf("labelSeverity(%v) = %q, want %q", tt.labels, got, tt.want)
		}
	}
}
