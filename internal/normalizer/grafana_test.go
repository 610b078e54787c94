package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/springdom/solace/internal/models"
)

const grafanaWebhook = `{
	"receiver": "solace",
	"status": "firing",
	"state": "alerting",
	"title": "[FIRING:1] HighLatency",
	"message": "p99 latency above 2s",
	"externalURL": "http://grafana.example.com",
	"alerts": [
		{
			"status": "firing",
			"labels": {"alertname": "HighLatency", "severity": "high", "service": "api"},
			"annotations": {"summary": "p99 latency above 2s"},
			"startsAt": "2026-02-10T08:00:00Z",
			"endsAt": "0001-01-01T00:00:00Z",
			"dashboardURL": "http://grafana/d/abc",
			"panelURL": "http://grafana/d/abc?viewPanel=2",
			"valueString": "[ metric='p99' value=2.31 ]"
		}
	]
}`

func TestGrafanaValidate(t *testing.T) {
	n := &GrafanaNormalizer{}

	if !n.Validate(json.RawMessage(grafanaWebhook)) {
		t.Fatal("valid Grafana payload rejected")
	}

	// A plain Alertmanager payload has none of the Grafana markers.
	if n.Validate(json.RawMessage(alertmanagerWebhook)) {
		t.Fatal("plain Alertmanager payload accepted as Grafana")
	}
	if n.Validate(json.RawMessage(`{"alerts": []}`)) {
		t.Fatal("payload with no alerts accepted")
	}
}

func TestGrafanaNormalize(t *testing.T) {
	n := &GrafanaNormalizer{}
	alerts, err := n.Normalize(json.RawMessage(grafanaWebhook))
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	alert := alerts[0]
	if alert.Source != "grafana" {
		t.Errorf("Source = %q", alert.Source)
	}
	if alert.Severity != models.SeverityHigh {
		t.Errorf("Severity = %q", alert.Severity)
	}
	if alert.GeneratorURL != "http://grafana/d/abc" {
		t.Errorf("GeneratorURL = %q (dashboardURL should win)", alert.GeneratorURL)
	}
	if alert.Annotations["valueString"] != "[ metric='p99' value=2.31 ]" {
		t.Errorf("valueString not lifted into annotations: %v", alert.Annotations)
	}
}
