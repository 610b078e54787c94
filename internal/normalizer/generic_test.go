package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/springdom/solace/internal/models"
)

func TestGenericValidate(t *testing.T) {
	n := &GenericNormalizer{}

	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{"minimal", `{"name": "Something broke"}`, true},
		{"full", `{"name": "X", "severity": "critical", "status": "firing"}`, true},
		{"missing name", `{"severity": "critical"}`, false},
		{"bad severity", `{"name": "X", "severity": "catastrophic"}`, false},
		{"bad status", `{"name": "X", "status": "pending"}`, false},
		{"resolved status", `{"name": "X", "status": "resolved"}`, true},
		{"not json", `[1, 2]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Validate(json.RawMessage(tt.payload)); got != tt.want {
				t.Fatalf("Validate(%s) = %v, want %v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestGenericNormalize(t *testing.T) {
	payload := `{
		"name": "Queue backlog",
		"source": "cron-watchdog",
		"severity": "high",
		"status": "firing",
		"description": "10k messages pending",
		"service": "billing",
		"environment": "prod",
		"host": "worker-03",
		"labels": {"queue": "invoices"},
		"tags": ["backlog"],
		"starts_at": "2026-02-10T08:00:00Z",
		"runbook_url": "https://wiki/backlog"
	}`

	n := &GenericNormalizer{}
	alerts, err := n.Normalize(json.RawMessage(payload))
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	alert := alerts[0]
	if alert.Name != "Queue backlog" {
		t.Errorf("Name = %q", alert.Name)
	}
	if alert.Source != "cron-watchdog" {
		t.Errorf("Source = %q", alert.Source)
	}
	if alert.Severity != models.SeverityHigh {
		t.Errorf("Severity = %q", alert.Severity)
	}
	if alert.Service != "billing" {
		t.Errorf("Service = %q", alert.Service)
	}
	if alert.RunbookURL != "https://wiki/backlog" {
		t.Errorf("RunbookURL = %q", alert.RunbookURL)
	}
	if alert.StartsAt == nil {
		t.Error("StartsAt not parsed")
	}
}

func TestGenericNormalizeDefaults(t *testing.T) {
	n := &GenericNormalizer{}
	alerts, err := n.Normalize(json.RawMessage(`{"name": "Bare"}`))
	if err != nil {
		t.Fatal(err)
	}

	alert := alerts[0]
	if alert.Source != "generic" {
		t.Errorf("default Source = %q", alert.Source)
	}
	if alert.Severity != models.SeverityWarning {
		t.Errorf("default Severity = %q", alert.Severity)
	}
	if alert.Status != models.AlertFiring {
		t.Errorf("default Status = %q", alert.Status)
	}
}
