package normalizer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/springdom/solace/internal/models"
)

const splunkWebhook = `{
	"sid": "scheduler__admin__search__RMD5abc123_at_1770000000_1234",
	"search_name": "Errors in checkout logs",
	"owner": "admin",
	"app": "search",
	"results_link": "http://splunk.example.com/app/search/@go?sid=abc",
	"result": {
		"host": "web-01",
		"service": "checkout",
		"env": "prod",
		"severity": "high",
		"message": "NullPointerException in OrderService",
		"count": 42,
		"_raw": "2026-02-10 08:00:00 ERROR ...",
		"empty_field": ""
	}
}`

func TestSplunkValidate(t *testing.T) {
	n := &SplunkNormalizer{}

	if !n.Validate(json.RawMessage(splunkWebhook)) {
		t.Fatal("valid Splunk payload rejected")
	}
	if n.Validate(json.RawMessage(`{"sid": "x"}`)) {
		t.Fatal("payload without result accepted")
	}
	if n.Validate(json.RawMessage(`{"result": {}}`)) {
		t.Fatal("payload without sid accepted")
	}
}

func TestSplunkNormalize(t *testing.T) {
	n := &SplunkNormalizer{}
	alerts, err := n.Normalize(json.RawMessage(splunkWebhook))
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	alert := alerts[0]
	if alert.Name != "Errors in checkout logs" {
		t.Errorf("Name = %q", alert.Name)
	}
	if alert.Source != "splunk" {
		t.Errorf("Source = %q", alert.Source)
	}
	if alert.Severity != models.SeverityHigh {
		t.Errorf("Severity = %q", alert.Severity)
	}
	if alert.Status != models.AlertFiring {
		t.Errorf("Status = %q (Splunk webhooks always fire)", alert.Status)
	}
	if alert.Host != "web-01" {
		t.Errorf("Host = %q", alert.Host)
	}
	if alert.Service != "checkout" {
		t.Errorf("Service = %q", alert.Service)
	}
	if alert.Description != "NullPointerException in OrderService" {
		t.Errorf("Description = %q", alert.Description)
	}

	// Numeric result fields survive as labels; internal and extracted
	// fields do not.
	if alert.Labels["count"] != "42" {
		t.Errorf("count label = %q", alert.Labels["count"])
	}
	if _, ok := alert.Labels["_raw"]; ok {
		t.Error("underscore-prefixed field leaked into labels")
	}
	if _, ok := alert.Labels["host"]; ok {
		t.Error("extracted field leaked into labels")
	}
	if _, ok := alert.Labels["empty_field"]; ok {
		t.Error("empty field leaked into labels")
	}
	if alert.Labels["splunk_owner"] != "admin" {
		t.Errorf("splunk_owner = %q", alert.Labels["splunk_owner"])
	}
}

func TestSplunkNameFallback(t *testing.T) {
	n := &SplunkNormalizer{}

	alerts, err := n.Normalize(json.RawMessage(`{"sid": "scheduler__admin__search__12345", "result": {}}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(alerts[0].Name, "Splunk Alert (") {
		t.Fatalf("Name = %q", alerts[0].Name)
	}

	alerts, err = n.Normalize(json.RawMessage(`{"result": {}}`))
	if err != nil {
		t.Fatal(err)
	}
	if alerts[0].Name != "Splunk Alert" {
		t.Fatalf("Name = %q", alerts[0].Name)
	}
}

func TestSplunkSeverity(t *testing.T) {
	tests := []struct {
		result map[string]string
		want   models.Severity
	}{
		{map[string]string{"severity": "critical"}, models.SeverityCritical},
		{map[string]string{"urgency": "urgent"}, models.SeverityCritical},
		{map[string]string{"priority": "5"}, models.SeverityCritical},
		{map[string]string{"risk_score": "85"}, models.SeverityCritical},
		{map[string]string{"risk_score": "65"}, models.SeverityHigh},
		{map[string]string{"risk_score": "45"}, models.SeverityWarning},
		{map[string]string{"risk_score": "25"}, models.SeverityLow},
		{map[string]string{"risk_score": "10"}, models.SeverityInfo},
		{map[string]string{"severity": "whatever"}, models.SeverityWarning},
		{map[string]string{}, models.SeverityWarning},
	}
	for _, tt := range tests {
		if got := splunkSeverity(tt.result); got != tt.want {
			t.Errorf("splunkSeverity(%v) = %q, want %q", tt.result, got, tt.want)
		}
	}
}
