package services

import (
	"testing"

	"github.com/springdom/solace/internal/models"
)

func strPtr(s string) *string { return &s }

func TestMatchesSilence(t *testing.T) {
	alert := &models.Alert{
		Name:     "DiskFull",
		Service:  strPtr("storage"),
		Severity: models.SeverityHigh,
		Labels:   map[string]string{"env": "prod", "team": "infra"},
	}

	tests := []struct {
		name     string
		matchers models.SilenceMatchers
		want     bool
	}{
		{"empty matchers match everything", models.SilenceMatchers{}, true},
		{"service match", models.SilenceMatchers{Service: []string{"storage"}}, true},
		{"service miss", models.SilenceMatchers{Service: []string{"compute"}}, false},
		{"service list match", models.SilenceMatchers{Service: []string{"compute", "storage"}}, true},
		{"severity match", models.SilenceMatchers{Severity: []string{"high"}}, true},
		{"severity miss", models.SilenceMatchers{Severity: []string{"critical"}}, false},
		{"label match", models.SilenceMatchers{Labels: map[string]string{"env": "prod"}}, true},
		{"label miss", models.SilenceMatchers{Labels: map[string]string{"env": "staging"}}, false},
		{"missing label key", models.SilenceMatchers{Labels: map[string]string{"cluster": "a"}}, false},
		{
			"all clauses must match",
			models.SilenceMatchers{
				Service:  []string{"storage"},
				Severity: []string{"high"},
				Labels:   map[string]string{"team": "infra"},
			},
			true,
		},
		{
			"one failing clause fails the silence",
			models.SilenceMatchers{
				Service:  []string{"storage"},
				Severity: []string{"low"},
			},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesSilence(tt.matchers, alert); got != tt.want {
				t.Fatalf("MatchesSilence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesSilenceNilService(t *testing.T) {
	alert := &models.Alert{Name: "Orphan", Severity: models.SeverityWarning}
	if MatchesSilence(models.SilenceMatchers{Service: []string{"storage"}}, alert) {
		t.Fatal("alert without service matched a service clause")
	}
	if !MatchesSilence(models.SilenceMatchers{Service: []string{""}}, alert) {
		t.Fatal("empty-string service clause should match an alert without service")
	}
}

func TestFindSilence(t *testing.T) {
	alert := &models.Alert{
		Name:     "DiskFull",
		Service:  strPtr("storage"),
		Severity: models.SeverityHigh,
	}
	silences := []models.SilenceWindow{
		{Name: "compute only", Matchers: models.SilenceMatchers{Service: []string{"compute"}}},
		{Name: "storage", Matchers: models.SilenceMatchers{Service: []string{"storage"}}},
		{Name: "catch-all", Matchers: models.SilenceMatchers{}},
	}

	got := FindSilence(silences, alert)
	if got == nil || got.Name != "storage" {
		t.Fatalf("expected first matching silence %q, got %+v", "storage", got)
	}

	if FindSilence(nil, alert) != nil {
		t.Fatal("expected nil for empty silence list")
	}
}
