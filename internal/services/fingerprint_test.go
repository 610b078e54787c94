package services

import (
	"testing"

	"github.com/springdom/solace/internal/normalizer"
)

func TestFingerprintStable(t *testing.T) {
	alert := normalizer.NormalizedAlert{
		Name:    "HighErrorRate",
		Source:  "prometheus",
		Service: "checkout",
		Host:    "web-01",
		Labels:  map[string]string{"team": "payments", "region": "us-east-1"},
	}

	first := Fingerprint(alert)
	second := Fingerprint(alert)
	if first != second {
		t.Fatalf("fingerprint not deterministic: %s != %s", first, second)
	}
	if len(first) != 16 {
		t.Fatalf("expected 16-char fingerprint, got %d chars: %s", len(first), first)
	}
}

func TestFingerprintIgnoresVolatileLabels(t *testing.T) {
	base := normalizer.NormalizedAlert{
		Name:    "HighErrorRate",
		Source:  "prometheus",
		Service: "checkout",
		Labels:  map[string]string{"team": "payments"},
	}
	noisy := base
	noisy.Labels = map[string]string{
		"team":      "payments",
		"timestamp": "2026-01-02T03:04:05Z",
		"value":     "97.2",
		"summary":   "it broke again",
	}

	if Fingerprint(base) != Fingerprint(noisy) {
		t.Fatal("volatile labels changed the fingerprint")
	}
}

func TestFingerprintDistinguishesIdentity(t *testing.T) {
	base := normalizer.NormalizedAlert{
		Name:    "HighErrorRate",
		Source:  "prometheus",
		Service: "checkout",
		Host:    "web-01",
	}

	tests := []struct {
		name   string
		mutate func(a *normalizer.NormalizedAlert)
	}{
		{"different name", func(a *normalizer.NormalizedAlert) { a.Name = "HighLatency" }},
		{"different source", func(a *normalizer.NormalizedAlert) { a.Source = "grafana" }},
		{"different service", func(a *normalizer.NormalizedAlert) { a.Service = "billing" }},
		{"different host", func(a *normalizer.NormalizedAlert) { a.Host = "web-02" }},
		{"extra stable label", func(a *normalizer.NormalizedAlert) {
			a.Labels = map[string]string{"shard": "7"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			tt.mutate(&other)
			if Fingerprint(base) == Fingerprint(other) {
				t.Fatal("expected different fingerprints")
			}
		})
	}
}
