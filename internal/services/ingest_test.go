package services

import (
	"testing"
	"time"

	"github.com/springdom/solace/internal/models"
	"github.com/springdom/solace/internal/normalizer"
)

func TestBuildAlertFirstReceipt(t *testing.T) {
	ing := &Ingestor{}
	started := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	alert := ing.buildAlert("ab12cd34ef56ab12", normalizer.NormalizedAlert{
		Name:     "HighErrorRate",
		Source:   "prometheus",
		Severity: models.SeverityCritical,
		Status:   models.AlertFiring,
		Service:  "checkout",
		StartsAt: &started,
	})

	if alert.DuplicateCount != 1 {
		t.Fatalf("DuplicateCount = %d, want 1", alert.DuplicateCount)
	}
	if alert.Fingerprint != "ab12cd34ef56ab12" {
		t.Fatalf("Fingerprint = %q", alert.Fingerprint)
	}
	if !alert.StartsAt.Equal(started) {
		t.Fatalf("StartsAt = %v, want %v", alert.StartsAt, started)
	}
	if alert.Service == nil || *alert.Service != "checkout" {
		t.Fatalf("Service = %v", alert.Service)
	}
	if alert.Description != nil {
		t.Fatalf("empty description should stay nil, got %q", *alert.Description)
	}
}

func TestBuildAlertResolvedOnArrival(t *testing.T) {
	ing := &Ingestor{}
	ended := time.Date(2026, 2, 1, 11, 0, 0, 0, time.UTC)

	alert := ing.buildAlert("ab12cd34ef56ab12", normalizer.NormalizedAlert{
		Name:   "DiskFull",
		Source: "prometheus",
		Status: models.AlertResolved,
		EndsAt: &ended,
	})

	if alert.ResolvedAt == nil || !alert.ResolvedAt.Equal(ended) {
		t.Fatalf("ResolvedAt = %v, want %v", alert.ResolvedAt, ended)
	}
	if alert.DuplicateCount != 1 {
		t.Fatalf("DuplicateCount = %d, want 1", alert.DuplicateCount)
	}
}
