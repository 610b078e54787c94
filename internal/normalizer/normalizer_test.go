package normalizer

import (
	"testing"
	"time"
)

func TestGet(t *testing.T) {
	for _, provider := range []string{"generic", "prometheus", "grafana", "splunk", "email", "datadog"} {
		if _, err := Get(provider); err != nil {
			t.Errorf("Get(%q) failed: %v", provider, err)
		}
	}
	if _, err := Get("nagios"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestParseTimestamp(t *testing.T) {
	if got := parseTimestamp(""); got != nil {
		t.Fatalf("empty timestamp should be nil, got %v", got)
	}
	if got := parseTimestamp(zeroTime); got != nil {
		t.Fatalf("zero timestamp should be nil, got %v", got)
	}
	if got := parseTimestamp("not a time"); got != nil {
		t.Fatalf("garbage timestamp should be nil, got %v", got)
	}

	got := parseTimestamp("2026-03-01T12:30:00Z")
	if got == nil {
		t.Fatal("valid timestamp parsed as nil")
	}
	want := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("parseTimestamp() = %v, want %v", got, want)
	}
}
