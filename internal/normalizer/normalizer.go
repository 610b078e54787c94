// Package normalizer transforms provider-specific webhook payloads into
// the internal alert shape. Each provider has a Normalizer that validates
// the payload shape and produces one or more NormalizedAlerts.
package normalizer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/springdom/solace/internal/models"
)

// NormalizedAlert is the transient common format all normalizers produce.
// Empty strings mean "absent" for the optional string fields.
type NormalizedAlert struct {
	Name           string
	Source         string
	Severity       models.Severity
	Status         models.AlertStatus
	Description    string
	Service        string
	Environment    string
	Host           string
	Labels         map[string]string
	Annotations    map[string]string
	Tags           []string
	SourceInstance string
	StartsAt       *time.Time
	EndsAt         *time.Time
	GeneratorURL   string
	RunbookURL     string
	TicketURL      string
	RawPayload     json.RawMessage
}

// Normalizer parses one provider's payloads.
//
// Validate is a cheap shape check that disambiguates providers and never
// mutates state. Normalize must not fail on any payload a real provider
// could send: unparseable timestamps and missing optional fields degrade
// to their zero values.
type Normalizer interface {
	Validate(payload json.RawMessage) bool
	Normalize(payload json.RawMessage) ([]NormalizedAlert, error)
}

var registry = map[string]Normalizer{
	"generic":    &GenericNormalizer{},
	"prometheus": &PrometheusNormalizer{},
	"grafana":    &GrafanaNormalizer{},
	"splunk":     &SplunkNormalizer{},
	"email":      &EmailNormalizer{},
	"datadog":    &DatadogNormalizer{},
}

// Get resolves a provider identifier to its normalizer.
func Get(provider string) (Normalizer, error) {
	n, ok := registry[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	return n, nil
}

// Providers lists the registered provider identifiers.
func Providers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// zeroTime is how Prometheus and Grafana encode "not resolved".
const zeroTime = "0001-01-01T00:00:00Z"

// parseTimestamp parses an RFC 3339 timestamp, treating zero and
// unparseable values as absent.
func parseTimestamp(ts string) *time.Time {
	if ts == "" || ts == zeroTime {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil
	}
	return &t
}
