package normalizer

import (
	"encoding/json"
	"strings"

	"github.com/springdom/solace/internal/models"
)

// Severity labels are not standardized across Prometheus setups; map the
// common synonyms onto the canonical set.
var promSeverityMap = map[string]models.Severity{
	"critical":      models.SeverityCritical,
	"error":         models.SeverityCritical,
	"page":          models.SeverityCritical,
	"high":          models.SeverityHigh,
	"major":         models.SeverityHigh,
	"warning":       models.SeverityWarning,
	"warn":          models.SeverityWarning,
	"ticket":        models.SeverityWarning,
	"low":           models.SeverityLow,
	"minor":         models.SeverityLow,
	"info":          models.SeverityInfo,
	"informational": models.SeverityInfo,
	"none":          models.SeverityInfo,
}

var severityLabelKeys = []string{"severity", "priority", "level"}

var serviceLabelKeys = []string{"service", "app", "application", "job", "namespace"}

var environmentLabelKeys = []string{"environment", "env", "tier", "stage"}

// Label keys lifted into structured fields; removed from the stored labels
// to avoid duplication.
var extractedLabelKeys = map[string]struct{}{
	"alertname": {}, "severity": {}, "priority": {}, "level": {},
	"service": {}, "app": {}, "application": {},
	"environment": {}, "env": {}, "tier": {}, "stage": {},
}

func labelSeverity(labels map[string]string) models.Severity {
	for _, key := range severityLabelKeys {
		value := strings.ToLower(strings.TrimSpace(labels[key]))
		if sev, ok := promSeverityMap[value]; ok {
			return sev
		}
	}
	return models.SeverityWarning
}

func labelService(labels map[string]string) string {
	for _, key := range serviceLabelKeys {
		if v, ok := labels[key]; ok {
			return v
		}
	}
	return ""
}

func labelHost(labels map[string]string) string {
	if instance := labels["instance"]; instance != "" {
		// Strip port, e.g. "web-01:9090" becomes "web-01".
		if idx := strings.Index(instance, ":"); idx >= 0 {
			return instance[:idx]
		}
		return instance
	}
	if node := labels["node"]; node != "" {
		return node
	}
	return labels["host"]
}

func labelEnvironment(labels map[string]string) string {
	for _, key := range environmentLabelKeys {
		if v, ok := labels[key]; ok {
			return v
		}
	}
	return ""
}

func cleanLabels(labels map[string]string) map[string]string {
	clean := make(map[string]string, len(labels))
	for k, v := range labels {
		if _, extracted := extractedLabelKeys[k]; !extracted {
			clean[k] = v
		}
	}
	return clean
}

func annotationDescription(annotations map[string]string) string {
	for _, key := range []string{"description", "summary", "message"} {
		if v := annotations[key]; v != "" {
			return v
		}
	}
	return ""
}

// alertmanagerAlert is one entry of the shared alerts[] array used by both
// Prometheus Alertmanager and Grafana Unified Alerting webhooks.
type alertmanagerAlert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     string            `json:"startsAt"`
	EndsAt       string            `json:"endsAt"`
	GeneratorURL string            `json:"generatorURL"`
	Fingerprint  string            `json:"fingerprint"`

	// Grafana-only fields, used for provider disambiguation.
	DashboardURL string `json:"dashboardURL"`
	PanelURL     string `json:"panelURL"`
	SilenceURL   string `json:"silenceURL"`
	ValueString  string `json:"valueString"`
}

type alertmanagerPayload struct {
	Version     string              `json:"version"`
	Status      string              `json:"status"`
	Receiver    string              `json:"receiver"`
	ExternalURL string              `json:"externalURL"`
	Alerts      []alertmanagerAlert `json:"alerts"`

	// Grafana-only top-level fields.
	State   string `json:"state"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// PrometheusNormalizer handles the Alertmanager v4 webhook format. One
// webhook can carry multiple alerts grouped by Alertmanager's group_by.
type PrometheusNormalizer struct{}

func (n *PrometheusNormalizer) Validate(payload json.RawMessage) bool {
	var p alertmanagerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return false
	}
	if len(p.Alerts) == 0 {
		return false
	}
	for _, alert := range p.Alerts {
		if alert.Labels["alertname"] == "" {
			return false
		}
	}
	return true
}

func (n *PrometheusNormalizer) Normalize(payload json.RawMessage) ([]NormalizedAlert, error) {
	var p alertmanagerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	normalized := make([]NormalizedAlert, 0, len(p.Alerts))
	for _, alert := range p.Alerts {
		raw, _ := json.Marshal(alert)

		status := models.AlertResolved
		if alert.Status == "firing" {
			status = models.AlertFiring
		}

		normalized = append(normalized, NormalizedAlert{
			Name:           alert.Labels["alertname"],
			Source:         "prometheus",
			SourceInstance: p.ExternalURL,
			Severity:       labelSeverity(alert.Labels),
			Status:         status,
			Description:    annotationDescription(alert.Annotations),
			Service:        labelService(alert.Labels),
			Environment:    labelEnvironment(alert.Labels),
			Host:           labelHost(alert.Labels),
			Labels:         cleanLabels(alert.Labels),
			Annotations:    copyMap(alert.Annotations),
			StartsAt:       parseTimestamp(alert.StartsAt),
			EndsAt:         parseTimestamp(alert.EndsAt),
			GeneratorURL:   alert.GeneratorURL,
			RawPayload:     raw,
		})
	}
	return normalized, nil
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
