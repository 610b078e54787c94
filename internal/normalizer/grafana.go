package normalizer

import (
	"encoding/json"

	"github.com/springdom/solace/internal/models"
)

// GrafanaNormalizer handles the Unified Alerting webhook format. It shares
// the alerts[] base structure with Prometheus; Grafana payloads are told
// apart by dashboardURL/panelURL/silenceURL/valueString on an alert or by
// top-level state/title/message.
type GrafanaNormalizer struct{}

func (n *GrafanaNormalizer) Validate(payload json.RawMessage) bool {
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

	if p.State != "" || p.Title != "" || p.Message != "" {
		return true
	}
	for _, alert := range p.Alerts {
		if alert.DashboardURL != "" || alert.PanelURL != "" || alert.SilenceURL != "" || alert.ValueString != "" {
			return true
		}
	}
	return false
}

func (n *GrafanaNormalizer) Normalize(payload json.RawMessage) ([]NormalizedAlert, error) {
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

		generatorURL := alert.DashboardURL
		if generatorURL == "" {
			generatorURL = alert.PanelURL
		}
		if generatorURL == "" {
			generatorURL = alert.GeneratorURL
		}

		annotations := copyMap(alert.Annotations)
		if alert.ValueString != "" {
			annotations["valueString"] = alert.ValueString
		}

		normalized = append(normalized, NormalizedAlert{
			Name:           alert.Labels["alertname"],
			Source:         "grafana",
			SourceInstance: p.ExternalURL,
			Severity:       labelSeverity(alert.Labels),
			Status:         status,
			Description:    annotationDescription(alert.Annotations),
			Service:        labelService(alert.Labels),
			Environment:    labelEnvironment(alert.Labels),
			Host:           labelHost(alert.Labels),
			Labels:         cleanLabels(alert.Labels),
			Annotations:    annotations,
			StartsAt:       parseTimestamp(alert.StartsAt),
			EndsAt:         parseTimestamp(alert.EndsAt),
			GeneratorURL:   generatorURL,
			RawPayload:     raw,
		})
	}
	return normalized, nil
}
