package normalizer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/springdom/solace/internal/models"
)

// Splunk has no standard severity field; saved searches use various names.
// Checked in priority order.
var splunkSeverityKeys = []string{
	"severity", "priority", "urgency", "level",
	"alert_severity", "risk_level", "risk_score",
}

var splunkSeverityMap = map[string]models.Severity{
	"critical":      models.SeverityCritical,
	"crit":          models.SeverityCritical,
	"urgent":        models.SeverityCritical,
	"high":          models.SeverityHigh,
	"major":         models.SeverityHigh,
	"medium":        models.SeverityWarning,
	"warning":       models.SeverityWarning,
	"warn":          models.SeverityWarning,
	"low":           models.SeverityLow,
	"minor":         models.SeverityLow,
	"info":          models.SeverityInfo,
	"informational": models.SeverityInfo,
	"5":             models.SeverityCritical,
	"4":             models.SeverityHigh,
	"3":             models.SeverityWarning,
	"2":             models.SeverityLow,
	"1":             models.SeverityInfo,
}

var splunkHostKeys = []string{
	"host", "hostname", "src_host", "dest", "dest_host",
	"dvc", "dvc_host", "computer", "node", "instance",
	"ComputerName", "server", "src", "src_ip",
}

var splunkServiceKeys = []string{
	"service", "app", "application", "service_name",
	"sourcetype", "index", "source_app",
}

var splunkEnvKeys = []string{
	"environment", "env", "tier", "stage", "datacenter", "dc", "region",
}

var splunkDescriptionKeys = []string{
	"message", "msg", "description", "summary", "reason",
	"details", "alert_message", "comment", "latest_error", "_raw",
}

func firstResultField(result map[string]string, keys []string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(result[key]); v != "" {
			return v
		}
	}
	return ""
}

func splunkSeverity(result map[string]string) models.Severity {
	raw := firstResultField(result, splunkSeverityKeys)
	if raw == "" {
		return models.SeverityWarning
	}
	if sev, ok := splunkSeverityMap[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return sev
	}
	if score, err := strconv.ParseFloat(raw, 64); err == nil {
		switch {
		case score >= 80:
			return models.SeverityCritical
		case score >= 60:
			return models.SeverityHigh
		case score >= 40:
			return models.SeverityWarning
		case score >= 20:
			return models.SeverityLow
		default:
			return models.SeverityInfo
		}
	}
	return models.SeverityWarning
}

// splunkLabels builds a clean label set from result fields that were not
// lifted into structured fields. Underscore-prefixed internal fields are
// never included.
func splunkLabels(result map[string]string, extracted map[string]struct{}) map[string]string {
	labels := map[string]string{}
	for k, v := range result {
		if _, done := extracted[k]; done {
			continue
		}
		if strings.HasPrefix(k, "_") {
			continue
		}
		if strings.TrimSpace(v) == "" {
			continue
		}
		labels[k] = v
	}
	return labels
}

func splunkExtractedKeys(result map[string]string, keyLists ...[]string) map[string]struct{} {
	extracted := map[string]struct{}{}
	for _, keys := range keyLists {
		for _, key := range keys {
			if _, ok := result[key]; ok {
				extracted[key] = struct{}{}
			}
		}
	}
	return extracted
}

type splunkPayload struct {
	Result      map[string]json.RawMessage `json:"result"`
	SID         string                     `json:"sid"`
	ResultsLink string                     `json:"results_link"`
	SearchName  string                     `json:"search_name"`
	Owner       string                     `json:"owner"`
	App         string                     `json:"app"`
}

// SplunkNormalizer handles saved-search webhook alert actions. The payload
// carries only the first result row, and field names depend entirely on
// the SPL query, so extraction is heuristic over common naming patterns.
type SplunkNormalizer struct{}

func (n *SplunkNormalizer) Validate(payload json.RawMessage) bool {
	var probe struct {
		SID    *string                    `json:"sid"`
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}
	return probe.SID != nil && probe.Result != nil
}

func (n *SplunkNormalizer) Normalize(payload json.RawMessage) ([]NormalizedAlert, error) {
	var p splunkPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	result := make(map[string]string, len(p.Result))
	for k, raw := range p.Result {
		result[k] = rawScalar(raw)
	}

	name := p.SearchName
	if name == "" {
		if p.SID != "" {
			sid := p.SID
			if len(sid) > 20 {
				sid = sid[:20]
			}
			name = fmt.Sprintf("Splunk Alert (%s...)", sid)
		} else {
			name = "Splunk Alert"
		}
	}

	extracted := splunkExtractedKeys(result,
		splunkSeverityKeys, splunkHostKeys, splunkServiceKeys,
		splunkEnvKeys, splunkDescriptionKeys)
	labels := splunkLabels(result, extracted)
	if p.Owner != "" {
		labels["splunk_owner"] = p.Owner
	}
	if p.App != "" {
		labels["splunk_app"] = p.App
	}
	if p.SID != "" {
		labels["splunk_sid"] = p.SID
	}

	annotations := map[string]string{}
	if p.ResultsLink != "" {
		annotations["results_link"] = p.ResultsLink
	}

	// Splunk webhooks only fire on trigger; there is no resolve event.
	return []NormalizedAlert{{
		Name:           name,
		Source:         "splunk",
		SourceInstance: p.ResultsLink,
		Severity:       splunkSeverity(result),
		Status:         models.AlertFiring,
		Description:    firstResultField(result, splunkDescriptionKeys),
		Service:        firstResultField(result, splunkServiceKeys),
		Environment:    firstResultField(result, splunkEnvKeys),
		Host:           firstResultField(result, splunkHostKeys),
		Labels:         labels,
		Annotations:    annotations,
		GeneratorURL:   p.ResultsLink,
		RawPayload:     payload,
	}}, nil
}
