package normalizer

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/springdom/solace/internal/models"
)

var ddPriorityMap = map[string]models.Severity{
	"p1": models.SeverityCritical,
	"p2": models.SeverityHigh,
	"p3": models.SeverityWarning,
	"p4": models.SeverityLow,
	"p5": models.SeverityInfo,
}

// alert_type is the fallback when no priority is present.
var ddAlertTypeMap = map[string]models.Severity{
	"error":   models.SeverityCritical,
	"warning": models.SeverityWarning,
	"info":    models.SeverityInfo,
	"success": models.SeverityInfo,
}

var ddStatusMap = map[string]models.AlertStatus{
	"triggered":    models.AlertFiring,
	"re-triggered": models.AlertFiring,
	"recovered":    models.AlertResolved,
	"no data":      models.AlertFiring,
	"warn":         models.AlertFiring,
}

var ddTitlePrefixRe = regexp.MustCompile(`(?i)^\[(?:Triggered|Recovered|Re-Triggered|No Data|Warn)\]\s*`)

type datadogPayload struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Text            string          `json:"text"`
	Date            json.RawMessage `json:"date"`
	AlertID         json.RawMessage `json:"alert_id"`
	AlertType       string          `json:"alert_type"`
	AlertTransition string          `json:"alert_transition"`
	EventType       string          `json:"event_type"`
	Hostname        string          `json:"hostname"`
	Priority        string          `json:"priority"`
	Tags            string          `json:"tags"`
	Org             struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"org"`
	URL  string `json:"url"`
	Link string `json:"link"`
}

// DatadogNormalizer handles monitor webhooks. Datadog substitutes its
// $-variables before delivery, so the payload carries final values and
// one alert per webhook.
type DatadogNormalizer struct{}

func (n *DatadogNormalizer) Validate(payload json.RawMessage) bool {
	var probe struct {
		Title           *string `json:"title"`
		AlertTransition *string `json:"alert_transition"`
		AlertType       *string `json:"alert_type"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}
	if probe.Title == nil {
		return false
	}
	return probe.AlertTransition != nil || probe.AlertType != nil
}

func (n *DatadogNormalizer) Normalize(payload json.RawMessage) ([]NormalizedAlert, error) {
	var p datadogPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	title := p.Title
	if title == "" {
		title = "Datadog Alert"
	}
	name := strings.TrimSpace(ddTitlePrefixRe.ReplaceAllString(title, ""))

	severity := ddSeverity(p.Priority, p.AlertType)

	status := models.AlertFiring
	if s, ok := ddStatusMap[strings.ToLower(strings.TrimSpace(p.AlertTransition))]; ok {
		status = s
	}

	tags := parseDatadogTags(p.Tags)
	service := tags["service"]
	delete(tags, "service")
	environment := tags["env"]
	delete(tags, "env")
	if environment == "" {
		environment = tags["environment"]
	}
	delete(tags, "environment")

	generatorURL := p.URL
	if generatorURL == "" {
		generatorURL = p.Link
	}

	labels := tags
	if id := rawScalar(p.AlertID); id != "" {
		labels["datadog_alert_id"] = id
	}
	if p.EventType != "" {
		labels["datadog_event_type"] = p.EventType
	}
	if p.Org.Name != "" {
		labels["datadog_org"] = p.Org.Name
	}

	annotations := map[string]string{}
	if p.Link != "" {
		annotations["event_link"] = p.Link
	}

	var startsAt *time.Time
	if epoch := rawScalar(p.Date); epoch != "" {
		if sec, err := strconv.ParseInt(epoch, 10, 64); err == nil {
			t := time.Unix(sec, 0).UTC()
			startsAt = &t
		}
	}

	return []NormalizedAlert{{
		Name:         name,
		Source:       "datadog",
		Severity:     severity,
		Status:       status,
		Description:  p.Text,
		Service:      service,
		Environment:  environment,
		Host:         p.Hostname,
		Labels:       labels,
		Annotations:  annotations,
		StartsAt:     startsAt,
		GeneratorURL: generatorURL,
		RawPayload:   payload,
	}}, nil
}

func ddSeverity(priority, alertType string) models.Severity {
	if sev, ok := ddPriorityMap[strings.ToLower(strings.TrimSpace(priority))]; ok {
		return sev
	}
	if sev, ok := ddAlertTypeMap[strings.ToLower(strings.TrimSpace(alertType))]; ok {
		return sev
	}
	return models.SeverityWarning
}

// parseDatadogTags splits a comma-separated key:value list. Tokens without
// a colon become labels with an empty value.
func parseDatadogTags(tags string) map[string]string {
	result := map[string]string{}
	for _, tag := range strings.Split(tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if key, value, found := strings.Cut(tag, ":"); found {
			result[strings.TrimSpace(key)] = strings.TrimSpace(value)
		} else {
			result[tag] = ""
		}
	}
	return result
}

// rawScalar renders a JSON number or string field as its plain text form.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
