package normalizer

import (
	"encoding/json"
	"time"

	"github.com/springdom/solace/internal/models"
)

// genericPayload is the documented webhook envelope for arbitrary systems.
type genericPayload struct {
	Name           string            `json:"name"`
	Source         string            `json:"source"`
	Severity       string            `json:"severity"`
	Status         string            `json:"status"`
	Description    string            `json:"description"`
	Service        string            `json:"service"`
	Environment    string            `json:"environment"`
	Host           string            `json:"host"`
	Labels         map[string]string `json:"labels"`
	Annotations    map[string]string `json:"annotations"`
	Tags           []string          `json:"tags"`
	SourceInstance string            `json:"source_instance"`
	StartsAt       *time.Time        `json:"starts_at"`
	EndsAt         *time.Time        `json:"ends_at"`
	GeneratorURL   string            `json:"generator_url"`
	RunbookURL     string            `json:"runbook_url"`
	TicketURL      string            `json:"ticket_url"`
}

// GenericNormalizer accepts any JSON payload conforming to the generic
// envelope. It is the easiest way to integrate an unlisted system.
type GenericNormalizer struct{}

func (n *GenericNormalizer) Validate(payload json.RawMessage) bool {
	var p genericPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return false
	}
	if p.Name == "" {
		return false
	}
	if p.Severity != "" && !models.Severity(p.Severity).Valid() {
		return false
	}
	if p.Status != "" && p.Status != string(models.AlertFiring) && p.Status != string(models.AlertResolved) {
		return false
	}
	return true
}

func (n *GenericNormalizer) Normalize(payload json.RawMessage) ([]NormalizedAlert, error) {
	var p genericPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	severity := models.Severity(p.Severity)
	if !severity.Valid() {
		severity = models.SeverityWarning
	}
	status := models.AlertFiring
	if p.Status == string(models.AlertResolved) {
		status = models.AlertResolved
	}
	source := p.Source
	if source == "" {
		source = "generic"
	}

	return []NormalizedAlert{{
		Name:           p.Name,
		Source:         source,
		Severity:       severity,
		Status:         status,
		Description:    p.Description,
		Service:        p.Service,
		Environment:    p.Environment,
		Host:           p.Host,
		Labels:         p.Labels,
		Annotations:    p.Annotations,
		Tags:           p.Tags,
		SourceInstance: p.SourceInstance,
		StartsAt:       p.StartsAt,
		EndsAt:         p.EndsAt,
		GeneratorURL:   p.GeneratorURL,
		RunbookURL:     p.RunbookURL,
		TicketURL:      p.TicketURL,
		RawPayload:     payload,
	}}, nil
}
