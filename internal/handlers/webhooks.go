package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/springdom/solace/pkg/response"

	"github.com/springdom/solace/internal/normalizer"
)

// webhookAccepted is the 202 body returned to monitoring sources. For
// batched payloads it describes the last alert processed.
type webhookAccepted struct {
	Status         string     `json:"status"`
	AlertID        uuid.UUID  `json:"alert_id"`
	Fingerprint    string     `json:"fingerprint"`
	IsDuplicate    bool       `json:"is_duplicate"`
	DuplicateCount int        `json:"duplicate_count"`
	IncidentID     *uuid.UUID `json:"incident_id"`
}

// ReceiveWebhook accepts an alert payload from a monitoring source. The
// provider path parameter selects the normalizer used to parse it.
func (h *Handlers) ReceiveWebhook(c *gin.Context) {
	provider := c.Param("provider")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || !json.Valid(body) {
		response.BadRequest(c, "Invalid JSON payload")
		return
	}

	norm, err := normalizer.Get(provider)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if !norm.Validate(body) {
		response.Unprocessable(c,
			fmt.Sprintf("Payload does not match expected schema for provider '%s'", provider))
		return
	}

	normalized, err := norm.Normalize(body)
	if err != nil {
		log.Printf("normalization failed for %s: %v", provider, err)
		response.Unprocessable(c, fmt.Sprintf("Failed to normalize payload: %v", err))
		return
	}

	// Batched payloads (Prometheus) all go through the pipeline; the
	// response reports the last one.
	var last *webhookAccepted
	for _, n := range normalized {
		result, err := h.ingestor.Ingest(c.Request.Context(), n)
		if err != nil {
			log.Printf("ingesting alert %q from %s: %v", n.Name, provider, err)
			response.ServerError(c, "Failed to ingest alert")
			return
		}
		last = &webhookAccepted{
			Status:         "accepted",
			AlertID:        result.Alert.ID,
			Fingerprint:    result.Alert.Fingerprint,
			IsDuplicate:    result.IsDuplicate,
			DuplicateCount: result.Alert.DuplicateCount,
			IncidentID:     result.Alert.IncidentID,
		}
		if result.Incident != nil {
			id := result.Incident.ID
			last.IncidentID = &id
		}
	}
	if last == nil {
		response.Unprocessable(c, "No alerts could be extracted from payload")
		return
	}

	response.Accepted(c, last)
}
