package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/pkg/pagination"
	"github.com/springdom/solace/pkg/response"

	"github.com/springdom/solace/internal/middleware"
	"github.com/springdom/solace/internal/models"
	"github.com/springdom/solace/internal/repository"
)

// incidentPayload extends the incident with the member count the
// dashboard shows in list views.
type incidentPayload struct {
	models.Incident
	AlertCount int                    `json:"alert_count"`
	Events     []models.IncidentEvent `json:"events,omitempty"`
}

func (h *Handlers) incidentPayload(ctx context.Context, incident *models.Incident) (*incidentPayload, error) {
	if incident.Alerts == nil {
		alerts, err := h.alerts.ListByIncident(ctx, incident.ID)
		if err != nil {
			return nil, err
		}
		incident.Alerts = alerts
	}
	if incident.Alerts == nil {
		incident.Alerts = []models.Alert{}
	}
	return &incidentPayload{Incident: *incident, AlertCount: len(incident.Alerts)}, nil
}

func (h *Handlers) ListIncidents(c *gin.Context) {
	page := pagination.GetPage(c)
	pageSize := pagination.GetPageSize(c)

	params := repository.ListIncidentsParams{
		Status:   c.Query("status"),
		Severity: c.Query("severity"),
		Search:   c.Query("q"),
		SortBy:   c.DefaultQuery("sort_by", "started_at"),
		SortDesc: c.DefaultQuery("sort_order", "desc") != "asc",
		Page:     page,
		PageSize: pageSize,
	}

	ctx := c.Request.Context()
	incidents, total, err := h.incidents.List(ctx, params)
	if err != nil {
		response.ServerError(c, "Failed to list incidents")
		return
	}

	payloads := make([]incidentPayload, 0, len(incidents))
	for i := range incidents {
		p, err := h.incidentPayload(ctx, &incidents[i])
		if err != nil {
			response.ServerError(c, "Failed to load incident alerts")
			return
		}
		payloads = append(payloads, *p)
	}

	response.OK(c, gin.H{
		"incidents": payloads,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handlers) GetIncident(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	incident, err := h.incidents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Incident not found")
			return
		}
		response.ServerError(c, "Failed to load incident")
		return
	}

	payload, err := h.incidentPayload(ctx, incident)
	if err != nil {
		response.ServerError(c, "Failed to load incident alerts")
		return
	}
	events, err := h.incidents.ListEvents(ctx, id)
	if err != nil {
		response.ServerError(c, "Failed to load incident events")
		return
	}
	if events == nil {
		events = []models.IncidentEvent{}
	}
	payload.Events = events
	response.OK(c, payload)
}

// AcknowledgeIncident acknowledges the incident and every firing member
// alert. Acknowledging a non-open incident returns it unchanged.
func (h *Handlers) AcknowledgeIncident(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	actor := middleware.ActorName(c)

	incident, err := h.incidents.Acknowledge(ctx, id, middleware.UserID(c))
	if errors.Is(err, pgx.ErrNoRows) {
		h.replyCurrentIncident(c, id)
		return
	}
	if err != nil {
		response.ServerError(c, "Failed to acknowledge incident")
		return
	}

	now := time.Now().UTC()
	if incident.AcknowledgedAt != nil {
		now = *incident.AcknowledgedAt
	}
	acked, err := h.alerts.AcknowledgeByIncident(ctx, id, middleware.UserID(c), now)
	if err != nil {
		response.ServerError(c, "Failed to acknowledge incident alerts")
		return
	}
	if err := h.incidents.AddEvent(ctx, id, models.EventIncidentAcknowledged,
		"Incident acknowledged by "+actor, &actor,
		map[string]any{"alerts_acknowledged": acked}); err != nil {
		response.ServerError(c, "Failed to record incident event")
		return
	}

	h.hub.Publish("incident.updated", map[string]any{
		"incident_id": incident.ID.String(),
		"status":      "acknowledged",
	})

	payload, err := h.incidentPayload(ctx, incident)
	if err != nil {
		response.ServerError(c, "Failed to load incident alerts")
		return
	}
	response.OK(c, payload)
}

// ResolveIncident resolves the incident and every active member alert.
// Resolving an already-resolved incident returns it unchanged.
func (h *Handlers) ResolveIncident(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	actor := middleware.ActorName(c)

	incident, err := h.incidents.Resolve(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		h.replyCurrentIncident(c, id)
		return
	}
	if err != nil {
		response.ServerError(c, "Failed to resolve incident")
		return
	}

	now := time.Now().UTC()
	if incident.ResolvedAt != nil {
		now = *incident.ResolvedAt
	}
	resolved, err := h.alerts.ResolveByIncident(ctx, id, now)
	if err != nil {
		response.ServerError(c, "Failed to resolve incident alerts")
		return
	}
	if err := h.incidents.AddEvent(ctx, id, models.EventIncidentResolved,
		"Incident resolved by "+actor, &actor,
		map[string]any{"alerts_resolved": resolved}); err != nil {
		response.ServerError(c, "Failed to record incident event")
		return
	}

	h.hub.Publish("incident.updated", map[string]any{
		"incident_id": incident.ID.String(),
		"status":      "resolved",
	})

	payload, err := h.incidentPayload(ctx, incident)
	if err != nil {
		response.ServerError(c, "Failed to load incident alerts")
		return
	}
	response.OK(c, payload)
}

// replyCurrentIncident returns the incident as-is, or 404. Used when a
// guarded state transition matched no rows.
func (h *Handlers) replyCurrentIncident(c *gin.Context, id uuid.UUID) {
	ctx := c.Request.Context()
	incident, err := h.incidents.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		response.NotFound(c, "Incident not found")
		return
	}
	if err != nil {
		response.ServerError(c, "Failed to load incident")
		return
	}
	payload, err := h.incidentPayload(ctx, incident)
	if err != nil {
		response.ServerError(c, "Failed to load incident alerts")
		return
	}
	response.OK(c, payload)
}
