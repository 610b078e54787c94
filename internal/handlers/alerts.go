package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/pkg/pagination"
	"github.com/springdom/solace/pkg/response"

	"github.com/springdom/solace/internal/middleware"
	"github.com/springdom/solace/internal/models"
	"github.com/springdom/solace/internal/repository"
)

// ListAlerts supports filtering, free-text search, sorting, and paging.
func (h *Handlers) ListAlerts(c *gin.Context) {
	page := pagination.GetPage(c)
	pageSize := pagination.GetPageSize(c)

	params := repository.ListAlertsParams{
		Status:      c.Query("status"),
		Severity:    c.Query("severity"),
		Service:     c.Query("service"),
		Source:      c.Query("source"),
		Environment: c.Query("environment"),
		Tag:         c.Query("tag"),
		Search:      c.Query("q"),
		SortBy:      c.DefaultQuery("sort_by", "created_at"),
		SortDesc:    c.DefaultQuery("sort_order", "desc") != "asc",
		Page:        page,
		PageSize:    pageSize,
	}
	if raw := c.Query("incident_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "Invalid incident_id")
			return
		}
		params.IncidentID = &id
	}

	alerts, total, err := h.alerts.List(c.Request.Context(), params)
	if err != nil {
		response.ServerError(c, "Failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	response.OK(c, gin.H{
		"alerts":    alerts,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handlers) GetAlert(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	alert, err := h.alerts.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Alert not found")
			return
		}
		response.ServerError(c, "Failed to load alert")
		return
	}
	response.OK(c, alert)
}

// AcknowledgeAlert is idempotent: acknowledging an already-acknowledged
// alert returns it unchanged.
func (h *Handlers) AcknowledgeAlert(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	alert, err := h.alerts.Acknowledge(ctx, id, middleware.UserID(c))
	if errors.Is(err, pgx.ErrNoRows) {
		// Not firing anymore; return the current state if it exists.
		alert, err = h.alerts.GetByID(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Alert not found")
			return
		}
		if err != nil {
			response.ServerError(c, "Failed to load alert")
			return
		}
		response.OK(c, alert)
		return
	}
	if err != nil {
		response.ServerError(c, "Failed to acknowledge alert")
		return
	}

	h.hub.Publish("alert.updated", map[string]any{
		"alert_id": alert.ID.String(),
		"status":   "acknowledged",
	})
	response.OK(c, alert)
}

// ResolveAlert is idempotent in the same way as AcknowledgeAlert.
func (h *Handlers) ResolveAlert(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	alert, err := h.alerts.Resolve(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		alert, err = h.alerts.GetByID(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Alert not found")
			return
		}
		if err != nil {
			response.ServerError(c, "Failed to load alert")
			return
		}
		response.OK(c, alert)
		return
	}
	if err != nil {
		response.ServerError(c, "Failed to resolve alert")
		return
	}

	h.hub.Publish("alert.updated", map[string]any{
		"alert_id": alert.ID.String(),
		"status":   "resolved",
	})
	response.OK(c, alert)
}

type bulkAlertRequest struct {
	AlertIDs []uuid.UUID `json:"alert_ids" binding:"required,min=1"`
}

func (h *Handlers) BulkAcknowledgeAlerts(c *gin.Context) {
	var req bulkAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "alert_ids is required")
		return
	}
	updated, err := h.alerts.BulkAcknowledge(c.Request.Context(), req.AlertIDs, middleware.UserID(c))
	if err != nil {
		response.ServerError(c, "Failed to acknowledge alerts")
		return
	}
	response.OK(c, gin.H{"updated": updated})
}

func (h *Handlers) BulkResolveAlerts(c *gin.Context) {
	var req bulkAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "alert_ids is required")
		return
	}
	updated, err := h.alerts.BulkResolve(c.Request.Context(), req.AlertIDs)
	if err != nil {
		response.ServerError(c, "Failed to resolve alerts")
		return
	}
	response.OK(c, gin.H{"updated": updated})
}

// Tags

type alertTagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

func (h *Handlers) SetAlertTags(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req alertTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "tags is required")
		return
	}
	alert, err := h.alerts.SetTags(c.Request.Context(), id, req.Tags)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Alert not found")
			return
		}
		response.ServerError(c, "Failed to update tags")
		return
	}
	response.OK(c, alert)
}

func (h *Handlers) AddAlertTag(c *gin.Context) {
	h.modifyTag(c, func(tags []string, tag string) []string {
		for _, t := range tags {
			if t == tag {
				return tags
			}
		}
		return append(tags, tag)
	})
}

func (h *Handlers) RemoveAlertTag(c *gin.Context) {
	h.modifyTag(c, func(tags []string, tag string) []string {
		out := tags[:0]
		for _, t := range tags {
			if t != tag {
				out = append(out, t)
			}
		}
		return out
	})
}

func (h *Handlers) modifyTag(c *gin.Context, apply func([]string, string) []string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tag := c.Param("tag")
	ctx := c.Request.Context()

	alert, err := h.alerts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Alert not found")
			return
		}
		response.ServerError(c, "Failed to load alert")
		return
	}

	alert, err = h.alerts.SetTags(ctx, id, apply(alert.Tags, tag))
	if err != nil {
		response.ServerError(c, "Failed to update tags")
		return
	}
	response.OK(c, alert)
}

// Notes

func (h *Handlers) ListAlertNotes(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	notes, err := h.notes.ListByAlert(c.Request.Context(), id)
	if err != nil {
		response.ServerError(c, "Failed to list notes")
		return
	}
	if notes == nil {
		notes = []models.AlertNote{}
	}
	response.OK(c, gin.H{"notes": notes, "total": len(notes)})
}

type alertNoteRequest struct {
	Text   string  `json:"text" binding:"required"`
	Author *string `json:"author"`
}

func (h *Handlers) AddAlertNote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req alertNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "text is required")
		return
	}
	ctx := c.Request.Context()

	if _, err := h.alerts.GetByID(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Alert not found")
			return
		}
		response.ServerError(c, "Failed to load alert")
		return
	}

	note := &models.AlertNote{AlertID: id, Text: req.Text, Author: req.Author}
	if err := h.notes.Create(ctx, note); err != nil {
		response.ServerError(c, "Failed to create note")
		return
	}
	response.Created(c, note)
}

type alertNoteUpdateRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handlers) UpdateAlertNote(c *gin.Context) {
	noteID, ok := pathID(c, "note_id")
	if !ok {
		return
	}
	var req alertNoteUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "text is required")
		return
	}
	note, err := h.notes.Update(c.Request.Context(), noteID, req.Text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Note not found")
			return
		}
		response.ServerError(c, "Failed to update note")
		return
	}
	response.OK(c, note)
}

func (h *Handlers) DeleteAlertNote(c *gin.Context) {
	noteID, ok := pathID(c, "note_id")
	if !ok {
		return
	}
	deleted, err := h.notes.Delete(c.Request.Context(), noteID)
	if err != nil {
		response.ServerError(c, "Failed to delete note")
		return
	}
	if !deleted {
		response.NotFound(c, "Note not found")
		return
	}
	response.NoContent(c)
}

// Occurrences

func (h *Handlers) ListAlertOccurrences(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	occurrences, err := h.occurrences.ListByAlert(c.Request.Context(), id, 0)
	if err != nil {
		response.ServerError(c, "Failed to list occurrences")
		return
	}
	if occurrences == nil {
		occurrences = []models.AlertOccurrence{}
	}
	response.OK(c, gin.H{"occurrences": occurrences, "total": len(occurrences)})
}

// pathID parses a UUID path parameter, replying 400 when it is malformed.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
