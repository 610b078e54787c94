package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/pkg/pagination"
	"github.com/springdom/solace/pkg/response"

	"github.com/springdom/solace/internal/models"
)

func (h *Handlers) ListSilences(c *gin.Context) {
	page := pagination.GetPage(c)
	pageSize := pagination.GetPageSize(c)
	state := c.DefaultQuery("state", "all")

	windows, total, err := h.silences.List(c.Request.Context(), state, page, pageSize)
	if err != nil {
		response.ServerError(c, "Failed to list silence windows")
		return
	}
	if windows == nil {
		windows = []models.SilenceWindow{}
	}
	response.OK(c, gin.H{
		"windows":   windows,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type silenceCreateRequest struct {
	Name      string                 `json:"name" binding:"required"`
	Matchers  models.SilenceMatchers `json:"matchers"`
	StartsAt  time.Time              `json:"starts_at" binding:"required"`
	EndsAt    time.Time              `json:"ends_at" binding:"required"`
	CreatedBy *string                `json:"created_by"`
	Reason    *string                `json:"reason"`
}

func (h *Handlers) CreateSilence(c *gin.Context) {
	var req silenceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid silence window payload")
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		response.BadRequest(c, "ends_at must be after starts_at")
		return
	}

	window := &models.SilenceWindow{
		Name:      req.Name,
		Matchers:  req.Matchers,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		CreatedBy: req.CreatedBy,
		Reason:    req.Reason,
		IsActive:  true,
	}
	if err := h.silences.Create(c.Request.Context(), window); err != nil {
		response.ServerError(c, "Failed to create silence window")
		return
	}
	response.Created(c, window)
}

func (h *Handlers) GetSilence(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	window, err := h.silences.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Silence window not found")
			return
		}
		response.ServerError(c, "Failed to load silence window")
		return
	}
	response.OK(c, window)
}

type silenceUpdateRequest struct {
	Name      *string                 `json:"name"`
	Matchers  *models.SilenceMatchers `json:"matchers"`
	StartsAt  *time.Time              `json:"starts_at"`
	EndsAt    *time.Time              `json:"ends_at"`
	CreatedBy *string                 `json:"created_by"`
	Reason    *string                 `json:"reason"`
	IsActive  *bool                   `json:"is_active"`
}

func (h *Handlers) UpdateSilence(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req silenceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid silence window payload")
		return
	}

	ctx := c.Request.Context()
	window, err := h.silences.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Silence window not found")
			return
		}
		response.ServerError(c, "Failed to load silence window")
		return
	}

	if req.Name != nil {
		window.Name = *req.Name
	}
	if req.Matchers != nil {
		window.Matchers = *req.Matchers
	}
	if req.StartsAt != nil {
		window.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		window.EndsAt = *req.EndsAt
	}
	if req.CreatedBy != nil {
		window.CreatedBy = req.CreatedBy
	}
	if req.Reason != nil {
		window.Reason = req.Reason
	}
	if req.IsActive != nil {
		window.IsActive = *req.IsActive
	}

	if !window.EndsAt.After(window.StartsAt) {
		response.BadRequest(c, "ends_at must be after starts_at")
		return
	}

	if err := h.silences.Update(ctx, window); err != nil {
		response.ServerError(c, "Failed to update silence window")
		return
	}
	response.OK(c, window)
}

func (h *Handlers) DeleteSilence(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.silences.Delete(c.Request.Context(), id)
	if err != nil {
		response.ServerError(c, "Failed to delete silence window")
		return
	}
	if !deleted {
		response.NotFound(c, "Silence window not found")
		return
	}
	response.NoContent(c)
}
