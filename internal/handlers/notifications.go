package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/pkg/pagination"
	"github.com/springdom/solace/pkg/response"
	"github.com/springdom/solace/pkg/validator"

	"github.com/springdom/solace/internal/models"
	"github.com/springdom/solace/internal/repository"
)

func (h *Handlers) ListChannels(c *gin.Context) {
	page := pagination.GetPage(c)
	pageSize := pagination.GetPageSize(c)

	channels, err := h.channels.List(c.Request.Context())
	if err != nil {
		response.ServerError(c, "Failed to list channels")
		return
	}
	total := len(channels)

	offset := pagination.GetOffset(page, pageSize)
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	pageItems := channels[offset:end]
	if pageItems == nil {
		pageItems = []models.NotificationChannel{}
	}

	response.OK(c, gin.H{
		"channels":  pageItems,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type channelCreateRequest struct {
	Name        string                `json:"name" binding:"required"`
	ChannelType string                `json:"channel_type" binding:"required"`
	Config      models.ChannelConfig  `json:"config"`
	Filters     models.ChannelFilters `json:"filters"`
}

// validateChannelConfig enforces the per-type required config keys.
func validateChannelConfig(channelType models.ChannelType, config models.ChannelConfig) string {
	switch channelType {
	case models.ChannelSlack:
		if config.WebhookURL == "" {
			return "Slack channels require 'webhook_url' in config"
		}
	case models.ChannelEmail:
		if len(config.Recipients) == 0 {
			return "Email channels require 'recipients' list in config"
		}
		for _, r := range config.Recipients {
			if validator.Email(r) != nil {
				return "Invalid recipient email: " + r
			}
		}
	case models.ChannelTeams:
		if config.WebhookURL == "" {
			return "Teams channels require 'webhook_url' in config"
		}
	case models.ChannelWebhook:
		if config.WebhookURL == "" {
			return "Webhook channels require 'webhook_url' in config"
		}
	case models.ChannelPagerDuty:
		if config.RoutingKey == "" {
			return "PagerDuty channels require 'routing_key' in config"
		}
	}
	if config.WebhookURL != "" && validator.URL(config.WebhookURL) != nil {
		return "Invalid webhook_url in config"
	}
	return ""
}

func (h *Handlers) CreateChannel(c *gin.Context) {
	var req channelCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid channel payload")
		return
	}

	channelType := models.ChannelType(req.ChannelType)
	if !channelType.Valid() {
		response.BadRequest(c,
			"Invalid channel_type: "+req.ChannelType+
				". Must be one of: 'slack', 'email', 'teams', 'webhook', 'pagerduty'")
		return
	}
	if detail := validateChannelConfig(channelType, req.Config); detail != "" {
		response.BadRequest(c, detail)
		return
	}

	channel := &models.NotificationChannel{
		Name:        req.Name,
		ChannelType: channelType,
		Config:      req.Config,
		Filters:     req.Filters,
		IsActive:    true,
	}
	if err := h.channels.Create(c.Request.Context(), channel); err != nil {
		response.ServerError(c, "Failed to create channel")
		return
	}
	response.Created(c, channel)
}

func (h *Handlers) GetChannel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	channel, err := h.channels.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Channel not found")
			return
		}
		response.ServerError(c, "Failed to load channel")
		return
	}
	response.OK(c, channel)
}

type channelUpdateRequest struct {
	Name     *string                `json:"name"`
	Config   *models.ChannelConfig  `json:"config"`
	Filters  *models.ChannelFilters `json:"filters"`
	IsActive *bool                  `json:"is_active"`
}

func (h *Handlers) UpdateChannel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req channelUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid channel payload")
		return
	}

	ctx := c.Request.Context()
	channel, err := h.channels.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Channel not found")
			return
		}
		response.ServerError(c, "Failed to load channel")
		return
	}

	if req.Name != nil {
		channel.Name = *req.Name
	}
	if req.Config != nil {
		channel.Config = *req.Config
	}
	if req.Filters != nil {
		channel.Filters = *req.Filters
	}
	if req.IsActive != nil {
		channel.IsActive = *req.IsActive
	}
	if detail := validateChannelConfig(channel.ChannelType, channel.Config); detail != "" {
		response.BadRequest(c, detail)
		return
	}

	if err := h.channels.Update(ctx, channel); err != nil {
		response.ServerError(c, "Failed to update channel")
		return
	}
	response.OK(c, channel)
}

func (h *Handlers) DeleteChannel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.channels.Delete(c.Request.Context(), id)
	if err != nil {
		response.ServerError(c, "Failed to delete channel")
		return
	}
	if !deleted {
		response.NotFound(c, "Channel not found")
		return
	}
	response.NoContent(c)
}

// TestChannel sends a test notification using the most recent incident as
// sample data.
func (h *Handlers) TestChannel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	channel, err := h.channels.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Channel not found")
			return
		}
		response.ServerError(c, "Failed to load channel")
		return
	}

	incidents, _, err := h.incidents.List(ctx, repository.ListIncidentsParams{
		SortBy: "created_at", SortDesc: true, Page: 1, PageSize: 1,
	})
	if err != nil {
		response.ServerError(c, "Failed to load incidents")
		return
	}
	if len(incidents) == 0 {
		response.OK(c, gin.H{"status": "error", "message": "No incidents available for test notification"})
		return
	}

	if err := h.notifier.SendTest(ctx, channel, &incidents[0]); err != nil {
		response.OK(c, gin.H{"status": "error", "message": err.Error()})
		return
	}
	response.OK(c, gin.H{"status": "sent"})
}

func (h *Handlers) ListNotificationLogs(c *gin.Context) {
	page := pagination.GetPage(c)
	pageSize := pagination.GetPageSize(c)

	var channelID, incidentID *uuid.UUID
	if raw := c.Query("channel_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "Invalid channel_id")
			return
		}
		channelID = &id
	}
	if raw := c.Query("incident_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "Invalid incident_id")
			return
		}
		incidentID = &id
	}

	logs, total, err := h.logs.List(c.Request.Context(), channelID, incidentID, page, pageSize)
	if err != nil {
		response.ServerError(c, "Failed to list notification logs")
		return
	}
	if logs == nil {
		logs = []models.NotificationLog{}
	}
	response.OK(c, gin.H{
		"logs":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
