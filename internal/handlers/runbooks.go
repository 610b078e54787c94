package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/pkg/response"

	"github.com/springdom/solace/internal/models"
)

func (h *Handlers) ListRunbookRules(c *gin.Context) {
	rules, err := h.runbooks.List(c.Request.Context())
	if err != nil {
		response.ServerError(c, "Failed to list runbook rules")
		return
	}
	if rules == nil {
		rules = []models.RunbookRule{}
	}
	response.OK(c, gin.H{"rules": rules, "total": len(rules)})
}

type runbookRuleCreateRequest struct {
	ServicePattern     string  `json:"service_pattern" binding:"required"`
	NamePattern        *string `json:"name_pattern"`
	RunbookURLTemplate string  `json:"runbook_url_template" binding:"required"`
	Description        *string `json:"description"`
	Priority           int     `json:"priority"`
	IsActive           *bool   `json:"is_active"`
}

func (h *Handlers) CreateRunbookRule(c *gin.Context) {
	var req runbookRuleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "service_pattern and runbook_url_template are required")
		return
	}

	rule := &models.RunbookRule{
		ServicePattern:     req.ServicePattern,
		NamePattern:        req.NamePattern,
		RunbookURLTemplate: req.RunbookURLTemplate,
		Description:        req.Description,
		Priority:           req.Priority,
		IsActive:           true,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if err := h.runbooks.Create(c.Request.Context(), rule); err != nil {
		response.ServerError(c, "Failed to create runbook rule")
		return
	}
	response.Created(c, rule)
}

type runbookRuleUpdateRequest struct {
	ServicePattern     *string `json:"service_pattern"`
	NamePattern        *string `json:"name_pattern"`
	RunbookURLTemplate *string `json:"runbook_url_template"`
	Description        *string `json:"description"`
	Priority           *int    `json:"priority"`
	IsActive           *bool   `json:"is_active"`
}

func (h *Handlers) UpdateRunbookRule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req runbookRuleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid runbook rule payload")
		return
	}

	ctx := c.Request.Context()
	rule, err := h.runbooks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Runbook rule not found")
			return
		}
		response.ServerError(c, "Failed to load runbook rule")
		return
	}

	if req.ServicePattern != nil {
		rule.ServicePattern = *req.ServicePattern
	}
	if req.NamePattern != nil {
		rule.NamePattern = req.NamePattern
	}
	if req.RunbookURLTemplate != nil {
		rule.RunbookURLTemplate = *req.RunbookURLTemplate
	}
	if req.Description != nil {
		rule.Description = req.Description
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := h.runbooks.Update(ctx, rule); err != nil {
		response.ServerError(c, "Failed to update runbook rule")
		return
	}
	response.OK(c, rule)
}

func (h *Handlers) DeleteRunbookRule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.runbooks.Delete(c.Request.Context(), id)
	if err != nil {
		response.ServerError(c, "Failed to delete runbook rule")
		return
	}
	if !deleted {
		response.NotFound(c, "Runbook rule not found")
		return
	}
	response.NoContent(c)
}
