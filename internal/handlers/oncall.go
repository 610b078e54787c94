package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/pkg/pagination"
	"github.com/springdom/solace/pkg/response"

	"github.com/springdom/solace/internal/models"
)

// invalidMemberIDs returns the member user ids that do not exist.
func (h *Handlers) invalidMemberIDs(ctx context.Context, members []models.ScheduleMember) ([]string, error) {
	var invalid []string
	for _, m := range members {
		_, err := h.users.GetByID(ctx, m.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			invalid = append(invalid, m.UserID.String())
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return invalid, nil
}

// validateScheduleTiming checks the fields the rotation arithmetic consumes:
// a resolvable timezone, a well-formed HH:MM handoff, and interval bounds.
// Returns the error detail, or "" when the schedule is valid.
func validateScheduleTiming(s *models.OnCallSchedule) string {
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return "Invalid timezone: " + s.Timezone
	}
	parts := strings.SplitN(s.HandoffTime, ":", 2)
	if len(parts) != 2 {
		return "Invalid handoff_time: must be HH:MM"
	}
	hour, errH := strconv.Atoi(parts[0])
	minute, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "Invalid handoff_time: must be HH:MM"
	}
	if s.RotationIntervalHours < 1 || s.RotationIntervalHours > 720 {
		return "rotation_interval_hours must be between 1 and 720"
	}
	if s.RotationIntervalDays < 1 || s.RotationIntervalDays > 365 {
		return "rotation_interval_days must be between 1 and 365"
	}
	return ""
}

// Schedules

func (h *Handlers) ListSchedules(c *gin.Context) {
	page := pagination.GetPage(c)
	pageSize := pagination.GetPageSize(c)
	activeOnly := c.Query("active_only") == "true"

	schedules, err := h.schedules.List(c.Request.Context())
	if err != nil {
		response.ServerError(c, "Failed to list schedules")
		return
	}
	if activeOnly {
		filtered := schedules[:0]
		for _, s := range schedules {
			if s.IsActive {
				filtered = append(filtered, s)
			}
		}
		schedules = filtered
	}
	total := len(schedules)

	offset := pagination.GetOffset(page, pageSize)
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	pageItems := schedules[offset:end]
	if pageItems == nil {
		pageItems = []models.OnCallSchedule{}
	}

	response.OK(c, gin.H{"schedules": pageItems, "total": total})
}

type scheduleCreateRequest struct {
	Name                  string                  `json:"name" binding:"required"`
	Description           *string                 `json:"description"`
	Timezone              string                  `json:"timezone"`
	RotationType          string                  `json:"rotation_type"`
	Members               []models.ScheduleMember `json:"members"`
	HandoffTime           string                  `json:"handoff_time"`
	RotationIntervalDays  int                     `json:"rotation_interval_days"`
	RotationIntervalHours int                     `json:"rotation_interval_hours"`
	EffectiveFrom         *time.Time              `json:"effective_from"`
	IsActive              *bool                   `json:"is_active"`
}

func (h *Handlers) CreateSchedule(c *gin.Context) {
	var req scheduleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid schedule payload")
		return
	}
	ctx := c.Request.Context()

	schedule := &models.OnCallSchedule{
		Name:                  req.Name,
		Description:           req.Description,
		Timezone:              req.Timezone,
		RotationType:          models.RotationType(req.RotationType),
		Members:               req.Members,
		HandoffTime:           req.HandoffTime,
		RotationIntervalDays:  req.RotationIntervalDays,
		RotationIntervalHours: req.RotationIntervalHours,
		IsActive:              true,
	}
	if schedule.Timezone == "" {
		schedule.Timezone = "UTC"
	}
	if schedule.RotationType == "" {
		schedule.RotationType = models.RotationWeekly
	}
	if !schedule.RotationType.Valid() {
		response.BadRequest(c, "Invalid rotation_type: "+req.RotationType)
		return
	}
	if schedule.HandoffTime == "" {
		schedule.HandoffTime = "09:00"
	}
	if schedule.RotationIntervalDays == 0 {
		schedule.RotationIntervalDays = 7
	}
	if schedule.RotationIntervalHours == 0 {
		schedule.RotationIntervalHours = 1
	}
	if detail := validateScheduleTiming(schedule); detail != "" {
		response.BadRequest(c, detail)
		return
	}
	if req.EffectiveFrom != nil {
		schedule.EffectiveFrom = *req.EffectiveFrom
	} else {
		schedule.EffectiveFrom = time.Now().UTC()
	}
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}

	if len(schedule.Members) > 0 {
		invalid, err := h.invalidMemberIDs(ctx, schedule.Members)
		if err != nil {
			response.ServerError(c, "Failed to validate members")
			return
		}
		if len(invalid) > 0 {
			response.BadRequest(c, "Invalid user IDs in members: "+strings.Join(invalid, ", "))
			return
		}
	}

	if err := h.schedules.Create(ctx, schedule); err != nil {
		response.ServerError(c, "Failed to create schedule")
		return
	}
	response.Created(c, schedule)
}

func (h *Handlers) GetSchedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	schedule, err := h.schedules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Schedule not found")
			return
		}
		response.ServerError(c, "Failed to load schedule")
		return
	}
	overrides, err := h.schedules.ListOverrides(ctx, id)
	if err != nil {
		response.ServerError(c, "Failed to load overrides")
		return
	}
	schedule.Overrides = overrides
	response.OK(c, schedule)
}

type scheduleUpdateRequest struct {
	Name                  *string                  `json:"name"`
	Description           *string                  `json:"description"`
	Timezone              *string                  `json:"timezone"`
	RotationType          *string                  `json:"rotation_type"`
	Members               *[]models.ScheduleMember `json:"members"`
	HandoffTime           *string                  `json:"handoff_time"`
	RotationIntervalDays  *int                     `json:"rotation_interval_days"`
	RotationIntervalHours *int                     `json:"rotation_interval_hours"`
	EffectiveFrom         *time.Time               `json:"effective_from"`
	IsActive              *bool                    `json:"is_active"`
}

func (h *Handlers) UpdateSchedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req scheduleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid schedule payload")
		return
	}

	ctx := c.Request.Context()
	schedule, err := h.schedules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Schedule not found")
			return
		}
		response.ServerError(c, "Failed to load schedule")
		return
	}

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.Description != nil {
		schedule.Description = req.Description
	}
	if req.Timezone != nil {
		schedule.Timezone = *req.Timezone
	}
	if req.RotationType != nil {
		rt := models.RotationType(*req.RotationType)
		if !rt.Valid() {
			response.BadRequest(c, "Invalid rotation_type: "+*req.RotationType)
			return
		}
		schedule.RotationType = rt
	}
	if req.Members != nil {
		invalid, err := h.invalidMemberIDs(ctx, *req.Members)
		if err != nil {
			response.ServerError(c, "Failed to validate members")
			return
		}
		if len(invalid) > 0 {
			response.BadRequest(c, "Invalid user IDs in members: "+strings.Join(invalid, ", "))
			return
		}
		schedule.Members = *req.Members
	}
	if req.HandoffTime != nil {
		schedule.HandoffTime = *req.HandoffTime
	}
	if req.RotationIntervalDays != nil {
		schedule.RotationIntervalDays = *req.RotationIntervalDays
	}
	if req.RotationIntervalHours != nil {
		schedule.RotationIntervalHours = *req.RotationIntervalHours
	}
	if req.EffectiveFrom != nil {
		schedule.EffectiveFrom = *req.EffectiveFrom
	}
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}

	if detail := validateScheduleTiming(schedule); detail != "" {
		response.BadRequest(c, detail)
		return
	}

	if err := h.schedules.Update(ctx, schedule); err != nil {
		response.ServerError(c, "Failed to update schedule")
		return
	}
	response.OK(c, schedule)
}

func (h *Handlers) DeleteSchedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.schedules.Delete(c.Request.Context(), id)
	if err != nil {
		response.ServerError(c, "Failed to delete schedule")
		return
	}
	if !deleted {
		response.NotFound(c, "Schedule not found")
		return
	}
	response.NoContent(c)
}

// CurrentOnCall reports who holds the pager right now for a schedule.
func (h *Handlers) CurrentOnCall(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	schedule, err := h.schedules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Schedule not found")
			return
		}
		response.ServerError(c, "Failed to load schedule")
		return
	}

	user, err := h.oncall.CurrentOnCall(ctx, id, time.Now().UTC())
	if err != nil {
		response.ServerError(c, "Failed to resolve on-call user")
		return
	}
	response.OK(c, gin.H{
		"schedule_id":   schedule.ID,
		"schedule_name": schedule.Name,
		"user":          user,
	})
}

// Overrides

type overrideCreateRequest struct {
	UserID   uuid.UUID `json:"user_id" binding:"required"`
	StartsAt time.Time `json:"starts_at" binding:"required"`
	EndsAt   time.Time `json:"ends_at" binding:"required"`
	Reason   *string   `json:"reason"`
}

func (h *Handlers) CreateOverride(c *gin.Context) {
	scheduleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req overrideCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid override payload")
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		response.BadRequest(c, "ends_at must be after starts_at")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.schedules.GetByID(ctx, scheduleID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Schedule not found")
			return
		}
		response.ServerError(c, "Failed to load schedule")
		return
	}

	override := &models.OnCallOverride{
		ScheduleID: scheduleID,
		UserID:     req.UserID,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		Reason:     req.Reason,
	}
	if err := h.schedules.CreateOverride(ctx, override); err != nil {
		response.ServerError(c, "Failed to create override")
		return
	}
	response.Created(c, override)
}

func (h *Handlers) DeleteOverride(c *gin.Context) {
	overrideID, ok := pathID(c, "override_id")
	if !ok {
		return
	}
	deleted, err := h.schedules.DeleteOverride(c.Request.Context(), overrideID)
	if err != nil {
		response.ServerError(c, "Failed to delete override")
		return
	}
	if !deleted {
		response.NotFound(c, "Override not found")
		return
	}
	response.NoContent(c)
}

// Escalation policies

func (h *Handlers) ListPolicies(c *gin.Context) {
	page := pagination.GetPage(c)
	pageSize := pagination.GetPageSize(c)

	policies, err := h.escalations.ListPolicies(c.Request.Context())
	if err != nil {
		response.ServerError(c, "Failed to list policies")
		return
	}
	total := len(policies)

	offset := pagination.GetOffset(page, pageSize)
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	pageItems := policies[offset:end]
	if pageItems == nil {
		pageItems = []models.EscalationPolicy{}
	}

	response.OK(c, gin.H{"policies": pageItems, "total": total})
}

type policyCreateRequest struct {
	Name        string                   `json:"name" binding:"required"`
	Description *string                  `json:"description"`
	RepeatCount int                      `json:"repeat_count"`
	Levels      []models.EscalationLevel `json:"levels"`
}

func (h *Handlers) CreatePolicy(c *gin.Context) {
	var req policyCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid policy payload")
		return
	}

	policy := &models.EscalationPolicy{
		Name:        req.Name,
		Description: req.Description,
		RepeatCount: req.RepeatCount,
		Levels:      req.Levels,
	}
	if err := h.escalations.CreatePolicy(c.Request.Context(), policy); err != nil {
		response.ServerError(c, "Failed to create policy")
		return
	}
	response.Created(c, policy)
}

func (h *Handlers) GetPolicy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	policy, err := h.escalations.GetPolicy(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Policy not found")
			return
		}
		response.ServerError(c, "Failed to load policy")
		return
	}
	response.OK(c, policy)
}

type policyUpdateRequest struct {
	Name        *string                   `json:"name"`
	Description *string                   `json:"description"`
	RepeatCount *int                      `json:"repeat_count"`
	Levels      *[]models.EscalationLevel `json:"levels"`
}

func (h *Handlers) UpdatePolicy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req policyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid policy payload")
		return
	}

	ctx := c.Request.Context()
	policy, err := h.escalations.GetPolicy(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Policy not found")
			return
		}
		response.ServerError(c, "Failed to load policy")
		return
	}

	if req.Name != nil {
		policy.Name = *req.Name
	}
	if req.Description != nil {
		policy.Description = req.Description
	}
	if req.RepeatCount != nil {
		policy.RepeatCount = *req.RepeatCount
	}
	if req.Levels != nil {
		policy.Levels = *req.Levels
	}

	if err := h.escalations.UpdatePolicy(ctx, policy); err != nil {
		response.ServerError(c, "Failed to update policy")
		return
	}
	response.OK(c, policy)
}

func (h *Handlers) DeletePolicy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.escalations.DeletePolicy(c.Request.Context(), id)
	if err != nil {
		response.ServerError(c, "Failed to delete policy")
		return
	}
	if !deleted {
		response.NotFound(c, "Policy not found")
		return
	}
	response.NoContent(c)
}

// Service mappings

func (h *Handlers) ListMappings(c *gin.Context) {
	mappings, err := h.escalations.ListMappings(c.Request.Context())
	if err != nil {
		response.ServerError(c, "Failed to list mappings")
		return
	}
	if mappings == nil {
		mappings = []models.ServiceEscalationMapping{}
	}
	response.OK(c, mappings)
}

type mappingCreateRequest struct {
	ServicePattern     string    `json:"service_pattern" binding:"required"`
	SeverityFilter     []string  `json:"severity_filter"`
	EscalationPolicyID uuid.UUID `json:"escalation_policy_id" binding:"required"`
	Priority           int       `json:"priority"`
}

func (h *Handlers) CreateMapping(c *gin.Context) {
	var req mappingCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid mapping payload")
		return
	}
	ctx := c.Request.Context()

	if _, err := h.escalations.GetPolicy(ctx, req.EscalationPolicyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.BadRequest(c, "Unknown escalation_policy_id")
			return
		}
		response.ServerError(c, "Failed to load policy")
		return
	}

	mapping := &models.ServiceEscalationMapping{
		ServicePattern:     req.ServicePattern,
		SeverityFilter:     req.SeverityFilter,
		EscalationPolicyID: req.EscalationPolicyID,
		Priority:           req.Priority,
	}
	if err := h.escalations.CreateMapping(ctx, mapping); err != nil {
		response.ServerError(c, "Failed to create mapping")
		return
	}
	response.Created(c, mapping)
}

func (h *Handlers) DeleteMapping(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.escalations.DeleteMapping(c.Request.Context(), id)
	if err != nil {
		response.ServerError(c, "Failed to delete mapping")
		return
	}
	if !deleted {
		response.NotFound(c, "Mapping not found")
		return
	}
	response.NoContent(c)
}
