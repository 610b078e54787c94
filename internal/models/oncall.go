package models

import (
	"time"

	"github.com/google/uuid"
)

type RotationType string

const (
	RotationHourly RotationType = "hourly"
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationCustom RotationType = "custom"
)

func (r RotationType) Valid() bool {
	switch r {
	case RotationHourly, RotationDaily, RotationWeekly, RotationCustom:
		return true
	}
	return false
}

// ScheduleMember is one entry of a schedule's ordered rotation.
type ScheduleMember struct {
	UserID uuid.UUID `json:"user_id"`
	Order  int       `json:"order"`
}

type OnCallSchedule struct {
	ID                    uuid.UUID        `json:"id"`
	Name                  string           `json:"name"`
	Description           *string          `json:"description"`
	Timezone              string           `json:"timezone"`
	RotationType          RotationType     `json:"rotation_type"`
	Members               []ScheduleMember `json:"members"`
	HandoffTime           string           `json:"handoff_time"`
	RotationIntervalDays  int              `json:"rotation_interval_days"`
	RotationIntervalHours int              `json:"rotation_interval_hours"`
	EffectiveFrom         time.Time        `json:"effective_from"`
	IsActive              bool             `json:"is_active"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`

	Overrides []OnCallOverride `json:"overrides,omitempty"`
}

type OnCallOverride struct {
	ID         uuid.UUID `json:"id"`
	ScheduleID uuid.UUID `json:"schedule_id"`
	UserID     uuid.UUID `json:"user_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Reason     *string   `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// EscalationTarget is either a user or a schedule whose current on-call
// user is resolved at walk time.
type EscalationTarget struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
}

type EscalationLevel struct {
	Level          int                `json:"level"`
	Targets        []EscalationTarget `json:"targets"`
	TimeoutMinutes int                `json:"timeout_minutes"`
}

type EscalationPolicy struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	RepeatCount int               `json:"repeat_count"`
	Levels      []EscalationLevel `json:"levels"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type ServiceEscalationMapping struct {
	ID                 uuid.UUID `json:"id"`
	ServicePattern     string    `json:"service_pattern"`
	SeverityFilter     []string  `json:"severity_filter"`
	EscalationPolicyID uuid.UUID `json:"escalation_policy_id"`
	Priority           int       `json:"priority"`
	CreatedAt          time.Time `json:"created_at"`
}

type RunbookRule struct {
	ID                 uuid.UUID `json:"id"`
	ServicePattern     string    `json:"service_pattern"`
	NamePattern        *string   `json:"name_pattern"`
	RunbookURLTemplate string    `json:"runbook_url_template"`
	Description        *string   `json:"description"`
	Priority           int       `json:"priority"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
