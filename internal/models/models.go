package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Severity is totally ordered: info < low < warning < high < critical.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityOrder = []Severity{
	SeverityInfo,
	SeverityLow,
	SeverityWarning,
	SeverityHigh,
	SeverityCritical,
}

// Rank returns the position of s in the severity order, 0 for unknown values.
func (s Severity) Rank() int {
	for i, v := range severityOrder {
		if v == s {
			return i
		}
	}
	return 0
}

func (s Severity) Valid() bool {
	for _, v := range severityOrder {
		if v == s {
			return true
		}
	}
	return false
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// PreviousSeverity returns the predecessor of s in the severity order,
// or s itself when s is already the lowest.
func PreviousSeverity(s Severity) Severity {
	r := s.Rank()
	if r == 0 {
		return s
	}
	return severityOrder[r-1]
}

type AlertStatus string

const (
	AlertFiring       AlertStatus = "firing"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
	AlertSuppressed   AlertStatus = "suppressed"
	AlertArchived     AlertStatus = "archived"
)

func (s AlertStatus) Valid() bool {
	switch s {
	case AlertFiring, AlertAcknowledged, AlertResolved, AlertSuppressed, AlertArchived:
		return true
	}
	return false
}

type IncidentStatus string

const (
	IncidentOpen         IncidentStatus = "open"
	IncidentAcknowledged IncidentStatus = "acknowledged"
	IncidentResolved     IncidentStatus = "resolved"
)

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleUser   UserRole = "user"
	RoleViewer UserRole = "viewer"
)

type ChannelType string

const (
	ChannelSlack     ChannelType = "slack"
	ChannelEmail     ChannelType = "email"
	ChannelTeams     ChannelType = "teams"
	ChannelWebhook   ChannelType = "webhook"
	ChannelPagerDuty ChannelType = "pagerduty"
)

func (t ChannelType) Valid() bool {
	switch t {
	case ChannelSlack, ChannelEmail, ChannelTeams, ChannelWebhook, ChannelPagerDuty:
		return true
	}
	return false
}

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Alert is a single monitored signal, deduplicated across repeated firings.
type Alert struct {
	ID             uuid.UUID         `json:"id"`
	Fingerprint    string            `json:"fingerprint"`
	Source         string            `json:"source"`
	SourceInstance *string           `json:"source_instance"`
	Status         AlertStatus       `json:"status"`
	Severity       Severity          `json:"severity"`
	Name           string            `json:"name"`
	Description    *string           `json:"description"`
	Service        *string           `json:"service"`
	Environment    *string           `json:"environment"`
	Host           *string           `json:"host"`
	Labels         map[string]string `json:"labels"`
	Annotations    map[string]string `json:"annotations"`
	Tags           []string          `json:"tags"`
	RawPayload     json.RawMessage   `json:"raw_payload,omitempty"`
	StartsAt       time.Time         `json:"starts_at"`
	EndsAt         *time.Time        `json:"ends_at"`
	LastReceivedAt time.Time         `json:"last_received_at"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at"`
	AcknowledgedBy *uuid.UUID        `json:"acknowledged_by"`
	ResolvedAt     *time.Time        `json:"resolved_at"`
	DuplicateCount int               `json:"duplicate_count"`
	GeneratorURL   *string           `json:"generator_url"`
	RunbookURL     *string           `json:"runbook_url"`
	TicketURL      *string           `json:"ticket_url"`
	ArchivedAt     *time.Time        `json:"archived_at"`
	IncidentID     *uuid.UUID        `json:"incident_id"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// AlertOccurrence records one receipt of an alert, initial or duplicate.
type AlertOccurrence struct {
	ID         uuid.UUID `json:"id"`
	AlertID    uuid.UUID `json:"alert_id"`
	ReceivedAt time.Time `json:"received_at"`
}

type AlertNote struct {
	ID        uuid.UUID `json:"id"`
	AlertID   uuid.UUID `json:"alert_id"`
	Text      string    `json:"text"`
	Author    *string   `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Incident groups related alerts believed to share a root cause.
type Incident struct {
	ID             uuid.UUID      `json:"id"`
	Title          string         `json:"title"`
	Status         IncidentStatus `json:"status"`
	Severity       Severity       `json:"severity"`
	Summary        *string        `json:"summary"`
	Phase          *string        `json:"phase"`
	StartedAt      time.Time      `json:"started_at"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at"`
	ResolvedAt     *time.Time     `json:"resolved_at"`
	AssignedTo     *uuid.UUID     `json:"assigned_to"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Alerts is populated by queries that load incident members.
	Alerts []Alert `json:"alerts"`
}

// IncidentEvent is an append-only audit record on an incident.
type IncidentEvent struct {
	ID          uuid.UUID       `json:"id"`
	IncidentID  uuid.UUID       `json:"incident_id"`
	EventType   string          `json:"event_type"`
	Description string          `json:"description"`
	Actor       *string         `json:"actor"`
	EventData   json.RawMessage `json:"event_data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

const (
	EventIncidentCreated      = "incident_created"
	EventAlertAdded           = "alert_added"
	EventSeverityChanged      = "severity_changed"
	EventIncidentAcknowledged = "incident_acknowledged"
	EventIncidentResolved     = "incident_resolved"
	EventIncidentAutoResolved = "incident_auto_resolved"
)

// SilenceMatchers are AND-combined clauses; empty clauses match everything.
type SilenceMatchers struct {
	Service  []string          `json:"service,omitempty"`
	Severity []string          `json:"severity,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
}

// UnmarshalJSON accepts scalar service/severity values and normalizes them
// to singleton lists.
func (m *SilenceMatchers) UnmarshalJSON(data []byte) error {
	var raw struct {
		Service  json.RawMessage   `json:"service"`
		Severity json.RawMessage   `json:"severity"`
		Labels   map[string]string `json:"labels"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Labels = raw.Labels
	var err error
	if m.Service, err = stringOrList(raw.Service); err != nil {
		return err
	}
	if m.Severity, err = stringOrList(raw.Severity); err != nil {
		return err
	}
	return nil
}

func stringOrList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return []string{single}, nil
}

type SilenceWindow struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Matchers  SilenceMatchers `json:"matchers"`
	StartsAt  time.Time       `json:"starts_at"`
	EndsAt    time.Time       `json:"ends_at"`
	CreatedBy *string         `json:"created_by"`
	Reason    *string         `json:"reason"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ChannelConfig is the provider-dependent configuration bag of a channel.
type ChannelConfig struct {
	WebhookURL  string            `json:"webhook_url,omitempty"`
	Recipients  []string          `json:"recipients,omitempty"`
	FromAddress string            `json:"from_address,omitempty"`
	RoutingKey  string            `json:"routing_key,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Secret      string            `json:"secret,omitempty"`
}

// ChannelFilters restricts which incidents a channel is notified about.
type ChannelFilters struct {
	Severity []string `json:"severity,omitempty"`
	Service  []string `json:"service,omitempty"`
}

type NotificationChannel struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	ChannelType ChannelType    `json:"channel_type"`
	Config      ChannelConfig  `json:"config"`
	Filters     ChannelFilters `json:"filters"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type NotificationLog struct {
	ID           uuid.UUID          `json:"id"`
	ChannelID    uuid.UUID          `json:"channel_id"`
	IncidentID   uuid.UUID          `json:"incident_id"`
	EventType    string             `json:"event_type"`
	Status       NotificationStatus `json:"status"`
	ErrorMessage *string            `json:"error_message"`
	SentAt       *time.Time         `json:"sent_at"`
	CreatedAt    time.Time          `json:"created_at"`
}

type User struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	Username           string     `json:"username"`
	HashedPassword     string     `json:"-"`
	DisplayName        string     `json:"display_name"`
	Role               UserRole   `json:"role"`
	IsActive           bool       `json:"is_active"`
	MustChangePassword bool       `json:"must_change_password"`
	LastLoginAt        *time.Time `json:"last_login_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
