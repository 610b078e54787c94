package handlers

import (
	"encoding/json"
	"testing"

	"github.com/springdom/solace/internal/config"
	"github.com/springdom/solace/internal/models"
)

func TestValidateChannelConfig(t *testing.T) {
	tests := []struct {
		name        string
		channelType models.ChannelType
		config      models.ChannelConfig
		wantDetail  string
	}{
		{
			"slack ok",
			models.ChannelSlack,
			models.ChannelConfig{WebhookURL: "https://hooks.slack.com/services/T/B/x"},
			"",
		},
		{
			"slack missing url",
			models.ChannelSlack,
			models.ChannelConfig{},
			"Slack channels require 'webhook_url' in config",
		},
		{
			"email ok",
			models.ChannelEmail,
			models.ChannelConfig{Recipients: []string{"oncall@example.com"}},
			"",
		},
		{
			"email no recipients",
			models.ChannelEmail,
			models.ChannelConfig{},
			"Email channels require 'recipients' list in config",
		},
		{
			"email bad recipient",
			models.ChannelEmail,
			models.ChannelConfig{Recipients: []string{"not-an-email"}},
			"Invalid recipient email: not-an-email",
		},
		{
			"teams missing url",
			models.ChannelTeams,
			models.ChannelConfig{},
			"Teams channels require 'webhook_url' in config",
		},
		{
			"webhook missing url",
			models.ChannelWebhook,
			models.ChannelConfig{},
			"Webhook channels require 'webhook_url' in config",
		},
		{
			"webhook malformed url",
			models.ChannelWebhook,
			models.ChannelConfig{WebhookURL: "not a url"},
			"Invalid webhook_url in config",
		},
		{
			"pagerduty ok",
			models.ChannelPagerDuty,
			models.ChannelConfig{RoutingKey: "R0123456789"},
			"",
		},
		{
			"pagerduty missing key",
			models.ChannelPagerDuty,
			models.ChannelConfig{},
			"PagerDuty channels require 'routing_key' in config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validateChannelConfig(tt.channelType, tt.config)
			if got != tt.wantDetail {
				t.Fatalf("validateChannelConfig() = %q, want %q", got, tt.wantDetail)
			}
		})
	}
}

func TestHubAuthorized(t *testing.T) {
	hub := NewHub(config.Config{APIKey: "the-key", AppEnv: "production"})

	if !hub.authorized("the-key") {
		t.Fatal("correct token rejected")
	}
	if hub.authorized("wrong") {
		t.Fatal("wrong token accepted")
	}
	if hub.authorized("") {
		t.Fatal("empty token accepted")
	}

	dev := NewHub(config.Config{AppEnv: "development"})
	if !dev.authorized("") {
		t.Fatal("dev bypass with empty key should allow")
	}
}

func TestHubPublishFrame(t *testing.T) {
	hub := NewHub(config.Config{AppEnv: "production", APIKey: "k"})

	hub.Publish("alert.created", map[string]any{"alert_id": "abc"})

	select {
	case payload := <-hub.broadcast:
		var frame struct {
			Type string         `json:"type"`
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal(payload, &frame); err != nil {
			t.Fatal(err)
		}
		if frame.Type != "alert.created" {
			t.Fatalf("type = %q", frame.Type)
		}
		if frame.Data["alert_id"] != "abc" {
			t.Fatalf("data = %v", frame.Data)
		}
	default:
		t.Fatal("Publish did not enqueue a frame")
	}
}

func TestValidateScheduleTiming(t *testing.T) {
	base := func() *models.OnCallSchedule {
		return &models.OnCallSchedule{
			Timezone:              "UTC",
			HandoffTime:           "09:00",
			RotationIntervalDays:  7,
			RotationIntervalHours: 1,
		}
	}

	tests := []struct {
		name       string
		mutate     func(*models.OnCallSchedule)
		wantDetail string
	}{
		{"valid", func(s *models.OnCallSchedule) {}, ""},
		{"named zone", func(s *models.OnCallSchedule) { s.Timezone = "America/New_York" }, ""},
		{"unknown zone", func(s *models.OnCallSchedule) { s.Timezone = "Not/AZone" },
			"Invalid timezone: Not/AZone"},
		{"handoff no colon", func(s *models.OnCallSchedule) { s.HandoffTime = "9" },
			"Invalid handoff_time: must be HH:MM"},
		{"handoff hour out of range", func(s *models.OnCallSchedule) { s.HandoffTime = "24:00" },
			"Invalid handoff_time: must be HH:MM"},
		{"handoff minute out of range", func(s *models.OnCallSchedule) { s.HandoffTime = "09:60" },
			"Invalid handoff_time: must be HH:MM"},
		{"handoff not numeric", func(s *models.OnCallSchedule) { s.HandoffTime = "ab:cd" },
			"Invalid handoff_time: must be HH:MM"},
		{"hours too small", func(s *models.OnCallSchedule) { s.RotationIntervalHours = 0 },
			"rotation_interval_hours must be between 1 and 720"},
		{"hours too large", func(s *models.OnCallSchedule) { s.RotationIntervalHours = 721 },
			"rotation_interval_hours must be between 1 and 720"},
		{"days too small", func(s *models.OnCallSchedule) { s.RotationIntervalDays = 0 },
			"rotation_interval_days must be between 1 and 365"},
		{"days too large", func(s *models.OnCallSchedule) { s.RotationIntervalDays = 366 },
			"rotation_interval_days must be between 1 and 365"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			if got := validateScheduleTiming(s); got != tt.wantDetail {
				t.Fatalf("validateScheduleTiming() = %q, want %q", got, tt.wantDetail)
			}
		})
	}
}
