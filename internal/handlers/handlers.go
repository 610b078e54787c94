package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/springdom/solace/internal/config"
	"github.com/springdom/solace/internal/middleware"
	"github.com/springdom/solace/internal/repository"
	"github.com/springdom/solace/internal/services"
)

// Handlers aggregates every HTTP handler group and their dependencies.
type Handlers struct {
	cfg config.Config
	db  *repository.Database

	alerts      *repository.AlertRepository
	occurrences *repository.OccurrenceRepository
	notes       *repository.NoteRepository
	incidents   *repository.IncidentRepository
	silences    *repository.SilenceRepository
	channels    *repository.ChannelRepository
	logs        *repository.NotificationLogRepository
	schedules   *repository.ScheduleRepository
	escalations *repository.EscalationRepository
	runbooks    *repository.RunbookRepository
	users       *repository.UserRepository
	stats       *repository.StatsRepository

	ingestor *services.Ingestor
	notifier *services.Notifier
	oncall   *services.OnCallService
	userSvc  *services.UserService
	hub      *Hub
}

func New(db *repository.Database, cfg config.Config, ingestor *services.Ingestor,
	notifier *services.Notifier, userSvc *services.UserService, hub *Hub) *Handlers {
	return &Handlers{
		cfg:         cfg,
		db:          db,
		alerts:      repository.NewAlertRepository(db),
		occurrences: repository.NewOccurrenceRepository(db),
		notes:       repository.NewNoteRepository(db),
		incidents:   repository.NewIncidentRepository(db),
		silences:    repository.NewSilenceRepository(db),
		channels:    repository.NewChannelRepository(db),
		logs:        repository.NewNotificationLogRepository(db),
		schedules:   repository.NewScheduleRepository(db),
		escalations: repository.NewEscalationRepository(db),
		runbooks:    repository.NewRunbookRepository(db),
		users:       repository.NewUserRepository(db),
		stats:       repository.NewStatsRepository(db),
		ingestor:    ingestor,
		notifier:    notifier,
		oncall:      services.NewOnCallService(db),
		userSvc:     userSvc,
		hub:         hub,
	}
}

// Register wires all routes onto the engine. Health checks live at the
// root; everything else sits under the API prefix.
func (h *Handlers) Register(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)

	api := r.Group(h.cfg.APIPrefix)

	// Machine endpoints: API key only.
	webhooks := api.Group("/webhooks", middleware.APIKeyAuth(h.cfg.APIKey, h.cfg.IsDev()))
	webhooks.POST("/:provider", h.ReceiveWebhook)

	// WebSocket auth happens in the handler via the token query param.
	api.GET("/ws", h.ServeWS)

	api.POST("/auth/login", h.Login)

	authed := api.Group("", middleware.Authenticate(h.cfg.SecretKey, h.cfg.APIKey, h.cfg.IsDev()))
	{
		authed.GET("/auth/me", h.CurrentUser)
		authed.POST("/auth/change-password", h.ChangePassword)

		authed.GET("/alerts", h.ListAlerts)
		authed.GET("/alerts/:id", h.GetAlert)
		authed.POST("/alerts/bulk/acknowledge", h.BulkAcknowledgeAlerts)
		authed.POST("/alerts/bulk/resolve", h.BulkResolveAlerts)
		authed.POST("/alerts/:id/acknowledge", h.AcknowledgeAlert)
		authed.POST("/alerts/:id/resolve", h.ResolveAlert)
		authed.PUT("/alerts/:id/tags", h.SetAlertTags)
		authed.POST("/alerts/:id/tags/:tag", h.AddAlertTag)
		authed.DELETE("/alerts/:id/tags/:tag", h.RemoveAlertTag)
		authed.GET("/alerts/:id/notes", h.ListAlertNotes)
		authed.POST("/alerts/:id/notes", h.AddAlertNote)
		authed.GET("/alerts/:id/occurrences", h.ListAlertOccurrences)
		authed.PUT("/alerts/notes/:note_id", h.UpdateAlertNote)
		authed.DELETE("/alerts/notes/:note_id", h.DeleteAlertNote)

		authed.GET("/incidents", h.ListIncidents)
		authed.GET("/incidents/:id", h.GetIncident)

		actors := authed.Group("", middleware.RequireRole("admin", "user"))
		{
			actors.POST("/incidents/:id/acknowledge", h.AcknowledgeIncident)
			actors.POST("/incidents/:id/resolve", h.ResolveIncident)
		}

		authed.GET("/stats", h.DashboardStats)
		authed.GET("/settings", h.Settings)

		authed.GET("/silences", h.ListSilences)
		authed.POST("/silences", h.CreateSilence)
		authed.GET("/silences/:id", h.GetSilence)
		authed.PUT("/silences/:id", h.UpdateSilence)
		authed.DELETE("/silences/:id", h.DeleteSilence)

		authed.GET("/notifications/channels", h.ListChannels)
		authed.POST("/notifications/channels", h.CreateChannel)
		authed.GET("/notifications/channels/:id", h.GetChannel)
		authed.PUT("/notifications/channels/:id", h.UpdateChannel)
		authed.DELETE("/notifications/channels/:id", h.DeleteChannel)
		authed.POST("/notifications/channels/:id/test", h.TestChannel)
		authed.GET("/notifications/logs", h.ListNotificationLogs)

		authed.GET("/oncall/schedules", h.ListSchedules)
		authed.GET("/oncall/schedules/:id", h.GetSchedule)
		authed.GET("/oncall/schedules/:id/current", h.CurrentOnCall)
		authed.GET("/oncall/policies", h.ListPolicies)
		authed.GET("/oncall/policies/:id", h.GetPolicy)
		authed.GET("/oncall/mappings", h.ListMappings)

		authed.GET("/runbooks/rules", h.ListRunbookRules)

		admins := authed.Group("", middleware.RequireRole("admin"))
		{
			admins.POST("/oncall/schedules", h.CreateSchedule)
			admins.PUT("/oncall/schedules/:id", h.UpdateSchedule)
			admins.DELETE("/oncall/schedules/:id", h.DeleteSchedule)
			admins.POST("/oncall/schedules/:id/overrides", h.CreateOverride)
			admins.DELETE("/oncall/overrides/:override_id", h.DeleteOverride)
			admins.POST("/oncall/policies", h.CreatePolicy)
			admins.PUT("/oncall/policies/:id", h.UpdatePolicy)
			admins.DELETE("/oncall/policies/:id", h.DeletePolicy)
			admins.POST("/oncall/mappings", h.CreateMapping)
			admins.DELETE("/oncall/mappings/:id", h.DeleteMapping)

			admins.POST("/runbooks/rules", h.CreateRunbookRule)
			admins.PUT("/runbooks/rules/:id", h.UpdateRunbookRule)
			admins.DELETE("/runbooks/rules/:id", h.DeleteRunbookRule)

			admins.GET("/users", h.ListUsers)
			admins.POST("/users", h.CreateUser)
			admins.PUT("/users/:id", h.UpdateUser)
			admins.POST("/users/:id/reset-password", h.ResetUserPassword)
			admins.DELETE("/users/:id", h.DeleteUser)
		}
	}
}
