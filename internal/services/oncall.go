package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/springdom/solace/internal/models"
	"github.com/springdom/solace/internal/repository"
)

// OnCallService resolves who is on call for a schedule and which users an
// escalation level targets.
type OnCallService struct {
	schedules  *repository.ScheduleRepository
	escalation *repository.EscalationRepository
	users      *repository.UserRepository
}

func NewOnCallService(db *repository.Database) *OnCallService {
	return &OnCallService{
		schedules:  repository.NewScheduleRepository(db),
		escalation: repository.NewEscalationRepository(db),
		users:      repository.NewUserRepository(db),
	}
}

// CurrentOnCall determines who is on call for the schedule at the given
// instant. Overrides take priority over the rotation; the newest-created
// covering override wins.
func (s *OnCallService) CurrentOnCall(ctx context.Context, scheduleID uuid.UUID, at time.Time) (*models.User, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !schedule.IsActive {
		return nil, nil
	}

	overrides, err := s.schedules.ListOverrides(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if o := pickOverride(overrides, at); o != nil {
		return s.activeUser(ctx, o.UserID)
	}

	index := RotationIndex(schedule, at)
	if index < 0 {
		return nil, nil
	}
	return s.activeUser(ctx, schedule.Members[index].UserID)
}

// pickOverride returns the first override covering the instant. Overrides
// arrive newest-created first, so that one wins when windows overlap.
func pickOverride(overrides []models.OnCallOverride, at time.Time) *models.OnCallOverride {
	for i := range overrides {
		if !overrides[i].StartsAt.After(at) && overrides[i].EndsAt.After(at) {
			return &overrides[i]
		}
	}
	return nil
}

func (s *OnCallService) activeUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}
	return user, nil
}

// RotationIndex computes which member of the rotation is on call at the
// given instant, or -1 when the schedule has no members. Rotation position
// is measured from the first handoff after effective_from, evaluated in the
// schedule's timezone.
func RotationIndex(schedule *models.OnCallSchedule, at time.Time) int {
	if len(schedule.Members) == 0 {
		return -1
	}

	tz, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		tz = time.UTC
	}

	now := at.In(tz)
	effective := schedule.EffectiveFrom.In(tz)

	handoffHour, handoffMinute := parseHandoffTime(schedule.HandoffTime)
	effectiveHandoff := time.Date(effective.Year(), effective.Month(), effective.Day(),
		handoffHour, handoffMinute, 0, 0, tz)
	if effective.After(effectiveHandoff) {
		effectiveHandoff = effectiveHandoff.AddDate(0, 0, 1)
	}

	delta := now.Sub(effectiveHandoff)
	if delta < 0 {
		// Before the first handoff the first member is on call.
		return 0
	}

	n := len(schedule.Members)
	if schedule.RotationType == models.RotationHourly {
		intervalHours := schedule.RotationIntervalHours
		if intervalHours <= 0 {
			intervalHours = 1
		}
		rotations := int(delta.Seconds()) / (intervalHours * 3600)
		return rotations % n
	}

	var intervalDays int
	switch schedule.RotationType {
	case models.RotationDaily:
		intervalDays = 1
	case models.RotationWeekly:
		intervalDays = 7
	default:
		intervalDays = schedule.RotationIntervalDays
		if intervalDays <= 0 {
			intervalDays = 7
		}
	}
	daysElapsed := int(delta.Hours()) / 24
	return (daysElapsed / intervalDays) % n
}

// parseHandoffTime parses "HH:MM" (minutes optional), defaulting to 09:00.
func parseHandoffTime(handoff string) (hour, minute int) {
	if handoff == "" {
		handoff = "09:00"
	}
	parts := strings.SplitN(handoff, ":", 2)
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 9, 0
	}
	m := 0
	if len(parts) > 1 {
		if parsed, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			m = parsed
		}
	}
	return h, m
}

// FindEscalationPolicy returns the policy of the first mapping whose
// service pattern matches. Mappings are evaluated in priority order; a
// severity filter only applies when both the filter and severity are set.
func (s *OnCallService) FindEscalationPolicy(ctx context.Context, service, severity string) (*models.EscalationPolicy, error) {
	if service == "" {
		service = "*"
	}

	mappings, err := s.escalation.ListMappings(ctx)
	if err != nil {
		return nil, err
	}

	for _, mapping := range mappings {
		if !mappingMatches(mapping, service, severity) {
			continue
		}
		policy, err := s.escalation.GetPolicy(ctx, mapping.EscalationPolicyID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, err
		}
		return policy, nil
	}
	return nil, nil
}

// mappingMatches reports whether a mapping applies to the service and
// severity. The severity filter only constrains the match when both the
// filter and the severity are set.
func mappingMatches(mapping models.ServiceEscalationMapping, service, severity string) bool {
	if !matchPattern(mapping.ServicePattern, service) {
		return false
	}
	if len(mapping.SeverityFilter) > 0 && severity != "" &&
		!containsString(mapping.SeverityFilter, severity) {
		return false
	}
	return true
}

// ResolveEscalationTargets expands the targets of one escalation level into
// concrete active users, de-duplicated by user id. Schedule targets resolve
// to their current on-call user.
func (s *OnCallService) ResolveEscalationTargets(ctx context.Context, policyID uuid.UUID, level int) ([]models.User, error) {
	policy, err := s.escalation.GetPolicy(ctx, policyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var targetLevel *models.EscalationLevel
	for i := range policy.Levels {
		if policy.Levels[i].Level == level {
			targetLevel = &policy.Levels[i]
			break
		}
	}
	if targetLevel == nil {
		return nil, nil
	}

	var users []models.User
	seen := map[uuid.UUID]bool{}
	for _, target := range targetLevel.Targets {
		if target.ID == uuid.Nil {
			continue
		}
		var user *models.User
		switch target.Type {
		case "schedule":
			user, err = s.CurrentOnCall(ctx, target.ID, time.Now().UTC())
		case "user":
			user, err = s.activeUser(ctx, target.ID)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		if user != nil && !seen[user.ID] {
			seen[user.ID] = true
			users = append(users, *user)
		}
	}
	return users, nil
}
