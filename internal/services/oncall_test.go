package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/springdom/solace/internal/models"
)

func testSchedule(members int, rotation models.RotationType) *models.OnCallSchedule {
	s := &models.OnCallSchedule{
		Timezone:      "UTC",
		RotationType:  rotation,
		HandoffTime:   "09:00",
		EffectiveFrom: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	for i := 0; i < members; i++ {
		s.Members = append(s.Members, models.ScheduleMember{UserID: uuid.New(), Order: i})
	}
	return s
}

func TestRotationIndexNoMembers(t *testing.T) {
	s := testSchedule(0, models.RotationWeekly)
	if got := RotationIndex(s, time.Now()); got != -1 {
		t.Fatalf("RotationIndex() = %d, want -1", got)
	}
}

func TestRotationIndexDaily(t *testing.T) {
	s := testSchedule(3, models.RotationDaily)

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"before first handoff", time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC), 0},
		{"after first handoff", time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), 0},
		{"second day", time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC), 1},
		{"third day", time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC), 2},
		{"wraps around", time.Date(2026, 1, 8, 10, 0, 0, 0, time.UTC), 0},
		{"just before next handoff stays", time.Date(2026, 1, 6, 8, 59, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RotationIndex(s, tt.at); got != tt.want {
				t.Fatalf("RotationIndex(%s) = %d, want %d", tt.at, got, tt.want)
			}
		})
	}
}

func TestRotationIndexWeekly(t *testing.T) {
	s := testSchedule(2, models.RotationWeekly)

	week0 := time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)
	if got := RotationIndex(s, week0); got != 0 {
		t.Fatalf("first week: got %d, want 0", got)
	}
	week1 := time.Date(2026, 1, 13, 12, 0, 0, 0, time.UTC)
	if got := RotationIndex(s, week1); got != 1 {
		t.Fatalf("second week: got %d, want 1", got)
	}
	week2 := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	if got := RotationIndex(s, week2); got != 0 {
		t.Fatalf("third week wraps: got %d, want 0", got)
	}
}

func TestRotationIndexHourly(t *testing.T) {
	s := testSchedule(3, models.RotationHourly)
	s.RotationIntervalHours = 2

	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		offset time.Duration
		want   int
	}{
		{0, 0},
		{90 * time.Minute, 0},
		{2 * time.Hour, 1},
		{5 * time.Hour, 2},
		{6 * time.Hour, 0},
	}
	for _, tt := range tests {
		if got := RotationIndex(s, base.Add(tt.offset)); got != tt.want {
			t.Errorf("RotationIndex(+%s) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestRotationIndexEffectiveAfterHandoff(t *testing.T) {
	s := testSchedule(2, models.RotationDaily)
	// Effective from noon: the first handoff is 09:00 the next day.
	s.EffectiveFrom = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	sameDay := time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC)
	if got := RotationIndex(s, sameDay); got != 0 {
		t.Fatalf("before first handoff: got %d, want 0", got)
	}
	nextDay := time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC)
	if got := RotationIndex(s, nextDay); got != 0 {
		t.Fatalf("first shift after handoff: got %d, want 0", got)
	}
	dayAfter := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	if got := RotationIndex(s, dayAfter); got != 1 {
		t.Fatalf("second shift: got %d, want 1", got)
	}
}

func TestRotationIndexCustomInterval(t *testing.T) {
	s := testSchedule(2, models.RotationCustom)
	s.RotationIntervalDays = 3

	day2 := time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)
	if got := RotationIndex(s, day2); got != 0 {
		t.Fatalf("inside first interval: got %d, want 0", got)
	}
	day4 := time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC)
	if got := RotationIndex(s, day4); got != 1 {
		t.Fatalf("second interval: got %d, want 1", got)
	}
}

func TestParseHandoffTime(t *testing.T) {
	tests := []struct {
		input      string
		hour, mins int
	}{
		{"09:00", 9, 0},
		{"17:30", 17, 30},
		{"8", 8, 0},
		{"", 9, 0},
		{"bogus", 9, 0},
		{"10:xx", 10, 0},
	}
	for _, tt := range tests {
		h, m := parseHandoffTime(tt.input)
		if h != tt.hour || m != tt.mins {
			t.Errorf("parseHandoffTime(%q) = %d:%d, want %d:%d", tt.input, h, m, tt.hour, tt.mins)
		}
	}
}

func TestMappingMatches(t *testing.T) {
	mapping := func(pattern string, filter ...string) models.ServiceEscalationMapping {
		return models.ServiceEscalationMapping{ServicePattern: pattern, SeverityFilter: filter}
	}

	tests := []struct {
		name     string
		mapping  models.ServiceEscalationMapping
		service  string
		severity string
		want     bool
	}{
		{"exact service", mapping("checkout"), "checkout", "high", true},
		{"glob service", mapping("payments-*"), "payments-api", "high", true},
		{"glob mismatch", mapping("payments-*"), "checkout", "high", false},
		{"wildcard matches anything", mapping("*"), "checkout", "low", true},
		{"severity in filter", mapping("*", "high", "critical"), "checkout", "critical", true},
		{"severity not in filter", mapping("*", "high", "critical"), "checkout", "warning", false},
		{"empty severity ignores filter", mapping("*", "high"), "checkout", "", true},
		{"empty filter accepts any severity", mapping("*"), "checkout", "info", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mappingMatches(tt.mapping, tt.service, tt.severity); got != tt.want {
				t.Fatalf("mappingMatches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRotationIndexBadTimezoneFallsBackToUTC(t *testing.T) {
	s := testSchedule(2, models.RotationDaily)
	s.Timezone = "Not/AZone"

	at := time.Date(2026, 1, 6, 12, 0, 0, 0, time.UTC)
	if got := RotationIndex(s, at); got != 1 {
		t.Fatalf("RotationIndex() = %d, want 1", got)
	}
}

func TestPickOverride(t *testing.T) {
	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	userA, userB := uuid.New(), uuid.New()
	window := func(user uuid.UUID, from, to time.Time) models.OnCallOverride {
		return models.OnCallOverride{UserID: user, StartsAt: from, EndsAt: to}
	}

	covering := window(userA, at.Add(-time.Hour), at.Add(time.Hour))
	past := window(userB, at.Add(-3*time.Hour), at.Add(-2*time.Hour))
	future := window(userB, at.Add(time.Hour), at.Add(2*time.Hour))

	if got := pickOverride(nil, at); got != nil {
		t.Fatalf("no overrides: got %v", got)
	}
	if got := pickOverride([]models.OnCallOverride{past, future}, at); got != nil {
		t.Fatalf("none covering: got %v", got)
	}
	if got := pickOverride([]models.OnCallOverride{past, covering}, at); got == nil || got.UserID != userA {
		t.Fatalf("covering override not selected: %v", got)
	}

	// Newest-created first in the slice wins on overlap.
	newer := window(userB, at.Add(-time.Minute), at.Add(time.Minute))
	if got := pickOverride([]models.OnCallOverride{newer, covering}, at); got == nil || got.UserID != userB {
		t.Fatalf("overlap precedence: %v", got)
	}

	// Window end is exclusive.
	ending := window(userA, at.Add(-time.Hour), at)
	if got := pickOverride([]models.OnCallOverride{ending}, at); got != nil {
		t.Fatalf("ends_at should be exclusive: %v", got)
	}
}
