package services

import (
	"github.com/springdom/solace/internal/models"
)

// MatchesSilence reports whether the alert is covered by the silence's
// matchers. Clauses are AND-combined; a clause that is empty matches
// everything.
func MatchesSilence(matchers models.SilenceMatchers, alert *models.Alert) bool {
	if len(matchers.Service) > 0 {
		service := ""
		if alert.Service != nil {
			service = *alert.Service
		}
		if !containsString(matchers.Service, service) {
			return false
		}
	}

	if len(matchers.Severity) > 0 {
		if !containsString(matchers.Severity, string(alert.Severity)) {
			return false
		}
	}

	for key, want := range matchers.Labels {
		if alert.Labels[key] != want {
			return false
		}
	}
	return true
}

// FindSilence returns the first silence whose matchers cover the alert, or
// nil when none do. Callers pass silences whose window covers now.
func FindSilence(silences []models.SilenceWindow, alert *models.Alert) *models.SilenceWindow {
	for i := range silences {
		if MatchesSilence(silences[i].Matchers, alert) {
			return &silences[i]
		}
	}
	return nil
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
