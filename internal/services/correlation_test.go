package services

import (
	"testing"

	"github.com/springdom/solace/internal/models"
)

func TestIncidentTitle(t *testing.T) {
	withService := &models.Alert{Name: "HighErrorRate", Service: strPtr("checkout")}
	if got := incidentTitle(withService); got != "checkout — HighErrorRate" {
		t.Fatalf("incidentTitle() = %q", got)
	}

	noService := &models.Alert{Name: "HighErrorRate"}
	if got := incidentTitle(noService); got != "HighErrorRate" {
		t.Fatalf("incidentTitle() = %q", got)
	}

	emptyService := &models.Alert{Name: "HighErrorRate", Service: strPtr("")}
	if got := incidentTitle(emptyService); got != "HighErrorRate" {
		t.Fatalf("incidentTitle() with empty service = %q", got)
	}
}
