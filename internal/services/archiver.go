package services

import (
	"context"
	"log"
	"time"

	"github.com/springdom/solace/internal/config"
	"github.com/springdom/solace/internal/repository"
)

// Archiver periodically moves old resolved alerts to archived status so
// the active views stay small.
type Archiver struct {
	alerts    *repository.AlertRepository
	retention time.Duration
	interval  time.Duration
}

func NewArchiver(db *repository.Database, cfg config.Config) *Archiver {
	return &Archiver{
		alerts:    repository.NewAlertRepository(db),
		retention: time.Duration(cfg.AlertRetentionDays) * 24 * time.Hour,
		interval:  time.Duration(cfg.ArchiveIntervalMinutes) * time.Minute,
	}
}

// RunOnce archives alerts resolved longer ago than the retention period.
func (a *Archiver) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-a.retention)
	return a.alerts.ArchiveResolvedBefore(ctx, cutoff)
}

// Run archives on the configured interval until the context is canceled.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		archived, err := a.RunOnce(ctx)
		if err != nil {
			log.Printf("archiver: %v", err)
		} else if archived > 0 {
			log.Printf("archiver: archived %d alerts", archived)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
