package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// Service runs the recurring work: per-source scrape schedules, the
// external database sync, and scrape job retention. One cron instance
// owns all entries; source entries are re-registered on registry
// changes.
type Service struct {
	sources  interfaces.SourceStorage
	external interfaces.ExternalSourceStorage
	jobs     interfaces.JobStorage
	scraper  interfaces.ScraperService
	ingester interfaces.ExternalIngester
	cron     *cron.Cron
	logger   arbor.ILogger

	syncSchedule string
	jobRetention time.Duration

	mu      sync.Mutex
	entries map[string]cron.EntryID
	running bool
}

// NewService creates the scheduler. The ingester may be nil when no
// external sources are configured.
func NewService(
	storage interfaces.StorageManager,
	scraper interfaces.ScraperService,
	ingester interfaces.ExternalIngester,
	config *common.ExternalDBConfig,
	scraperConfig *common.ScraperConfig,
	logger arbor.ILogger,
) (*Service, error) {
	retention, err := time.ParseDuration(scraperConfig.JobRetention)
	if err != nil {
		return nil, fmt.Errorf("invalid job_retention: %w", err)
	}

	return &Service{
		sources:      storage.SourceStorage(),
		external:     storage.ExternalSourceStorage(),
		jobs:         storage.JobStorage(),
		scraper:      scraper,
		ingester:     ingester,
		cron:         cron.New(),
		logger:       logger,
		syncSchedule: config.SyncSchedule,
		jobRetention: retention,
		entries:      make(map[string]cron.EntryID),
	}, nil
}

// Start registers all schedules and begins the cron loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.mu.Unlock()

	sources, err := s.sources.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sources for scheduling: %w", err)
	}
	for _, source := range sources {
		if err := s.RegisterSource(source); err != nil {
			s.logger.Warn().Err(err).
				Str("source_id", source.ID).
				Str("schedule", source.Schedule).
				Msg("Skipping source with invalid schedule")
		}
	}

	if s.ingester != nil && s.syncSchedule != "" {
		if _, err := s.cron.AddFunc(s.syncSchedule, s.syncExternalSources); err != nil {
			return fmt.Errorf("invalid external sync schedule %q: %w", s.syncSchedule, err)
		}
	}

	// Retention runs daily in the quiet hours.
	if _, err := s.cron.AddFunc("30 3 * * *", s.purgeOldJobs); err != nil {
		return fmt.Errorf("failed to register retention schedule: %w", err)
	}

	s.cron.Start()
	s.logger.Info().
		Int("scheduled_sources", len(s.entries)).
		Str("sync_schedule", s.syncSchedule).
		Dur("job_retention", s.jobRetention).
		Msg("Scheduler started")
	return nil
}

// RegisterSource adds or replaces the cron entry for a source. Sources
// without a schedule, or disabled ones, only have any existing entry
// removed.
func (s *Service) RegisterSource(source *models.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[source.ID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, source.ID)
	}
	if source.Schedule == "" || !source.Enabled {
		return nil
	}

	sourceID := source.ID
	entryID, err := s.cron.AddFunc(source.Schedule, func() {
		s.triggerScrape(sourceID)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", source.Schedule, err)
	}
	s.entries[source.ID] = entryID
	return nil
}

// UnregisterSource removes the cron entry for a deleted source.
func (s *Service) UnregisterSource(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[sourceID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, sourceID)
	}
}

// ScheduledSources returns the IDs currently under cron control.
func (s *Service) ScheduledSources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Stop halts the cron loop and waits for in-flight entries.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) triggerScrape(sourceID string) {
	jobID, err := s.scraper.StartScrape(context.Background(), sourceID, nil)
	if err != nil {
		// A job already running for the source is expected overlap.
		s.logger.Warn().Err(err).Str("source_id", sourceID).Msg("Scheduled scrape not started")
		return
	}
	s.logger.Info().
		Str("source_id", sourceID).
		Str("job_id", jobID).
		Msg("Scheduled scrape started")
}

func (s *Service) syncExternalSources() {
	ctx := context.Background()
	sources, err := s.external.ListExternalSources(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list external sources for sync")
		return
	}

	for _, source := range sources {
		syncLog, err := s.ingester.Sync(ctx, source.ID, 0)
		if err != nil {
			s.logger.Error().Err(err).Str("source_id", source.ID).Msg("Scheduled external sync failed")
			continue
		}
		s.logger.Info().
			Str("source_id", source.ID).
			Int("processed", syncLog.Processed).
			Int("failed", syncLog.Failed).
			Msg("Scheduled external sync complete")
	}
}

func (s *Service) purgeOldJobs() {
	cutoff := time.Now().UTC().Add(-s.jobRetention)
	deleted, err := s.jobs.DeleteJobsBefore(context.Background(), cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("Job retention purge failed")
		return
	}
	if deleted > 0 {
		s.logger.Info().
			Int("deleted", deleted).
			Str("cutoff", cutoff.String()).
			Msg("Purged old scrape jobs")
	}
}
