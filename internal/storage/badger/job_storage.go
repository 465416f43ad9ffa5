package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/mandate-ai/mandate/internal/models"
)

// JobStorage implements interfaces.JobStorage using badgerhold
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new job storage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) *JobStorage {
	return &JobStorage{db: db, logger: logger}
}

// SaveJob creates or updates a scrape job record
func (s *JobStorage) SaveJob(ctx context.Context, job *models.ScrapeJob) error {
	if err := s.db.Store().Upsert(job.JobID, job); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.JobID, err)
	}
	return nil
}

// GetJob retrieves a scrape job by ID
func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.ScrapeJob, error) {
	var job models.ScrapeJob
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.NewError(models.KindNotFound, fmt.Sprintf("job %s not found", jobID))
		}
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	return &job, nil
}

// ListActiveJobs returns jobs in running or stopping state
func (s *JobStorage) ListActiveJobs(ctx context.Context) ([]*models.ScrapeJob, error) {
	var jobs []*models.ScrapeJob
	query := badgerhold.Where("Status").In(models.JobStatusRunning, models.JobStatusStopping)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}
	return jobs, nil
}

// ListJobsBySource returns all jobs for a source, newest first
func (s *JobStorage) ListJobsBySource(ctx context.Context, sourceID string) ([]*models.ScrapeJob, error) {
	var jobs []*models.ScrapeJob
	query := badgerhold.Where("SourceID").Eq(sourceID).SortBy("StartedAt").Reverse()
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs for source %s: %w", sourceID, err)
	}
	return jobs, nil
}

// DeleteJobsBefore purges terminal jobs started before the cutoff.
// Returns the number of jobs removed.
func (s *JobStorage) DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var jobs []*models.ScrapeJob
	query := badgerhold.Where("StartedAt").Lt(cutoff)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return 0, fmt.Errorf("failed to find jobs for purge: %w", err)
	}

	deleted := 0
	for _, job := range jobs {
		if !job.IsTerminal() {
			continue
		}
		if err := s.db.Store().Delete(job.JobID, &models.ScrapeJob{}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.JobID).Msg("Failed to purge job")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Debug().Int("deleted", deleted).Msg("Purged terminal jobs past retention")
	}
	return deleted, nil
}
