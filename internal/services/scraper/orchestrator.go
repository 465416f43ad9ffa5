package scraper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// Rate floors protect upstream sites regardless of configuration.
const (
	minInterPageDelay     = time.Second
	minInterDocumentDelay = 200 * time.Millisecond
)

// jobHandle is the in-process control block for a running job.
type jobHandle struct {
	sourceID string
	stop     atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// Service orchestrates scrape jobs: discovery pages through the site
// dialect, per-document download-extract-persist, incremental stats,
// and cooperative stop between pipeline steps.
type Service struct {
	sources       interfaces.SourceStorage
	jobs          interfaces.JobStorage
	documents     interfaces.DocumentStorage
	metadata      interfaces.MetadataStorage
	downloader    interfaces.Downloader
	extractor     interfaces.TextExtractor
	metaExtractor interfaces.MetadataExtractor
	blobs         interfaces.BlobStore
	events        interfaces.EventService
	httpRenderer  interfaces.PageRenderer
	jsRenderer    interfaces.PageRenderer
	logger        arbor.ILogger

	maxConcurrentJobs     int
	interPageDelay        time.Duration
	interDocumentDelay    time.Duration
	deleteWithoutMetadata bool

	mu     sync.Mutex
	active map[string]*jobHandle
	wg     sync.WaitGroup
}

// NewService creates the scraping orchestrator. jsRenderer may be nil,
// in which case render_js sources fall back to plain HTTP.
func NewService(
	storage interfaces.StorageManager,
	downloader interfaces.Downloader,
	extractor interfaces.TextExtractor,
	metaExtractor interfaces.MetadataExtractor,
	blobs interfaces.BlobStore,
	events interfaces.EventService,
	jsRenderer interfaces.PageRenderer,
	config *common.ScraperConfig,
	logger arbor.ILogger,
) (*Service, error) {
	interPage, err := time.ParseDuration(config.InterPageDelay)
	if err != nil {
		return nil, fmt.Errorf("invalid inter_page_delay: %w", err)
	}
	if interPage < minInterPageDelay {
		interPage = minInterPageDelay
	}
	interDoc, err := time.ParseDuration(config.InterDocumentDelay)
	if err != nil {
		return nil, fmt.Errorf("invalid inter_document_delay: %w", err)
	}
	if interDoc < minInterDocumentDelay {
		interDoc = minInterDocumentDelay
	}

	maxJobs := config.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = 3
	}

	return &Service{
		sources:               storage.SourceStorage(),
		jobs:                  storage.JobStorage(),
		documents:             storage.DocumentStorage(),
		metadata:              storage.MetadataStorage(),
		downloader:            downloader,
		extractor:             extractor,
		metaExtractor:         metaExtractor,
		blobs:                 blobs,
		events:                events,
		httpRenderer:          NewHTTPRenderer(downloader),
		jsRenderer:            jsRenderer,
		logger:                logger,
		maxConcurrentJobs:     maxJobs,
		interPageDelay:        interPage,
		interDocumentDelay:    interDoc,
		deleteWithoutMetadata: config.DeleteWithoutMetadata,
		active:                make(map[string]*jobHandle),
	}, nil
}

// StartScrape launches a scrape job for the source and returns its ID.
func (s *Service) StartScrape(ctx context.Context, sourceID string, overrides *models.ScrapeOverrides) (string, error) {
	source, err := s.sources.GetSource(ctx, sourceID)
	if err != nil {
		return "", err
	}
	if !source.Enabled {
		return "", models.NewError(models.KindInputInvalid,
			fmt.Sprintf("source %s is disabled", sourceID))
	}

	s.mu.Lock()
	if len(s.active) >= s.maxConcurrentJobs {
		s.mu.Unlock()
		return "", models.NewError(models.KindInputInvalid,
			fmt.Sprintf("maximum of %d concurrent jobs reached", s.maxConcurrentJobs))
	}
	for _, handle := range s.active {
		if handle.sourceID == sourceID {
			s.mu.Unlock()
			return "", models.NewError(models.KindInputInvalid,
				fmt.Sprintf("source %s already has a running job", sourceID))
		}
	}

	jobID := common.NewJobID()
	jobCtx, cancel := context.WithCancel(context.Background())
	handle := &jobHandle{sourceID: sourceID, cancel: cancel, done: make(chan struct{})}
	s.active[jobID] = handle
	s.mu.Unlock()

	job := &models.ScrapeJob{
		JobID:     jobID,
		SourceID:  sourceID,
		Status:    models.JobStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		s.release(jobID)
		cancel()
		return "", err
	}

	s.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventJobStarted,
		Payload: map[string]interface{}{
			"job_id":    jobID,
			"source_id": sourceID,
		},
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(handle.done)
		defer cancel()
		s.runJob(jobCtx, handle, job, source, overrides)
		s.release(jobID)
	}()

	s.logger.Info().
		Str("job_id", jobID).
		Str("source_id", sourceID).
		Msg("Scrape job started")

	return jobID, nil
}

// StopScrape requests cooperative cancellation. The job observes the
// signal at its next checkpoint and finishes as stopped.
func (s *Service) StopScrape(jobID string) error {
	s.mu.Lock()
	handle, running := s.active[jobID]
	s.mu.Unlock()

	ctx := context.Background()
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return models.NewError(models.KindInputInvalid,
			fmt.Sprintf("job %s already finished with status %s", jobID, job.Status))
	}

	job.Status = models.JobStatusStopping
	job.StopSignal = true
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return err
	}

	if running {
		handle.stop.Store(true)
	}

	s.logger.Info().Str("job_id", jobID).Msg("Stop requested")
	return nil
}

// GetJob returns the persisted job record.
func (s *Service) GetJob(ctx context.Context, jobID string) (*models.ScrapeJob, error) {
	return s.jobs.GetJob(ctx, jobID)
}

// ActiveJobs lists jobs that have not reached a terminal status.
func (s *Service) ActiveJobs(ctx context.Context) ([]*models.ScrapeJob, error) {
	return s.jobs.ListActiveJobs(ctx)
}

// Shutdown signals all running jobs to stop and waits for them to
// drain, hard-cancelling when the context expires first.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	handles := make([]*jobHandle, 0, len(s.active))
	for _, handle := range s.active {
		handle.stop.Store(true)
		handles = append(handles, handle)
	}
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		for _, handle := range handles {
			handle.cancel()
		}
		<-drained
		return ctx.Err()
	}
}

func (s *Service) release(jobID string) {
	s.mu.Lock()
	delete(s.active, jobID)
	s.mu.Unlock()
}

// scrapePolicy is the effective per-run policy after overrides.
type scrapePolicy struct {
	maxDocs           int
	maxPages          int
	paginationEnabled bool
	windowSize        int
	forceFullScan     bool
}

func resolvePolicy(source *models.Source, overrides *models.ScrapeOverrides) scrapePolicy {
	policy := scrapePolicy{
		maxDocs:           source.MaxDocs,
		maxPages:          source.MaxPages,
		paginationEnabled: source.PaginationEnabled,
		windowSize:        source.WindowSize,
	}
	if overrides != nil {
		if overrides.MaxDocuments != nil {
			policy.maxDocs = *overrides.MaxDocuments
		}
		if overrides.MaxPages != nil {
			policy.maxPages = *overrides.MaxPages
		}
		if overrides.PaginationEnabled != nil {
			policy.paginationEnabled = *overrides.PaginationEnabled
		}
		policy.forceFullScan = overrides.ForceFullScan
	}
	return policy
}

func (s *Service) rendererFor(source *models.Source) interfaces.PageRenderer {
	if source.RenderJS && s.jsRenderer != nil {
		return s.jsRenderer
	}
	return s.httpRenderer
}

// runJob walks listing pages through the dialect and processes each
// discovered document. The stop signal is checked before every page,
// before every document, and between document pipeline stages.
func (s *Service) runJob(ctx context.Context, handle *jobHandle, job *models.ScrapeJob, source *models.Source, overrides *models.ScrapeOverrides) {
	policy := resolvePolicy(source, overrides)
	dialect := ForDialect(source.Dialect)
	renderer := s.rendererFor(source)

	pageLimiter := rate.NewLimiter(rate.Every(s.interPageDelay), 1)
	docLimiter := rate.NewLimiter(rate.Every(s.interDocumentDelay), 1)

	var jobErr error
	stopped := false

	pageURL := source.BaseURL
	visited := map[string]bool{}

pages:
	for pageNum := 1; pageURL != "" && pageNum <= policy.maxPages; pageNum++ {
		if handle.stop.Load() {
			stopped = true
			break
		}
		if visited[pageURL] {
			break
		}
		visited[pageURL] = true

		if err := pageLimiter.Wait(ctx); err != nil {
			stopped = true
			break
		}

		// Discovery pages are fetched once; a failed page ends the walk.
		pageHTML, err := renderer.RenderPage(ctx, pageURL)
		if err != nil {
			if pageNum == 1 {
				jobErr = fmt.Errorf("failed to fetch listing page %s: %w", pageURL, err)
			} else {
				s.logger.Warn().Err(err).
					Str("job_id", job.JobID).
					Str("page_url", pageURL).
					Msg("Listing page fetch failed, ending pagination")
			}
			break
		}

		links := dialect.DiscoverLinks(pageHTML, pageURL, source.Keywords)
		job.Stats.PagesScraped++
		job.Stats.Discovered += len(links)
		s.saveJob(ctx, job)

		pageNew := 0
		for _, link := range links {
			if handle.stop.Load() {
				stopped = true
				break pages
			}
			if policy.maxDocs > 0 && job.Stats.New >= policy.maxDocs {
				break pages
			}
			if err := docLimiter.Wait(ctx); err != nil {
				stopped = true
				break pages
			}

			switch s.processDocument(ctx, handle, job, source, link, pageURL, policy.forceFullScan) {
			case outcomeNew:
				pageNew++
				job.Stats.New++
			case outcomeUnchanged:
				job.Stats.Unchanged++
			case outcomeFailed:
				job.Stats.Failed++
			case outcomeAborted:
				stopped = true
				break pages
			}
			s.saveJob(ctx, job)
		}

		s.events.Publish(ctx, interfaces.Event{
			Type: interfaces.EventJobProgress,
			Payload: map[string]interface{}{
				"job_id":        job.JobID,
				"source_id":     source.ID,
				"pages_scraped": job.Stats.PagesScraped,
				"discovered":    job.Stats.Discovered,
				"new":           job.Stats.New,
				"unchanged":     job.Stats.Unchanged,
				"failed":        job.Stats.Failed,
			},
		})

		if !policy.paginationEnabled {
			break
		}
		// Past the re-scan window, a page with nothing new means the
		// incremental frontier has been reached.
		if !policy.forceFullScan && pageNum >= policy.windowSize && pageNew == 0 {
			break
		}
		pageURL = dialect.NextPage(pageHTML, pageURL)
	}

	s.finishJob(ctx, job, source, stopped, jobErr)
}

// finishJob records the terminal status, rolls the run into the
// source's cumulative stats, and publishes the finished event.
func (s *Service) finishJob(ctx context.Context, job *models.ScrapeJob, source *models.Source, stopped bool, jobErr error) {
	now := time.Now().UTC()
	job.FinishedAt = &now
	switch {
	case jobErr != nil:
		job.Status = models.JobStatusFailed
		job.Error = jobErr.Error()
	case stopped:
		job.Status = models.JobStatusStopped
		job.StopSignal = true
	default:
		job.Status = models.JobStatusSucceeded
	}
	s.saveJob(ctx, job)

	source.Stats.TotalRuns++
	source.Stats.TotalNew += job.Stats.New
	source.Stats.TotalUnchanged += job.Stats.Unchanged
	source.Stats.TotalFailed += job.Stats.Failed
	source.Stats.LastRunAt = &now
	source.Stats.LastRunStatus = job.Status
	source.LastScrapedAt = &now
	source.UpdatedAt = now
	if err := s.sources.SaveSource(ctx, source); err != nil {
		s.logger.Error().Err(err).Str("source_id", source.ID).Msg("Failed to update source stats")
	}

	s.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventJobFinished,
		Payload: map[string]interface{}{
			"job_id":     job.JobID,
			"source_id":  source.ID,
			"status":     job.Status,
			"new":        job.Stats.New,
			"unchanged":  job.Stats.Unchanged,
			"failed":     job.Stats.Failed,
			"discovered": job.Stats.Discovered,
		},
	})

	s.logger.Info().
		Str("job_id", job.JobID).
		Str("status", job.Status).
		Int("new", job.Stats.New).
		Int("unchanged", job.Stats.Unchanged).
		Int("failed", job.Stats.Failed).
		Msg("Scrape job finished")
}

func (s *Service) saveJob(ctx context.Context, job *models.ScrapeJob) {
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to persist job state")
	}
}
