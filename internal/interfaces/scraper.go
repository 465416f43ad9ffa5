package interfaces

import (
	"context"

	"github.com/mandate-ai/mandate/internal/models"
)

// ScraperService owns scrape job lifecycle: start, cooperative stop,
// status, and the active-job view.
type ScraperService interface {
	StartScrape(ctx context.Context, sourceID string, overrides *models.ScrapeOverrides) (string, error)
	StopScrape(jobID string) error
	GetJob(ctx context.Context, jobID string) (*models.ScrapeJob, error)
	ActiveJobs(ctx context.Context) ([]*models.ScrapeJob, error)
	Shutdown(ctx context.Context) error
}

// DiscoveredLink is one candidate document found on a listing page.
type DiscoveredLink struct {
	URL      string
	Title    string
	FileType string
}

// DialectScraper is the per-site discovery strategy.
type DialectScraper interface {
	DiscoverLinks(pageHTML, pageURL string, keywords []string) []DiscoveredLink
	NextPage(pageHTML, pageURL string) string
	Name() string
}

// PageRenderer fetches a listing page, optionally executing JavaScript.
type PageRenderer interface {
	RenderPage(ctx context.Context, url string) (string, error)
}
