package interfaces

import (
	"context"
	"time"

	"github.com/mandate-ai/mandate/internal/models"
)

// DocumentListOptions narrows document listing and metadata browsing.
type DocumentListOptions struct {
	SourceID     string
	Query        string
	Department   string
	DocumentType string
	Year         int
	Offset       int
	Limit        int
}

// SourceStorage persists the scraping source registry.
type SourceStorage interface {
	SaveSource(ctx context.Context, source *models.Source) error
	GetSource(ctx context.Context, id string) (*models.Source, error)
	DeleteSource(ctx context.Context, id string) error
	ListSources(ctx context.Context) ([]*models.Source, error)
}

// DocumentStorage persists document records. Writes are idempotent by key;
// content-hash lookups back the scraper's dedup path.
type DocumentStorage interface {
	SaveDocument(ctx context.Context, doc *models.DocumentRecord) error
	GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error)
	GetDocumentByURL(ctx context.Context, sourceURL string) (*models.DocumentRecord, error)
	GetDocumentByHash(ctx context.Context, sourceID, contentHash string) (*models.DocumentRecord, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, opts DocumentListOptions) ([]*models.DocumentRecord, int, error)
	CountDocuments(ctx context.Context) (int, error)
	GetStats(ctx context.Context) (*models.DocumentStats, error)
}

// MetadataStorage persists the LLM-extracted metadata satellites.
type MetadataStorage interface {
	SaveMetadata(ctx context.Context, meta *models.DocumentMetadata) error
	GetMetadata(ctx context.Context, docID string) (*models.DocumentMetadata, error)
	DeleteMetadata(ctx context.Context, docID string) error
	BrowseMetadata(ctx context.Context, opts DocumentListOptions) ([]*models.DocumentMetadata, int, error)
	SearchMetadata(ctx context.Context, query string, limit int) ([]*models.DocumentMetadata, error)
	SetEmbeddingStatus(ctx context.Context, docID, status string) error
	ListByEmbeddingStatus(ctx context.Context, status string, limit int) ([]*models.DocumentMetadata, error)
}

// JobStorage persists scrape job lifecycle records.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.ScrapeJob) error
	GetJob(ctx context.Context, jobID string) (*models.ScrapeJob, error)
	ListActiveJobs(ctx context.Context) ([]*models.ScrapeJob, error)
	ListJobsBySource(ctx context.Context, sourceID string) ([]*models.ScrapeJob, error)
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ExternalSourceStorage persists registered external SQL sources.
type ExternalSourceStorage interface {
	SaveExternalSource(ctx context.Context, source *models.ExternalDataSource) error
	GetExternalSource(ctx context.Context, id string) (*models.ExternalDataSource, error)
	DeleteExternalSource(ctx context.Context, id string) error
	ListExternalSources(ctx context.Context) ([]*models.ExternalDataSource, error)
}

// SyncLogStorage appends and lists external sync run records.
type SyncLogStorage interface {
	AppendSyncLog(ctx context.Context, log *models.SyncLog) error
	ListSyncLogs(ctx context.Context, sourceID string, limit int) ([]*models.SyncLog, error)
}

// StorageManager aggregates all storage interfaces behind one lifecycle.
type StorageManager interface {
	SourceStorage() SourceStorage
	DocumentStorage() DocumentStorage
	MetadataStorage() MetadataStorage
	JobStorage() JobStorage
	ExternalSourceStorage() ExternalSourceStorage
	SyncLogStorage() SyncLogStorage
	Close() error
}
