package interfaces

import (
	"context"

	"github.com/mandate-ai/mandate/internal/models"
)

// AccessFilter is the caller's reach, evaluated inside the index.
// A point is visible when its visibility is open, or its visibility is
// institution-scoped and the institution matches, or the caller
// uploaded it, or (for ministry review) it is pending approval.
// A nil AccessFilter means unrestricted access.
type AccessFilter struct {
	OpenVisibilities        []string
	InstitutionID           string
	InstitutionVisibilities []string
	UploaderID              string
	PendingApprovalVisible  bool
}

// VectorFilters narrows dense search by payload fields. Empty slices
// mean no constraint on that field.
type VectorFilters struct {
	Years         []int
	DocumentTypes []string
	Access        *AccessFilter
}

// VectorPoint is one chunk vector with its filterable payload.
type VectorPoint struct {
	DocID          string
	ChunkIndex     int
	Vector         []float32
	Text           string
	SectionHeader  string
	Filename       string
	InstitutionID  string
	UploaderID     string
	Visibility     string
	ApprovalStatus string
	Year           int
	DocumentType   string
}

// VectorHit is one dense search result.
type VectorHit struct {
	DocID          string
	ChunkIndex     int
	Score          float64
	Text           string
	SectionHeader  string
	Filename       string
	Visibility     string
	ApprovalStatus string
	InstitutionID  string
	UploaderID     string
}

// VectorStore is the dense similarity index with filterable metadata.
type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []VectorPoint) error
	DeleteByDoc(ctx context.Context, docID string) error
	Search(ctx context.Context, vector []float32, filters *VectorFilters, k int) ([]VectorHit, error)
	Close() error
}

// Retriever runs the hybrid retrieval pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, query string, userCtx *models.UserContext) ([]models.ResultChunk, *models.QueryIntent, error)
}

// ChatService answers questions over retrieved chunks.
type ChatService interface {
	Query(ctx context.Context, question, threadID string, userCtx *models.UserContext) (*models.QueryResponse, error)
}

// CompareService builds comparison matrices and conflict lists.
type CompareService interface {
	Compare(ctx context.Context, docIDs []string, aspects []string) (*models.ComparisonResult, error)
	Conflicts(ctx context.Context, docIDs []string) ([]models.Conflict, error)
	ExportPDF(ctx context.Context, result *models.ComparisonResult) ([]byte, error)
}

// ExternalIngester pulls rows from registered external SQL sources.
type ExternalIngester interface {
	Sync(ctx context.Context, sourceID string, limit int) (*models.SyncLog, error)
}
