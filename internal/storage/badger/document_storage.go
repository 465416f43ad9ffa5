package badger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// DocumentStorage implements interfaces.DocumentStorage using badgerhold
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new document storage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) *DocumentStorage {
	return &DocumentStorage{db: db, logger: logger}
}

// SaveDocument creates or updates a document record
func (s *DocumentStorage) SaveDocument(ctx context.Context, doc *models.DocumentRecord) error {
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return models.WrapError(models.KindIndexFailure, fmt.Sprintf("failed to save document %s", doc.ID), err)
	}
	return nil
}

// GetDocument retrieves a document record by ID
func (s *DocumentStorage) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	var doc models.DocumentRecord
	if err := s.db.Store().Get(id, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.NewError(models.KindNotFound, fmt.Sprintf("document %s not found", id))
		}
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return &doc, nil
}

// GetDocumentByURL looks up a document record by its source URL.
// Returns nil without error when no record exists, since the scraper
// uses this as a dedup probe.
func (s *DocumentStorage) GetDocumentByURL(ctx context.Context, sourceURL string) (*models.DocumentRecord, error) {
	var docs []*models.DocumentRecord
	if err := s.db.Store().Find(&docs, badgerhold.Where("SourceURL").Eq(sourceURL).Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to look up document by URL: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// GetDocumentByHash looks up a document by (source_id, content_hash).
// Returns nil without error when no record exists.
func (s *DocumentStorage) GetDocumentByHash(ctx context.Context, sourceID, contentHash string) (*models.DocumentRecord, error) {
	var docs []*models.DocumentRecord
	query := badgerhold.Where("ContentHash").Eq(contentHash).And("SourceID").Eq(sourceID).Limit(1)
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to look up document by hash: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// DeleteDocument removes a document record by ID
func (s *DocumentStorage) DeleteDocument(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.DocumentRecord{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return models.NewError(models.KindNotFound, fmt.Sprintf("document %s not found", id))
		}
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// ListDocuments returns a page of document records matching the options,
// plus the total match count.
func (s *DocumentStorage) ListDocuments(ctx context.Context, opts interfaces.DocumentListOptions) ([]*models.DocumentRecord, int, error) {
	query := s.buildQuery(opts)

	var all []*models.DocumentRecord
	if err := s.db.Store().Find(&all, query); err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	all = s.applyMetadataFilters(all, opts)

	total := len(all)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := total
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	return all[start:end], total, nil
}

func (s *DocumentStorage) buildQuery(opts interfaces.DocumentListOptions) *badgerhold.Query {
	var query *badgerhold.Query
	if opts.SourceID != "" {
		query = badgerhold.Where("SourceID").Eq(opts.SourceID)
	}

	if opts.Query != "" {
		pattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(opts.Query))
		if err == nil {
			match := badgerhold.Where("CanonicalFilename").MatchFunc(func(ra *badgerhold.RecordAccess) (bool, error) {
				doc, ok := ra.Record().(*models.DocumentRecord)
				if !ok {
					return false, nil
				}
				return pattern.MatchString(doc.CanonicalFilename) || pattern.MatchString(doc.SourceURL), nil
			})
			if query == nil {
				query = match
			} else {
				query = query.And("CanonicalFilename").MatchFunc(func(ra *badgerhold.RecordAccess) (bool, error) {
					doc, ok := ra.Record().(*models.DocumentRecord)
					if !ok {
						return false, nil
					}
					return pattern.MatchString(doc.CanonicalFilename) || pattern.MatchString(doc.SourceURL), nil
				})
			}
		}
	}

	if query != nil {
		query = query.SortBy("CreatedAt").Reverse()
	}
	return query
}

// applyMetadataFilters narrows a record set by document type (joined
// from the metadata satellite) and by document year.
func (s *DocumentStorage) applyMetadataFilters(docs []*models.DocumentRecord, opts interfaces.DocumentListOptions) []*models.DocumentRecord {
	if opts.DocumentType == "" && opts.Year == 0 {
		return docs
	}

	filtered := docs[:0]
	for _, doc := range docs {
		if opts.Year != 0 && documentYear(doc) != opts.Year {
			continue
		}
		if opts.DocumentType != "" {
			var meta models.DocumentMetadata
			if err := s.db.Store().Get(doc.ID, &meta); err != nil {
				continue
			}
			if !strings.EqualFold(meta.DocumentType, opts.DocumentType) {
				continue
			}
		}
		filtered = append(filtered, doc)
	}
	return filtered
}

// documentYear reports the year a document version belongs to, using
// the version date when known and the upload time otherwise.
func documentYear(doc *models.DocumentRecord) int {
	if doc.VersionDate != nil {
		return doc.VersionDate.Year()
	}
	return doc.UploadedAt.Year()
}

// CountDocuments returns the total number of document records
func (s *DocumentStorage) CountDocuments(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.DocumentRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}

// GetStats aggregates corpus statistics across records and metadata
func (s *DocumentStorage) GetStats(ctx context.Context) (*models.DocumentStats, error) {
	var docs []*models.DocumentRecord
	if err := s.db.Store().Find(&docs, nil); err != nil {
		return nil, fmt.Errorf("failed to load documents for stats: %w", err)
	}

	stats := &models.DocumentStats{
		TotalDocuments:    len(docs),
		DocumentsBySource: make(map[string]int),
		DocumentsByType:   make(map[string]int),
		LastUpdated:       time.Now(),
	}
	for _, doc := range docs {
		stats.DocumentsBySource[doc.SourceID]++
		fileType := strings.ToLower(doc.FileType)
		if fileType == "" {
			fileType = "unknown"
		}
		stats.DocumentsByType[fileType]++
	}

	var metas []*models.DocumentMetadata
	if err := s.db.Store().Find(&metas, nil); err == nil {
		for _, meta := range metas {
			switch meta.EmbeddingStatus {
			case models.EmbeddingEmbedded:
				stats.EmbeddedCount++
			case models.EmbeddingNotEmbedded:
				stats.PendingEmbed++
			}
			if meta.MetadataStatus == models.MetadataFailed {
				stats.FailedMetadata++
			}
		}
	}

	return stats, nil
}
