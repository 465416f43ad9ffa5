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

// MetadataStorage implements interfaces.MetadataStorage using badgerhold
type MetadataStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMetadataStorage creates a new metadata storage instance
func NewMetadataStorage(db *BadgerDB, logger arbor.ILogger) *MetadataStorage {
	return &MetadataStorage{db: db, logger: logger}
}

// SaveMetadata creates or updates a metadata satellite
func (s *MetadataStorage) SaveMetadata(ctx context.Context, meta *models.DocumentMetadata) error {
	now := time.Now()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now
	if meta.EmbeddingStatus == "" {
		meta.EmbeddingStatus = models.EmbeddingNotEmbedded
	}

	if err := s.db.Store().Upsert(meta.DocID, meta); err != nil {
		return models.WrapError(models.KindIndexFailure, fmt.Sprintf("failed to save metadata for %s", meta.DocID), err)
	}
	return nil
}

// GetMetadata retrieves metadata by document ID
func (s *MetadataStorage) GetMetadata(ctx context.Context, docID string) (*models.DocumentMetadata, error) {
	var meta models.DocumentMetadata
	if err := s.db.Store().Get(docID, &meta); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.NewError(models.KindNotFound, fmt.Sprintf("metadata for %s not found", docID))
		}
		return nil, fmt.Errorf("failed to get metadata for %s: %w", docID, err)
	}
	return &meta, nil
}

// DeleteMetadata removes metadata by document ID
func (s *MetadataStorage) DeleteMetadata(ctx context.Context, docID string) error {
	if err := s.db.Store().Delete(docID, &models.DocumentMetadata{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete metadata for %s: %w", docID, err)
	}
	return nil
}

// BrowseMetadata returns a page of metadata filtered by department,
// document type, and year, plus the total match count.
func (s *MetadataStorage) BrowseMetadata(ctx context.Context, opts interfaces.DocumentListOptions) ([]*models.DocumentMetadata, int, error) {
	var query *badgerhold.Query
	if opts.Department != "" {
		query = badgerhold.Where("Department").Eq(opts.Department)
	}
	if opts.DocumentType != "" {
		if query == nil {
			query = badgerhold.Where("DocumentType").Eq(opts.DocumentType)
		} else {
			query = query.And("DocumentType").Eq(opts.DocumentType)
		}
	}

	var all []*models.DocumentMetadata
	if err := s.db.Store().Find(&all, query); err != nil {
		return nil, 0, fmt.Errorf("failed to browse metadata: %w", err)
	}

	if opts.Year != 0 {
		filtered := all[:0]
		for _, meta := range all {
			var doc models.DocumentRecord
			if err := s.db.Store().Get(meta.DocID, &doc); err != nil {
				continue
			}
			if documentYear(&doc) == opts.Year {
				filtered = append(filtered, meta)
			}
		}
		all = filtered
	}

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

// SearchMetadata performs a case-insensitive keyword match over title,
// summary, keywords, and the owning document's filename. This is the
// BM25-like half of hybrid retrieval: results are ranked by
// term-frequency score across the searchable fields.
func (s *MetadataStorage) SearchMetadata(ctx context.Context, query string, limit int) ([]*models.DocumentMetadata, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	patterns := make([]*regexp.Regexp, 0, len(terms))
	for _, term := range terms {
		p, err := regexp.Compile("(?i)" + regexp.QuoteMeta(term))
		if err != nil {
			continue
		}
		patterns = append(patterns, p)
	}

	var all []*models.DocumentMetadata
	if err := s.db.Store().Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to search metadata: %w", err)
	}

	type scored struct {
		meta  *models.DocumentMetadata
		score int
	}
	var matches []scored
	for _, meta := range all {
		score := 0
		searchable := meta.Title + " " + meta.Summary + " " + strings.Join(meta.Keywords, " ")
		var doc models.DocumentRecord
		if err := s.db.Store().Get(meta.DocID, &doc); err == nil {
			searchable += " " + doc.CanonicalFilename
		}
		for _, p := range patterns {
			found := p.FindAllStringIndex(searchable, -1)
			score += len(found)
		}
		if score > 0 {
			matches = append(matches, scored{meta: meta, score: score})
		}
	}

	// Highest score first, stable on insertion order
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].score > matches[j-1].score; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]*models.DocumentMetadata, len(matches))
	for i, m := range matches {
		results[i] = m.meta
	}
	return results, nil
}

// SetEmbeddingStatus updates the embedding lifecycle field only
func (s *MetadataStorage) SetEmbeddingStatus(ctx context.Context, docID, status string) error {
	meta, err := s.GetMetadata(ctx, docID)
	if err != nil {
		return err
	}
	meta.EmbeddingStatus = status
	return s.SaveMetadata(ctx, meta)
}

// ListByEmbeddingStatus returns up to limit metadata records in the
// given embedding state
func (s *MetadataStorage) ListByEmbeddingStatus(ctx context.Context, status string, limit int) ([]*models.DocumentMetadata, error) {
	var metas []*models.DocumentMetadata
	query := badgerhold.Where("EmbeddingStatus").Eq(status)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&metas, query); err != nil {
		return nil, fmt.Errorf("failed to list metadata by embedding status: %w", err)
	}
	return metas, nil
}
