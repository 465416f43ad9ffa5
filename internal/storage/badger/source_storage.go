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

// SourceStorage implements interfaces.SourceStorage using badgerhold
type SourceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSourceStorage creates a new source storage instance
func NewSourceStorage(db *BadgerDB, logger arbor.ILogger) *SourceStorage {
	return &SourceStorage{db: db, logger: logger}
}

// SaveSource creates or updates a source
func (s *SourceStorage) SaveSource(ctx context.Context, source *models.Source) error {
	now := time.Now()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now

	if err := s.db.Store().Upsert(source.ID, source); err != nil {
		return fmt.Errorf("failed to save source %s: %w", source.ID, err)
	}

	s.logger.Debug().Str("source_id", source.ID).Str("dialect", source.Dialect).Msg("Source saved")
	return nil
}

// GetSource retrieves a source by ID
func (s *SourceStorage) GetSource(ctx context.Context, id string) (*models.Source, error) {
	var source models.Source
	if err := s.db.Store().Get(id, &source); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.NewError(models.KindNotFound, fmt.Sprintf("source %s not found", id))
		}
		return nil, fmt.Errorf("failed to get source %s: %w", id, err)
	}
	return &source, nil
}

// DeleteSource removes a source by ID
func (s *SourceStorage) DeleteSource(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Source{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return models.NewError(models.KindNotFound, fmt.Sprintf("source %s not found", id))
		}
		return fmt.Errorf("failed to delete source %s: %w", id, err)
	}
	return nil
}

// ListSources returns all registered sources
func (s *SourceStorage) ListSources(ctx context.Context) ([]*models.Source, error) {
	var sources []*models.Source
	if err := s.db.Store().Find(&sources, nil); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}
