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

// ExternalSourceStorage implements interfaces.ExternalSourceStorage using badgerhold
type ExternalSourceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewExternalSourceStorage creates a new external source storage instance
func NewExternalSourceStorage(db *BadgerDB, logger arbor.ILogger) *ExternalSourceStorage {
	return &ExternalSourceStorage{db: db, logger: logger}
}

// SaveExternalSource creates or updates an external data source
func (s *ExternalSourceStorage) SaveExternalSource(ctx context.Context, source *models.ExternalDataSource) error {
	now := time.Now()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now

	if err := s.db.Store().Upsert(source.ID, source); err != nil {
		return fmt.Errorf("failed to save external source %s: %w", source.ID, err)
	}
	return nil
}

// GetExternalSource retrieves an external source by ID
func (s *ExternalSourceStorage) GetExternalSource(ctx context.Context, id string) (*models.ExternalDataSource, error) {
	var source models.ExternalDataSource
	if err := s.db.Store().Get(id, &source); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.NewError(models.KindNotFound, fmt.Sprintf("external source %s not found", id))
		}
		return nil, fmt.Errorf("failed to get external source %s: %w", id, err)
	}
	return &source, nil
}

// DeleteExternalSource removes an external source by ID
func (s *ExternalSourceStorage) DeleteExternalSource(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.ExternalDataSource{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return models.NewError(models.KindNotFound, fmt.Sprintf("external source %s not found", id))
		}
		return fmt.Errorf("failed to delete external source %s: %w", id, err)
	}
	return nil
}

// ListExternalSources returns all registered external sources
func (s *ExternalSourceStorage) ListExternalSources(ctx context.Context) ([]*models.ExternalDataSource, error) {
	var sources []*models.ExternalDataSource
	if err := s.db.Store().Find(&sources, nil); err != nil {
		return nil, fmt.Errorf("failed to list external sources: %w", err)
	}
	return sources, nil
}
