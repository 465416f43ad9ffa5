package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/models"
)

// SyncLogStorage implements interfaces.SyncLogStorage using badgerhold
type SyncLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSyncLogStorage creates a new sync log storage instance
func NewSyncLogStorage(db *BadgerDB, logger arbor.ILogger) *SyncLogStorage {
	return &SyncLogStorage{db: db, logger: logger}
}

// AppendSyncLog stores a sync run record. Logs are append-only: an ID is
// assigned on first write and existing records are never mutated except
// to set the finish fields of the same run.
func (s *SyncLogStorage) AppendSyncLog(ctx context.Context, log *models.SyncLog) error {
	if log.ID == "" {
		log.ID = common.NewSyncLogID()
	}
	if err := s.db.Store().Upsert(log.ID, log); err != nil {
		return fmt.Errorf("failed to append sync log: %w", err)
	}
	return nil
}

// ListSyncLogs returns the most recent sync runs for a source
func (s *SyncLogStorage) ListSyncLogs(ctx context.Context, sourceID string, limit int) ([]*models.SyncLog, error) {
	var logs []*models.SyncLog
	query := badgerhold.Where("SourceID").Eq(sourceID).SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&logs, query); err != nil {
		return nil, fmt.Errorf("failed to list sync logs for %s: %w", sourceID, err)
	}
	return logs, nil
}
