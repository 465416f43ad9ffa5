package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	source   interfaces.SourceStorage
	document interfaces.DocumentStorage
	metadata interfaces.MetadataStorage
	job      interfaces.JobStorage
	external interfaces.ExternalSourceStorage
	syncLog  interfaces.SyncLogStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.StorageConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		source:   NewSourceStorage(db, logger),
		document: NewDocumentStorage(db, logger),
		metadata: NewMetadataStorage(db, logger),
		job:      NewJobStorage(db, logger),
		external: NewExternalSourceStorage(db, logger),
		syncLog:  NewSyncLogStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// SourceStorage returns the Source storage interface
func (m *Manager) SourceStorage() interfaces.SourceStorage {
	return m.source
}

// DocumentStorage returns the Document storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// MetadataStorage returns the Metadata storage interface
func (m *Manager) MetadataStorage() interfaces.MetadataStorage {
	return m.metadata
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// ExternalSourceStorage returns the ExternalSource storage interface
func (m *Manager) ExternalSourceStorage() interfaces.ExternalSourceStorage {
	return m.external
}

// SyncLogStorage returns the SyncLog storage interface
func (m *Manager) SyncLogStorage() interfaces.SyncLogStorage {
	return m.syncLog
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
