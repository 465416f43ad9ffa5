package models

import (
	"fmt"
	"time"
)

// Storage modes for external data sources.
const (
	ExternalStorageDatabase    = "database"
	ExternalStorageObjectStore = "object_store"
)

// ObjectStoreConfig points an external source at file-backed storage
// when the file column carries paths rather than bytes.
type ObjectStoreConfig struct {
	Endpoint   string `json:"endpoint"`
	Bucket     string `json:"bucket"`
	PathPrefix string `json:"path_prefix,omitempty"`
}

// ExternalDataSource is a registered external SQL source. The password is
// encrypted at rest and decrypted only for the duration of a sync.
type ExternalDataSource struct {
	ID                string             `json:"id" badgerhold:"key"`
	Name              string             `json:"name" validate:"required"`
	Host              string             `json:"host" validate:"required"`
	Port              int                `json:"port" validate:"required,min=1,max=65535"`
	DBName            string             `json:"db_name" validate:"required"`
	Username          string             `json:"username" validate:"required"`
	PasswordEncrypted string             `json:"password_encrypted"`
	Storage           string             `json:"storage" validate:"required,oneof=database object_store"`
	ObjectStore       *ObjectStoreConfig `json:"object_store_cfg,omitempty"`
	Table             string             `json:"table" validate:"required"`
	FileColumn        string             `json:"file_column" validate:"required"`
	FilenameColumn    string             `json:"filename_column" validate:"required"`
	MetadataColumns   []string           `json:"metadata_columns"`
	PathPrefix        string             `json:"path_prefix,omitempty"`
	LastSyncAt        *time.Time         `json:"last_sync_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Validate checks the external source configuration.
func (e *ExternalDataSource) Validate() error {
	if err := checkStruct(e); err != nil {
		return err
	}
	if e.Storage == ExternalStorageObjectStore && e.ObjectStore == nil {
		return fmt.Errorf("object store config is required when storage=object_store")
	}
	return nil
}

// SyncLog is an append-only record of one external sync run.
type SyncLog struct {
	ID         string     `json:"id" badgerhold:"key"`
	SourceID   string     `json:"source_id" badgerhold:"index"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int        `json:"processed"`
	Failed     int        `json:"failed"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
}
