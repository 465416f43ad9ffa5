package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
	"github.com/mandate-ai/mandate/internal/services/extdb"
)

// DataSourceHandler serves the external database source registry and
// sync triggers. Passwords arrive in plaintext on create/update and
// are stored encrypted.
type DataSourceHandler struct {
	external interfaces.ExternalSourceStorage
	syncLogs interfaces.SyncLogStorage
	ingester interfaces.ExternalIngester
	cipher   *extdb.Cipher
	logger   arbor.ILogger
}

// NewDataSourceHandler creates the external data source handler
func NewDataSourceHandler(
	external interfaces.ExternalSourceStorage,
	syncLogs interfaces.SyncLogStorage,
	ingester interfaces.ExternalIngester,
	cipher *extdb.Cipher,
	logger arbor.ILogger,
) *DataSourceHandler {
	return &DataSourceHandler{external: external, syncLogs: syncLogs, ingester: ingester, cipher: cipher, logger: logger}
}

// dataSourceRequest is the write shape: the password field is the
// only difference from the stored model.
type dataSourceRequest struct {
	Name            string                    `json:"name"`
	Host            string                    `json:"host"`
	Port            int                       `json:"port"`
	DBName          string                    `json:"db_name"`
	Username        string                    `json:"username"`
	Password        string                    `json:"password"`
	Storage         string                    `json:"storage"`
	ObjectStore     *models.ObjectStoreConfig `json:"object_store_cfg,omitempty"`
	Table           string                    `json:"table"`
	FileColumn      string                    `json:"file_column"`
	FilenameColumn  string                    `json:"filename_column"`
	MetadataColumns []string                  `json:"metadata_columns,omitempty"`
	PathPrefix      string                    `json:"path_prefix,omitempty"`
}

// sanitize strips the encrypted credential before a source leaves the API.
func sanitize(source *models.ExternalDataSource) *models.ExternalDataSource {
	clean := *source
	clean.PasswordEncrypted = ""
	return &clean
}

// List handles GET /data-sources
func (h *DataSourceHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.external.ListExternalSources(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	views := make([]*models.ExternalDataSource, 0, len(sources))
	for _, source := range sources {
		views = append(views, sanitize(source))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sources": views,
		"count":   len(views),
	})
}

// configured reports whether credential encryption is available. The
// cipher is nil when no encryption key was set at startup.
func (h *DataSourceHandler) configured(w http.ResponseWriter) bool {
	if h.cipher == nil {
		WriteDetail(w, http.StatusServiceUnavailable, "external database support is not configured")
		return false
	}
	return true
}

// Create handles POST /data-sources
func (h *DataSourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}

	var body dataSourceRequest
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}
	if strings.TrimSpace(body.Password) == "" {
		WriteDetail(w, http.StatusBadRequest, "password is required")
		return
	}

	encrypted, err := h.cipher.Encrypt(body.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	now := time.Now().UTC()
	source := &models.ExternalDataSource{
		ID:                common.NewExternalSourceID(),
		Name:              body.Name,
		Host:              body.Host,
		Port:              body.Port,
		DBName:            body.DBName,
		Username:          body.Username,
		PasswordEncrypted: encrypted,
		Storage:           body.Storage,
		ObjectStore:       body.ObjectStore,
		Table:             body.Table,
		FileColumn:        body.FileColumn,
		FilenameColumn:    body.FilenameColumn,
		MetadataColumns:   body.MetadataColumns,
		PathPrefix:        body.PathPrefix,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := source.Validate(); err != nil {
		WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.external.SaveExternalSource(r.Context(), source); err != nil {
		WriteError(w, err)
		return
	}

	h.logger.Info().
		Str("source_id", source.ID).
		Str("host", source.Host).
		Msg("External data source registered")
	WriteJSON(w, http.StatusCreated, sanitize(source))
}

// Update handles PUT /data-sources/{id}
func (h *DataSourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}

	id := PathID(r.URL.Path, "/data-sources")
	if !RequireID(w, id, "data source") {
		return
	}

	existing, err := h.external.GetExternalSource(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	var body dataSourceRequest
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	// An empty password keeps the stored credential.
	encrypted := existing.PasswordEncrypted
	if strings.TrimSpace(body.Password) != "" {
		encrypted, err = h.cipher.Encrypt(body.Password)
		if err != nil {
			WriteError(w, err)
			return
		}
	}

	source := &models.ExternalDataSource{
		ID:                existing.ID,
		Name:              body.Name,
		Host:              body.Host,
		Port:              body.Port,
		DBName:            body.DBName,
		Username:          body.Username,
		PasswordEncrypted: encrypted,
		Storage:           body.Storage,
		ObjectStore:       body.ObjectStore,
		Table:             body.Table,
		FileColumn:        body.FileColumn,
		FilenameColumn:    body.FilenameColumn,
		MetadataColumns:   body.MetadataColumns,
		PathPrefix:        body.PathPrefix,
		LastSyncAt:        existing.LastSyncAt,
		CreatedAt:         existing.CreatedAt,
		UpdatedAt:         time.Now().UTC(),
	}
	if err := source.Validate(); err != nil {
		WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.external.SaveExternalSource(r.Context(), source); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sanitize(source))
}

// Delete handles DELETE /data-sources/{id}
func (h *DataSourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/data-sources")
	if !RequireID(w, id, "data source") {
		return
	}

	if _, err := h.external.GetExternalSource(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.external.DeleteExternalSource(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Sync handles POST /data-sources/{id}/sync
func (h *DataSourceHandler) Sync(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/data-sources")
	if !RequireID(w, id, "data source") {
		return
	}

	if h.ingester == nil {
		WriteDetail(w, http.StatusServiceUnavailable, "external database support is not configured")
		return
	}

	limit := QueryInt(r, "limit", 0)
	syncLog, err := h.ingester.Sync(r.Context(), id, limit)
	if err != nil {
		if syncLog != nil {
			WriteJSON(w, models.KindOf(err).HTTPStatus(), syncLog)
			return
		}
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, syncLog)
}

// SyncLogs handles GET /data-sources/{id}/sync-logs
func (h *DataSourceHandler) SyncLogs(w http.ResponseWriter, r *http.Request) {
	id := PathID(r.URL.Path, "/data-sources")
	if !RequireID(w, id, "data source") {
		return
	}

	logs, err := h.syncLogs.ListSyncLogs(r.Context(), id, QueryInt(r, "limit", 20))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sync_logs": logs,
		"count":     len(logs),
	})
}
