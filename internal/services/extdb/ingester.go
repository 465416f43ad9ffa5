package extdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// ConnectFunc opens a database handle; injectable for tests
type ConnectFunc func(driverName, dsn string) (*sqlx.DB, error)

// Ingester streams rows from registered external SQL sources into the
// document store. Connections are read-only and credentials live
// decrypted only for the duration of a sync.
type Ingester struct {
	external     interfaces.ExternalSourceStorage
	syncLogs     interfaces.SyncLogStorage
	documents    interfaces.DocumentStorage
	metadata     interfaces.MetadataStorage
	blobs        interfaces.BlobStore
	cipher       *Cipher
	connect      ConnectFunc
	httpClient   *http.Client
	queryTimeout time.Duration
	logger       arbor.ILogger
}

// NewIngester creates the external DB ingester
func NewIngester(
	external interfaces.ExternalSourceStorage,
	syncLogs interfaces.SyncLogStorage,
	documents interfaces.DocumentStorage,
	metadata interfaces.MetadataStorage,
	blobs interfaces.BlobStore,
	cipher *Cipher,
	config *common.ExternalDBConfig,
	logger arbor.ILogger,
) (*Ingester, error) {
	queryTimeout, err := time.ParseDuration(config.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid query_timeout: %w", err)
	}

	return &Ingester{
		external:     external,
		syncLogs:     syncLogs,
		documents:    documents,
		metadata:     metadata,
		blobs:        blobs,
		cipher:       cipher,
		connect:      sqlx.Connect,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		queryTimeout: queryTimeout,
		logger:       logger,
	}, nil
}

// Sync pulls rows from the source and ingests new documents. Each run
// appends a SyncLog regardless of outcome.
func (g *Ingester) Sync(ctx context.Context, sourceID string, limit int) (*models.SyncLog, error) {
	source, err := g.external.GetExternalSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	syncLog := &models.SyncLog{
		ID:        common.NewSyncLogID(),
		SourceID:  sourceID,
		StartedAt: time.Now().UTC(),
		Status:    "running",
	}
	if err := g.syncLogs.AppendSyncLog(ctx, syncLog); err != nil {
		return nil, err
	}

	processed, failed, syncErr := g.run(ctx, source, limit)

	now := time.Now().UTC()
	syncLog.FinishedAt = &now
	syncLog.Processed = processed
	syncLog.Failed = failed
	if syncErr != nil {
		syncLog.Status = "failed"
		syncLog.Error = syncErr.Error()
	} else {
		syncLog.Status = "succeeded"
		source.LastSyncAt = &now
		if err := g.external.SaveExternalSource(ctx, source); err != nil {
			g.logger.Error().Err(err).Str("source_id", sourceID).Msg("Failed to record sync time")
		}
	}
	if err := g.syncLogs.AppendSyncLog(ctx, syncLog); err != nil {
		g.logger.Error().Err(err).Msg("Failed to finalize sync log")
	}

	return syncLog, syncErr
}

func (g *Ingester) run(ctx context.Context, source *models.ExternalDataSource, limit int) (int, int, error) {
	password, err := g.cipher.Decrypt(source.PasswordEncrypted)
	if err != nil {
		return 0, 0, models.WrapError(models.KindInputInvalid, "credential decryption failed", err)
	}

	dsn := buildDSN(source, password)
	db, err := g.connect("pgx", dsn)
	if err != nil {
		return 0, 0, models.WrapError(models.KindUpstreamTransient,
			fmt.Sprintf("failed to connect to %s", source.Host), err)
	}
	defer db.Close()

	query := buildQuery(source, limit)
	queryCtx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	rows, err := db.QueryxContext(queryCtx, query)
	if err != nil {
		return 0, 0, models.WrapError(models.KindUpstreamTransient, "source query failed", err)
	}
	defer rows.Close()

	processed, failed := 0, 0
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			failed++
			continue
		}

		if err := g.ingestRow(ctx, source, row); err != nil {
			failed++
			g.logger.Warn().Err(err).Str("source_id", source.ID).Msg("Row ingestion failed")
			continue
		}
		processed++
	}
	if err := rows.Err(); err != nil {
		return processed, failed, models.WrapError(models.KindUpstreamTransient, "row iteration failed", err)
	}

	g.logger.Info().
		Str("source_id", source.ID).
		Int("processed", processed).
		Int("failed", failed).
		Msg("External sync complete")

	return processed, failed, nil
}

// ingestRow converts one row into a document record, deduplicated by
// content hash.
func (g *Ingester) ingestRow(ctx context.Context, source *models.ExternalDataSource, row map[string]interface{}) error {
	filename := asString(row[source.FilenameColumn])
	if filename == "" {
		return fmt.Errorf("row has empty %s", source.FilenameColumn)
	}

	content, err := g.fileBytes(ctx, source, row)
	if err != nil {
		return err
	}
	if len(content) == 0 {
		return fmt.Errorf("row has empty file content")
	}

	hash := sha256.Sum256(content)
	contentHash := hex.EncodeToString(hash[:])

	existing, err := g.documents.GetDocumentByHash(ctx, source.ID, contentHash)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	now := time.Now().UTC()
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	blobName := common.BlobName(strings.TrimSuffix(filename, path.Ext(filename)), ext, now)

	blobURL, err := g.blobs.Upload(ctx, content, blobName)
	if err != nil {
		return err
	}

	doc := &models.DocumentRecord{
		ID:                common.NewDocumentID(),
		SourceID:          source.ID,
		SourceURL:         fmt.Sprintf("extdb://%s/%s/%s", source.ID, source.Table, url.PathEscape(filename)),
		CanonicalFilename: blobName,
		FileType:          ext,
		BlobURL:           blobURL,
		ContentHash:       contentHash,
		UploadedAt:        now,
		Visibility:        models.VisibilityInstitutionOnly,
		ApprovalStatus:    models.ApprovalPending,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := g.documents.SaveDocument(ctx, doc); err != nil {
		return err
	}

	if meta := metadataFromRow(doc.ID, source.MetadataColumns, row); meta != nil {
		if err := g.metadata.SaveMetadata(ctx, meta); err != nil {
			g.logger.Warn().Err(err).Str("doc_id", doc.ID).Msg("Failed to save row metadata")
		}
	}

	return nil
}

// fileBytes resolves the file column to content, fetching from the
// source's object store when the column carries a path.
func (g *Ingester) fileBytes(ctx context.Context, source *models.ExternalDataSource, row map[string]interface{}) ([]byte, error) {
	value := row[source.FileColumn]

	if source.Storage == models.ExternalStorageDatabase {
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		default:
			return nil, fmt.Errorf("file column %s is not bytes", source.FileColumn)
		}
	}

	filePath := asString(value)
	if filePath == "" {
		return nil, fmt.Errorf("file column %s is empty", source.FileColumn)
	}
	if source.PathPrefix != "" {
		filePath = strings.TrimSuffix(source.PathPrefix, "/") + "/" + strings.TrimPrefix(filePath, "/")
	}

	cfg := source.ObjectStore
	fileURL := fmt.Sprintf("%s/%s/%s",
		strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket, strings.TrimPrefix(filePath, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid object URL: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, models.WrapError(models.KindUpstreamTransient, "object fetch failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, models.NewError(models.KindUpstreamTransient,
			fmt.Sprintf("object store returned HTTP %d for %s", resp.StatusCode, filePath))
	}

	return io.ReadAll(resp.Body)
}

// metadataFromRow merges metadata columns into the structured fields
// when names match known fields. Unmatched columns are ignored.
func metadataFromRow(docID string, columns []string, row map[string]interface{}) *models.DocumentMetadata {
	meta := &models.DocumentMetadata{
		DocID:           docID,
		EmbeddingStatus: models.EmbeddingNotEmbedded,
		MetadataStatus:  models.MetadataProcessing,
	}

	matched := false
	for _, col := range columns {
		value := asString(row[col])
		if value == "" {
			continue
		}
		switch strings.ToLower(col) {
		case "title":
			meta.Title = value
			matched = true
		case "department":
			meta.Department = value
			matched = true
		case "document_type", "doc_type", "type":
			meta.DocumentType = strings.ToLower(value)
			matched = true
		case "summary", "description":
			meta.Summary = value
			matched = true
		case "language", "lang":
			meta.Language = strings.ToLower(value)
			matched = true
		case "keywords", "tags":
			for _, kw := range strings.Split(value, ",") {
				if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
					meta.Keywords = append(meta.Keywords, kw)
				}
			}
			matched = true
		}
	}

	if !matched {
		return nil
	}
	meta.MetadataStatus = models.MetadataReady
	return meta
}

// buildDSN renders a read-only Postgres connection string
func buildDSN(source *models.ExternalDataSource, password string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?default_transaction_read_only=on&sslmode=prefer",
		url.QueryEscape(source.Username), url.QueryEscape(password),
		source.Host, source.Port, source.DBName,
	)
}

// buildQuery selects the configured columns, newest rows first
func buildQuery(source *models.ExternalDataSource, limit int) string {
	columns := []string{
		quoteIdent(source.FileColumn),
		quoteIdent(source.FilenameColumn),
	}
	for _, col := range source.MetadataColumns {
		columns = append(columns, quoteIdent(col))
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), quoteIdent(source.Table))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return query
}

// quoteIdent quotes a SQL identifier, stripping embedded quotes
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, ``) + `"`
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	case sql.NullString:
		return strings.TrimSpace(v.String)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
