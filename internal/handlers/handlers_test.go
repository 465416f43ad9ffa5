package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
	"github.com/mandate-ai/mandate/internal/services/extdb"
	"github.com/mandate-ai/mandate/internal/storage/badger"
)

func newManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := badger.NewManager(common.GetLogger(), &common.StorageConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestSourceHandler_CreateAndList(t *testing.T) {
	manager := newManager(t)
	h := NewSourceHandler(manager.SourceStorage(), nil, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/web-scraping/sources", jsonBody(t, map[string]interface{}{
		"name":     "MoE Circulars",
		"base_url": "https://www.education.gov.in/documents",
		"dialect":  "moe",
		"keywords": []string{"Fee", "fee", " scholarship "},
		"enabled":  true,
	}))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Source
	decodeBody(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"fee", "scholarship"}, created.Keywords)
	assert.Equal(t, 10, created.MaxPages)
	assert.Equal(t, 3, created.WindowSize)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/web-scraping/sources", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &listing)
	assert.Equal(t, 1, listing.Count)
}

func TestSourceHandler_CreateInvalidDialect(t *testing.T) {
	manager := newManager(t)
	h := NewSourceHandler(manager.SourceStorage(), nil, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/web-scraping/sources", jsonBody(t, map[string]interface{}{
		"name":     "bad",
		"base_url": "https://x.gov",
		"dialect":  "mystery",
	}))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSourceHandler_DeleteMissing(t *testing.T) {
	manager := newManager(t)
	h := NewSourceHandler(manager.SourceStorage(), nil, common.GetLogger())

	req := httptest.NewRequest(http.MethodDelete, "/web-scraping/sources/src_missing", nil)
	rec := httptest.NewRecorder()
	h.Delete(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubScraper struct {
	started  []string
	stopped  []string
	stopErr  error
	startErr error
}

func (s *stubScraper) StartScrape(ctx context.Context, sourceID string, overrides *models.ScrapeOverrides) (string, error) {
	if s.startErr != nil {
		return "", s.startErr
	}
	s.started = append(s.started, sourceID)
	return "job_test", nil
}

func (s *stubScraper) StopScrape(jobID string) error {
	if s.stopErr != nil {
		return s.stopErr
	}
	s.stopped = append(s.stopped, jobID)
	return nil
}

func (s *stubScraper) GetJob(ctx context.Context, jobID string) (*models.ScrapeJob, error) {
	return &models.ScrapeJob{JobID: jobID, Status: models.JobStatusRunning}, nil
}

func (s *stubScraper) ActiveJobs(ctx context.Context) ([]*models.ScrapeJob, error) {
	return []*models.ScrapeJob{{JobID: "job_1"}}, nil
}

func (s *stubScraper) Shutdown(ctx context.Context) error { return nil }

func TestScraperHandler_Scrape(t *testing.T) {
	manager := newManager(t)
	scraper := &stubScraper{}
	h := NewScraperHandler(scraper, manager.DocumentStorage(), manager.MetadataStorage(), common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/web-scraping/sources/src_1/scrape",
		jsonBody(t, map[string]interface{}{"max_documents": 5, "force_full_scan": true}))
	rec := httptest.NewRecorder()
	h.Scrape(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "job_test", resp["job_id"])
	assert.Equal(t, []string{"src_1"}, scraper.started)
}

func TestScraperHandler_StopRequiresJobID(t *testing.T) {
	manager := newManager(t)
	h := NewScraperHandler(&stubScraper{}, manager.DocumentStorage(), manager.MetadataStorage(), common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/web-scraping/stop", jsonBody(t, map[string]string{}))
	rec := httptest.NewRecorder()
	h.Stop(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScraperHandler_ScrapedDocumentsOmitsText(t *testing.T) {
	manager := newManager(t)
	ctx := context.Background()
	require.NoError(t, manager.DocumentStorage().SaveDocument(ctx, &models.DocumentRecord{
		ID: "doc_1", SourceID: "src_1", SourceURL: "https://x.gov/a.pdf",
		CanonicalFilename: "a.pdf", ExtractedText: "secret full text",
		Visibility: models.VisibilityPublic, ApprovalStatus: models.ApprovalApproved,
	}))

	h := NewScraperHandler(&stubScraper{}, manager.DocumentStorage(), manager.MetadataStorage(), common.GetLogger())
	rec := httptest.NewRecorder()
	h.ScrapedDocuments(rec, httptest.NewRequest(http.MethodGet, "/web-scraping/scraped-documents", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret full text")
	assert.Contains(t, rec.Body.String(), "a.pdf")
}

func TestChatHandler_RequiresQuestion(t *testing.T) {
	h := NewChatHandler(&stubChat{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/chat/query", jsonBody(t, map[string]string{"question": "   "}))
	rec := httptest.NewRecorder()
	h.Query(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubChat struct {
	lastUser *models.UserContext
}

func (s *stubChat) Query(ctx context.Context, question, threadID string, userCtx *models.UserContext) (*models.QueryResponse, error) {
	s.lastUser = userCtx
	return &models.QueryResponse{Answer: "42", Format: models.FormatText}, nil
}

func TestChatHandler_PassesUserContext(t *testing.T) {
	chat := &stubChat{}
	h := NewChatHandler(chat, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/chat/query", jsonBody(t, map[string]string{"question": "what is the fee cap?"}))
	req.Header.Set("X-User-Role", models.RoleStudent)
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-Institution-Id", "inst1")
	rec := httptest.NewRecorder()
	h.Query(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, chat.lastUser)
	assert.Equal(t, models.RoleStudent, chat.lastUser.Role)
	assert.Equal(t, "inst1", chat.lastUser.InstitutionID)
}

type stubIngester struct {
	synced []string
}

func (s *stubIngester) Sync(ctx context.Context, sourceID string, limit int) (*models.SyncLog, error) {
	s.synced = append(s.synced, sourceID)
	return &models.SyncLog{ID: "sync_1", SourceID: sourceID, Status: "succeeded", Processed: 3}, nil
}

func TestDataSourceHandler_CreateEncryptsPassword(t *testing.T) {
	manager := newManager(t)
	cipher, err := extdb.NewCipher("unit-test-key")
	require.NoError(t, err)
	h := NewDataSourceHandler(manager.ExternalSourceStorage(), manager.SyncLogStorage(), &stubIngester{}, cipher, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/data-sources", jsonBody(t, map[string]interface{}{
		"name": "records", "host": "db.example.edu", "port": 5432,
		"db_name": "records", "username": "reader", "password": "s3cret",
		"storage": "database", "table": "circulars",
		"file_column": "content", "filename_column": "filename",
	}))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The response never carries credentials, encrypted or not.
	assert.NotContains(t, rec.Body.String(), "s3cret")

	var created models.ExternalDataSource
	decodeBody(t, rec, &created)
	assert.Empty(t, created.PasswordEncrypted)
	stored, err := manager.ExternalSourceStorage().GetExternalSource(context.Background(), created.ID)
	require.NoError(t, err)
	plain, err := cipher.Decrypt(stored.PasswordEncrypted)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", plain)
}

func TestDataSourceHandler_Sync(t *testing.T) {
	manager := newManager(t)
	cipher, err := extdb.NewCipher("unit-test-key")
	require.NoError(t, err)
	ingester := &stubIngester{}
	h := NewDataSourceHandler(manager.ExternalSourceStorage(), manager.SyncLogStorage(), ingester, cipher, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/data-sources/ext_1/sync?limit=10", nil)
	rec := httptest.NewRecorder()
	h.Sync(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ext_1"}, ingester.synced)
	var log models.SyncLog
	decodeBody(t, rec, &log)
	assert.Equal(t, 3, log.Processed)
}

func TestPathID(t *testing.T) {
	assert.Equal(t, "src_1", PathID("/web-scraping/sources/src_1", "/web-scraping/sources"))
	assert.Equal(t, "src_1", PathID("/web-scraping/sources/src_1/scrape", "/web-scraping/sources"))
	assert.Equal(t, "", PathID("/web-scraping/sources/", "/web-scraping/sources"))
	assert.Equal(t, "doc_9", PathID("/documents/doc_9/status", "/documents"))
}

func TestPagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?page=3&limit=10", nil)
	offset, limit := Pagination(req)
	assert.Equal(t, 20, offset)
	assert.Equal(t, 10, limit)

	req = httptest.NewRequest(http.MethodGet, "/x?page=0&limit=9999", nil)
	offset, limit = Pagination(req)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 20, limit)
}

func TestUserContextFrom(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	assert.Nil(t, UserContextFrom(req))

	req.Header.Set("X-User-Role", "ministry_admin")
	userCtx := UserContextFrom(req)
	require.NotNil(t, userCtx)
	assert.Equal(t, "ministry_admin", userCtx.Role)
}
