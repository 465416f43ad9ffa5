package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

func newTestDownloader(t *testing.T) interfaces.Downloader {
	t.Helper()
	cfg := &common.DownloaderConfig{
		RequestTimeout: "5s",
		MaxAttempts:    3,
		MaxBodySize:    1024,
		MaxRedirects:   5,
	}
	d, err := NewService(cfg, common.GetLogger())
	require.NoError(t, err)
	return d
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer server.Close()

	d := newTestDownloader(t)
	result, err := d.Fetch(context.Background(), server.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, []byte("%PDF-1.4 fake"), result.Bytes)
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	d := newTestDownloader(t)
	result, err := d.Fetch(context.Background(), server.URL, "")
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), result.Bytes)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	d := newTestDownloader(t)
	_, err := d.Fetch(context.Background(), server.URL, "")
	require.Error(t, err)
	assert.Equal(t, models.KindUpstreamBlocked, models.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_RateLimitExhaustionBlocked(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := newTestDownloader(t)
	_, err := d.Fetch(context.Background(), server.URL, "")
	require.Error(t, err)
	assert.Equal(t, models.KindUpstreamBlocked, models.KindOf(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	d := newTestDownloader(t)
	_, err := d.Fetch(context.Background(), server.URL, "")
	require.Error(t, err)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestFetch_BodySizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 4096))
	}))
	defer server.Close()

	d := newTestDownloader(t)
	_, err := d.Fetch(context.Background(), server.URL, "")
	require.Error(t, err)
	assert.Equal(t, models.KindInputInvalid, models.KindOf(err))
}

func TestHead_ChangeHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("ETag", `"v2"`)
		w.Header().Set("Last-Modified", "Mon, 02 Jun 2025 10:00:00 GMT")
	}))
	defer server.Close()

	d := newTestDownloader(t)
	result, err := d.Head(context.Background(), server.URL, "")
	require.NoError(t, err)
	assert.Equal(t, `"v2"`, result.ETag)
	assert.Equal(t, "Mon, 02 Jun 2025 10:00:00 GMT", result.LastModified)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestUserAgentRotation(t *testing.T) {
	seen := make(map[string]bool)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.Header.Get("User-Agent")] = true
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	d := newTestDownloader(t)
	for i := 0; i < len(userAgents); i++ {
		_, err := d.Fetch(context.Background(), server.URL, "")
		require.NoError(t, err)
	}
	assert.Len(t, seen, len(userAgents))
}
