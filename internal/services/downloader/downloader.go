package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// userAgents rotates across three browser families so government sites
// that throttle a single UA string keep serving us.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
}

// retryBackoffs between download attempts. Short and fixed because a
// scrape job holds the slot while waiting.
var retryBackoffs = []time.Duration{1 * time.Second, 2 * time.Second}

// Service fetches document bytes over HTTP with retries, redirect caps
// and a body size limit.
type Service struct {
	client      *http.Client
	maxAttempts int
	maxBodySize int64
	uaCounter   atomic.Uint64
	logger      arbor.ILogger
}

// NewService creates a downloader from config
func NewService(config *common.DownloaderConfig, logger arbor.ILogger) (interfaces.Downloader, error) {
	timeout, err := time.ParseDuration(config.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid request_timeout: %w", err)
	}

	maxRedirects := config.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 5
	}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &Service{
		client:      client,
		maxAttempts: maxAttempts,
		maxBodySize: config.MaxBodySize,
		logger:      logger,
	}, nil
}

// nextUserAgent returns the next UA in rotation
func (s *Service) nextUserAgent() string {
	n := s.uaCounter.Add(1)
	return userAgents[int(n)%len(userAgents)]
}

// Fetch downloads the document at url, retrying transient failures.
// A 4xx response other than 408/429 aborts immediately since retrying
// a client error only burns the politeness budget.
func (s *Service) Fetch(ctx context.Context, url, referer string) (*interfaces.DownloadResult, error) {
	var lastErr error
	var lastStatus int

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := retryBackoffs[len(retryBackoffs)-1]
			if attempt-1 < len(retryBackoffs) {
				backoff = retryBackoffs[attempt-1]
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, status, err := s.fetchOnce(ctx, url, referer)
		if err == nil {
			return result, nil
		}

		lastErr = err
		lastStatus = status
		if !models.IsKind(err, models.KindUpstreamTransient) {
			return nil, err
		}

		s.logger.Warn().
			Str("url", url).
			Int("attempt", attempt+1).
			Err(err).
			Msg("Download attempt failed")
	}

	// Rate limiting that survives the whole retry budget means the
	// source is refusing us, not flaking.
	if lastStatus == http.StatusTooManyRequests {
		return nil, models.WrapError(models.KindUpstreamBlocked,
			fmt.Sprintf("upstream rate limited after %d attempts", s.maxAttempts), lastErr)
	}

	return nil, models.WrapError(models.KindUpstreamTransient,
		fmt.Sprintf("download failed after %d attempts", s.maxAttempts), lastErr)
}

func (s *Service) fetchOnce(ctx context.Context, url, referer string) (*interfaces.DownloadResult, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, models.WrapError(models.KindInputInvalid, "invalid download URL", err)
	}
	s.setHeaders(req, referer)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, models.WrapError(models.KindUpstreamTransient, "request failed", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, resp.StatusCode, err
	}

	reader := io.Reader(resp.Body)
	if s.maxBodySize > 0 {
		reader = io.LimitReader(resp.Body, s.maxBodySize+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, resp.StatusCode, models.WrapError(models.KindUpstreamTransient, "reading response body failed", err)
	}
	if s.maxBodySize > 0 && int64(len(body)) > s.maxBodySize {
		return nil, resp.StatusCode, models.NewError(models.KindInputInvalid,
			fmt.Sprintf("response body exceeds %d bytes", s.maxBodySize))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" && len(body) > 0 {
		contentType = http.DetectContentType(body)
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &interfaces.DownloadResult{
		Bytes:       body,
		ContentType: contentType,
		FinalURL:    finalURL,
	}, resp.StatusCode, nil
}

// Head probes the URL for change detection headers without downloading
// the body. Errors are returned as-is; callers fall back to a content
// hash when the probe fails.
func (s *Service) Head(ctx context.Context, url, referer string) (*interfaces.HeadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, models.WrapError(models.KindInputInvalid, "invalid URL", err)
	}
	s.setHeaders(req, referer)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, models.WrapError(models.KindUpstreamTransient, "HEAD request failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return &interfaces.HeadResult{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		StatusCode:   resp.StatusCode,
	}, nil
}

func (s *Service) setHeaders(req *http.Request, referer string) {
	req.Header.Set("User-Agent", s.nextUserAgent())
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,hi;q=0.8")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
}

// classifyStatus maps an HTTP status to a typed pipeline error.
// 408 and 429 are the only retryable 4xx codes.
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return models.NewError(models.KindNotFound, fmt.Sprintf("document not found (HTTP %d)", status))
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return models.NewError(models.KindUpstreamTransient, fmt.Sprintf("retryable upstream status %d", status))
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return models.NewError(models.KindUpstreamBlocked, fmt.Sprintf("upstream blocked request (HTTP %d)", status))
	case status >= 400 && status < 500:
		return models.NewError(models.KindUpstreamBlocked, fmt.Sprintf("upstream rejected request (HTTP %d)", status))
	case status >= 500:
		return models.NewError(models.KindUpstreamTransient, fmt.Sprintf("upstream error (HTTP %d)", status))
	default:
		return models.NewError(models.KindUpstreamTransient, fmt.Sprintf("unexpected status %d", status))
	}
}
