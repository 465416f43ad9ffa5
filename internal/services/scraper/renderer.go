package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/interfaces"
)

// HTTPRenderer fetches listing pages over plain HTTP. Discovery pages
// are never retried, so it goes through a single downloader attempt.
type HTTPRenderer struct {
	downloader interfaces.Downloader
}

// NewHTTPRenderer creates the default page renderer.
func NewHTTPRenderer(downloader interfaces.Downloader) *HTTPRenderer {
	return &HTTPRenderer{downloader: downloader}
}

func (r *HTTPRenderer) RenderPage(ctx context.Context, url string) (string, error) {
	result, err := r.downloader.Fetch(ctx, url, "")
	if err != nil {
		return "", err
	}
	return string(result.Bytes), nil
}

// ChromeRenderer executes JavaScript in a headless browser before
// capturing the page. One shared allocator serves all renders;
// per-page browser contexts keep navigations isolated.
type ChromeRenderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	logger      arbor.ILogger
	mu          sync.Mutex
	closed      bool
}

// NewChromeRenderer starts the headless browser allocator.
func NewChromeRenderer(timeout time.Duration, logger arbor.ILogger) *ChromeRenderer {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Info().Dur("render_timeout", timeout).Msg("Headless browser renderer ready")

	return &ChromeRenderer{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		timeout:     timeout,
		logger:      logger,
	}
}

func (r *ChromeRenderer) RenderPage(ctx context.Context, url string) (string, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", fmt.Errorf("renderer is closed")
	}
	r.mu.Unlock()

	browserCtx, cancelBrowser := chromedp.NewContext(r.allocCtx)
	defer cancelBrowser()

	renderCtx, cancelTimeout := context.WithTimeout(browserCtx, r.timeout)
	defer cancelTimeout()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			cancelBrowser()
		case <-done:
		}
	}()

	var html string
	err := chromedp.Run(renderCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("page render failed for %s: %w", url, err)
	}
	return html, nil
}

// Close shuts down the browser allocator.
func (r *ChromeRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.allocCancel()
}
