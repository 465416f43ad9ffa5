package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// HTTPOCRClient talks to an external OCR service over HTTP. The
// service accepts raw document bytes and answers {"text": "..."}.
type HTTPOCRClient struct {
	endpoint string
	client   *http.Client
	logger   arbor.ILogger
}

// NewHTTPOCRClient creates an OCR client for the configured endpoint.
// Returns nil when no endpoint is configured so callers can wire the
// absence of OCR explicitly.
func NewHTTPOCRClient(endpoint string, logger arbor.ILogger) interfaces.OCRClient {
	if endpoint == "" {
		return nil
	}
	return &HTTPOCRClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 120 * time.Second},
		logger:   logger,
	}
}

// Recognize submits document bytes for OCR and returns the recognized text
func (c *HTTPOCRClient) Recognize(ctx context.Context, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", models.WrapError(models.KindExtractionFailed, "OCR request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read OCR response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", models.NewError(models.KindExtractionFailed,
			fmt.Sprintf("OCR service returned HTTP %d", resp.StatusCode))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", models.WrapError(models.KindExtractionFailed, "invalid OCR response", err)
	}

	c.logger.Debug().
		Int("input_bytes", len(data)).
		Int("text_chars", len(parsed.Text)).
		Msg("OCR completed")

	return parsed.Text, nil
}
