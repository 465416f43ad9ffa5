package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"429 status", errors.New("Error 429: too many requests"), true},
		{"resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), true},
		{"quota message", errors.New("quota exceeded for model"), true},
		{"anthropic rate limit", errors.New("rate_limit_error: Number of requests has exceeded your rate limit"), true},
		{"unrelated error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRateLimitError(tt.err))
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected time.Duration
	}{
		{"please retry pattern", errors.New("429: Please retry in 32s"), 32 * time.Second},
		{"retryDelay pattern", errors.New(`retryDelay: 17s`), 17 * time.Second},
		{"fractional seconds", errors.New("Please retry in 2.5s"), 2500 * time.Millisecond},
		{"no delay info", errors.New("429 too many requests"), 0},
		{"nil error", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractRetryDelay(tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	config := NewDefaultRetryConfig()

	first := config.CalculateBackoff(0, 0)
	assert.Equal(t, 45*time.Second, first)

	second := config.CalculateBackoff(1, 0)
	assert.Equal(t, time.Duration(float64(45*time.Second)*1.5), second)

	// Capped at MaxBackoff regardless of attempt count
	capped := config.CalculateBackoff(10, 0)
	assert.Equal(t, 90*time.Second, capped)

	// API-suggested delay takes over as the base, plus a safety margin
	suggested := config.CalculateBackoff(0, 20*time.Second)
	assert.Equal(t, 25*time.Second, suggested)
}

func TestDetectProvider(t *testing.T) {
	factory := newTestFactory()

	tests := []struct {
		model    string
		expected ProviderType
	}{
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"claude/claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-haiku", ProviderClaude},
		{"gemini-2.0-flash", ProviderGemini},
		{"google/gemini-2.0-flash", ProviderGemini},
		{"", ProviderGemini},
		{"unknown-model", ProviderGemini},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, factory.DetectProvider(tt.model))
		})
	}
}

func TestNormalizeModel(t *testing.T) {
	factory := newTestFactory()

	assert.Equal(t, "claude-sonnet-4-20250514", factory.NormalizeModel("claude/claude-sonnet-4-20250514"))
	assert.Equal(t, "gemini-2.0-flash", factory.NormalizeModel("google/gemini-2.0-flash"))
	assert.Equal(t, "gemini-2.0-flash", factory.NormalizeModel("gemini-2.0-flash"))
}

func TestStripJSONFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripJSONFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripJSONFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripJSONFences(`{"a":1}`))
}
