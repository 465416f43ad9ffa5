package common

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain title unchanged",
			input:    "Annual Report 2024",
			expected: "Annual Report 2024",
		},
		{
			name:     "colon replaced with dash",
			input:    "Circular: Fee Regulation",
			expected: "Circular- Fee Regulation",
		},
		{
			name:     "slashes replaced with underscore",
			input:    "UGC/2024\\notice",
			expected: "UGC_2024_notice",
		},
		{
			name:     "quotes question marks and asterisks removed",
			input:    `What is "new"? *draft*`,
			expected: "What is new draft",
		},
		{
			name:     "truncated to 100 chars",
			input:    strings.Repeat("a", 150),
			expected: strings.Repeat("a", 100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestBlobName(t *testing.T) {
	fetched := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	name := BlobName("Fee Circular: 2025", "PDF", fetched)
	assert.Equal(t, "scraped_20250314_092653_Fee Circular- 2025.pdf", name)

	name = BlobName("doc", "", fetched)
	assert.True(t, strings.HasSuffix(name, ".bin"))
}

func TestSafeTitle(t *testing.T) {
	assert.Equal(t, "Plain ASCII title", SafeTitle("Plain ASCII title"))

	devanagari := "शिक्षा नीति"
	safe := SafeTitle(devanagari)
	assert.Contains(t, safe, "non-ascii title")
	assert.Contains(t, safe, "11 chars")
}

func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://example.gov/docs/fee-circular-2024.pdf", "fee circular 2024"},
		{"https://example.gov/docs/annual_report.pdf?download=1", "annual report"},
		{"https://example.gov/", "Untitled Document"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, TitleFromURL(tt.url), tt.url)
	}
}
