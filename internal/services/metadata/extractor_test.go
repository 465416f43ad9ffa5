package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mandate-ai/mandate/internal/common"
)

func newGateExtractor() *Extractor {
	cfg := common.NewDefaultConfig()
	return &Extractor{config: &cfg.Metadata, logger: common.GetLogger()}
}

func TestPassesGate(t *testing.T) {
	e := newGateExtractor()

	tests := []struct {
		name     string
		raw      rawMetadata
		expected bool
	}{
		{
			name: "complete metadata",
			raw: rawMetadata{
				Title:    "UGC Regulations on Fee Structure 2024",
				Summary:  "Sets out the revised fee structure applicable to all deemed universities.",
				Keywords: []string{"fees", "ugc", "regulation"},
			},
			expected: true,
		},
		{
			name: "placeholder title",
			raw: rawMetadata{
				Title:    "Untitled",
				Summary:  "Sets out the revised fee structure applicable to all deemed universities.",
				Keywords: []string{"fees", "ugc", "regulation"},
			},
			expected: false,
		},
		{
			name: "short summary",
			raw: rawMetadata{
				Title:    "UGC Regulations on Fee Structure 2024",
				Summary:  "Fees.",
				Keywords: []string{"fees", "ugc", "regulation"},
			},
			expected: false,
		},
		{
			name: "too few keywords after dedup",
			raw: rawMetadata{
				Title:    "UGC Regulations on Fee Structure 2024",
				Summary:  "Sets out the revised fee structure applicable to all deemed universities.",
				Keywords: []string{"fees", "FEES", "n/a"},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.passesGate(&tt.raw))
		})
	}
}

func TestScore(t *testing.T) {
	e := newGateExtractor()

	full := &rawMetadata{
		Title:        "National Credit Framework Notification",
		Department:   "Ministry of Education",
		DocumentType: "notification",
		Summary:      "Notifies the national credit framework for school and higher education.",
		Keywords:     []string{"credit", "framework", "education"},
	}
	assert.InDelta(t, 1.0, e.score(full), 0.001)

	partial := &rawMetadata{Title: "National Credit Framework Notification"}
	assert.InDelta(t, 0.3, e.score(partial), 0.001)
}

func TestCleanKeywords(t *testing.T) {
	out := cleanKeywords([]string{" Fees ", "fees", "UGC", "", "n/a", "policy"})
	assert.Equal(t, []string{"fees", "ugc", "policy"}, out)

	many := make([]string, 15)
	for i := range many {
		many[i] = string(rune('a' + i))
	}
	assert.Len(t, cleanKeywords(many), 10)
}
