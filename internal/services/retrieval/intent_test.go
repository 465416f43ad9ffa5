package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mandate-ai/mandate/internal/models"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		intent string
	}{
		{"plain question", "What is the fee refund policy?", models.IntentQA},
		{"comparison", "Compare the 2020 and 2024 admission circulars", models.IntentComparison},
		{"versus", "NEP 2020 vs NEP 2019 on credits", models.IntentComparison},
		{"count", "How many notifications were issued in 2023?", models.IntentCount},
		{"list", "List all scholarship schemes", models.IntentList},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.intent, ClassifyIntent(tt.query).Intent)
		})
	}
}

func TestClassifyIntent_ExtractsFilters(t *testing.T) {
	intent := ClassifyIntent("Compare the 2020 circular with the 2024 regulation in Hindi")

	assert.Equal(t, models.IntentComparison, intent.Intent)
	assert.ElementsMatch(t, []int{2020, 2024}, intent.Years)
	assert.ElementsMatch(t, []string{"circular", "regulation"}, intent.Types)
	assert.Equal(t, []string{"hi"}, intent.Languages)
}

func TestClassifyIntent_DocumentIDs(t *testing.T) {
	intent := ClassifyIntent("Summarize doc_12ab34cd please")
	assert.Equal(t, []string{"doc_12ab34cd"}, intent.DocumentIDs)
}

func TestClassifyIntent_IgnoresImplausibleYears(t *testing.T) {
	intent := ClassifyIntent("Circular number 1875 from file 3056")
	assert.Empty(t, intent.Years)
}

func TestClassifyIntent_DeduplicatesYears(t *testing.T) {
	intent := ClassifyIntent("The 2024 rules replaced the earlier 2024 draft")
	assert.Equal(t, []int{2024}, intent.Years)
}
