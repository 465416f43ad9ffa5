package retrieval

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mandate-ai/mandate/internal/models"
)

// Lightweight keyword/regex intent classification. Provider calls are
// reserved for reranking; classification must be cheap enough to run
// on every query.

var (
	yearPattern  = regexp.MustCompile(`\b(19[5-9]\d|20[0-4]\d)\b`)
	docIDPattern = regexp.MustCompile(`\bdoc_[0-9a-f-]+\b`)

	comparisonWords = []string{"compare", "comparison", "versus", " vs ", " vs.", "difference between", "differ", "contrast"}
	countWords      = []string{"how many", "count of", "number of", "total number"}
	listWords       = []string{"list all", "list the", "show all", "show me all", "enumerate", "what are all"}

	knownTypes = []string{
		"circular", "notification", "policy", "regulation", "guideline",
		"order", "report", "act", "amendment", "scheme", "advisory",
	}

	knownLanguages = map[string]string{
		"english": "en", "hindi": "hi", "tamil": "ta", "telugu": "te",
		"bengali": "bn", "marathi": "mr", "gujarati": "gu", "kannada": "kn",
	}
)

// ClassifyIntent derives the query intent and any filters embedded in
// the question text.
func ClassifyIntent(query string) *models.QueryIntent {
	lower := strings.ToLower(query)

	intent := models.IntentQA
	switch {
	case containsAny(lower, comparisonWords):
		intent = models.IntentComparison
	case containsAny(lower, countWords):
		intent = models.IntentCount
	case containsAny(lower, listWords):
		intent = models.IntentList
	}

	result := &models.QueryIntent{Intent: intent}

	for _, match := range yearPattern.FindAllString(query, -1) {
		if year, err := strconv.Atoi(match); err == nil {
			result.Years = appendUniqueInt(result.Years, year)
		}
	}

	result.DocumentIDs = docIDPattern.FindAllString(lower, -1)

	for _, docType := range knownTypes {
		if strings.Contains(lower, docType) {
			result.Types = append(result.Types, docType)
		}
	}

	for name, code := range knownLanguages {
		if strings.Contains(lower, name) {
			result.Languages = appendUnique(result.Languages, code)
		}
	}

	return result
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func appendUniqueInt(list []int, value int) []int {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
