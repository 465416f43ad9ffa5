package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mandate-ai/mandate/internal/models"
)

const rerankSystemPrompt = `You rank document excerpts by relevance to a user question about
education policy and regulation. Return the indices of the most
relevant excerpts, best first.`

var rerankSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"ranking": map[string]interface{}{
			"type":        "array",
			"description": "Excerpt indices ordered from most to least relevant",
			"items":       map[string]interface{}{"type": "integer"},
		},
	},
	"required": []interface{}{"ranking"},
}

// rerankExcerptChars caps how much of each candidate the reranker sees
const rerankExcerptChars = 600

// rerankTimeout bounds the provider call; on expiry the caller falls
// back to the score blend.
const rerankTimeout = 60 * time.Second

// rerank asks the provider to order candidates and returns the top-K.
// Indices outside the candidate range are discarded; a response with
// no valid indices is an error so the caller falls back.
func (s *Service) rerank(ctx context.Context, query string, candidates []*candidate, topK int) ([]models.ResultChunk, error) {
	if s.factory == nil {
		return nil, fmt.Errorf("no rerank provider configured")
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Question: %s\n\nExcerpts:\n", query)
	for i, cand := range candidates {
		excerpt := cand.chunk.Text
		if len(excerpt) > rerankExcerptChars {
			excerpt = excerpt[:rerankExcerptChars]
		}
		fmt.Fprintf(&prompt, "[%d] (%s", i, cand.chunk.Filename)
		if cand.chunk.SectionHeader != "" {
			fmt.Fprintf(&prompt, ", %s", cand.chunk.SectionHeader)
		}
		fmt.Fprintf(&prompt, ")\n%s\n\n", excerpt)
	}
	fmt.Fprintf(&prompt, "Rank the %d most relevant excerpts.", topK)

	callCtx, cancel := context.WithTimeout(ctx, rerankTimeout)
	defer cancel()

	jsonText, err := s.factory.GenerateStructured(callCtx, s.config.RerankModel, rerankSystemPrompt, prompt.String(), rerankSchema)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Ranking []int `json:"ranking"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("unparseable rerank response: %w", err)
	}

	seen := make(map[int]bool)
	var results []models.ResultChunk
	for rank, idx := range parsed.Ranking {
		if idx < 0 || idx >= len(candidates) || seen[idx] {
			continue
		}
		seen[idx] = true

		chunk := candidates[idx].chunk
		chunk.Score = 1.0 - float64(rank)/float64(len(parsed.Ranking))
		results = append(results, chunk)
		if len(results) == topK {
			break
		}
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("rerank returned no valid indices")
	}
	return results, nil
}
