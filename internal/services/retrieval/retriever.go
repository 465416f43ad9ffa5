package retrieval

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
	"github.com/mandate-ai/mandate/internal/services/llm"
)

// candidate is one retrieval candidate before reranking
type candidate struct {
	chunk      models.ResultChunk
	denseScore float64
	metaScore  float64
	fromMeta   bool
}

// Service runs the hybrid retrieval pipeline: metadata search and
// dense search in union, lazy embedding for metadata-only hits, the
// role filter, then LLM reranking with a score-blend fallback.
type Service struct {
	documents   interfaces.DocumentStorage
	metadata    interfaces.MetadataStorage
	embedder    interfaces.Embedder
	vectors     interfaces.VectorStore
	coordinator interfaces.EmbeddingCoordinator
	factory     *llm.ProviderFactory
	config      *common.RetrievalConfig
	maxLazy     int
	logger      arbor.ILogger
}

// NewService creates the retriever
func NewService(
	documents interfaces.DocumentStorage,
	metadata interfaces.MetadataStorage,
	embedder interfaces.Embedder,
	vectors interfaces.VectorStore,
	coordinator interfaces.EmbeddingCoordinator,
	factory *llm.ProviderFactory,
	config *common.RetrievalConfig,
	embedding *common.EmbeddingConfig,
	logger arbor.ILogger,
) interfaces.Retriever {
	maxLazy := embedding.MaxLazyPerQuery
	if maxLazy <= 0 {
		maxLazy = 3
	}

	return &Service{
		documents:   documents,
		metadata:    metadata,
		embedder:    embedder,
		vectors:     vectors,
		coordinator: coordinator,
		factory:     factory,
		config:      config,
		maxLazy:     maxLazy,
		logger:      logger,
	}
}

// Retrieve returns the top-K chunks for a query under the caller's
// access rights.
func (s *Service) Retrieve(ctx context.Context, query string, userCtx *models.UserContext) ([]models.ResultChunk, *models.QueryIntent, error) {
	intent := ClassifyIntent(query)

	metaCandidates, err := s.metadataCandidates(ctx, query, intent, userCtx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Metadata candidate generation failed")
	}

	s.triggerLazyEmbedding(ctx, metaCandidates)

	denseCandidates, err := s.denseCandidates(ctx, query, intent, userCtx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Dense candidate generation failed")
	}

	merged := mergeCandidates(metaCandidates, denseCandidates)
	if len(merged) == 0 {
		return nil, intent, nil
	}

	topK := s.config.TopK
	if topK <= 0 {
		topK = 5
	}

	ranked, err := s.rerank(ctx, query, merged, topK)
	if err != nil {
		s.logger.Warn().Err(err).Msg("LLM rerank failed, falling back to score blend")
		ranked = s.blendScores(merged, topK)
	}

	return ranked, intent, nil
}

// metadataCandidates searches the metadata index and applies the
// access matrix and intent filters per record.
func (s *Service) metadataCandidates(ctx context.Context, query string, intent *models.QueryIntent, userCtx *models.UserContext) ([]*candidate, error) {
	limit := s.config.CandidateLimit
	if limit <= 0 {
		limit = 20
	}

	metas, err := s.metadata.SearchMetadata(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	var candidates []*candidate
	for rank, meta := range metas {
		doc, err := s.documents.GetDocument(ctx, meta.DocID)
		if err != nil {
			continue
		}
		if !CanAccess(userCtx, doc) {
			continue
		}
		if !matchesIntentFilters(intent, doc, meta) {
			continue
		}

		// Rank position maps to a descending pseudo-score so metadata
		// results are comparable in the blend fallback.
		score := 1.0 - float64(rank)/float64(limit)

		text := truncateRunes(doc.ExtractedText, 1200)

		candidates = append(candidates, &candidate{
			chunk: models.ResultChunk{
				DocID:          doc.ID,
				ChunkIndex:     0,
				Text:           text,
				Filename:       doc.CanonicalFilename,
				ApprovalStatus: doc.ApprovalStatus,
				Score:          score,
			},
			metaScore: score,
			fromMeta:  true,
		})
	}

	return candidates, nil
}

// triggerLazyEmbedding synchronously embeds metadata-only candidates
// whose documents are not yet in the vector index, bounded per query.
func (s *Service) triggerLazyEmbedding(ctx context.Context, metaCandidates []*candidate) {
	embedded := 0
	for _, cand := range metaCandidates {
		if embedded >= s.maxLazy {
			break
		}
		meta, err := s.metadata.GetMetadata(ctx, cand.chunk.DocID)
		if err != nil || meta.EmbeddingStatus == models.EmbeddingEmbedded {
			continue
		}

		if err := s.coordinator.EnsureEmbedded(ctx, cand.chunk.DocID); err != nil {
			s.logger.Warn().
				Err(err).
				Str("doc_id", cand.chunk.DocID).
				Msg("Lazy embedding failed")
			continue
		}
		embedded++
	}
}

// denseCandidates embeds the query and searches the vector index with
// the caller's access filter applied inside the store.
func (s *Service) denseCandidates(ctx context.Context, query string, intent *models.QueryIntent, userCtx *models.UserContext) ([]*candidate, error) {
	limit := s.config.CandidateLimit
	if limit <= 0 {
		limit = 20
	}

	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	filters := &interfaces.VectorFilters{
		Years:         intent.Years,
		DocumentTypes: intent.Types,
		Access:        AccessFilterFor(userCtx),
	}

	hits, err := s.vectors.Search(ctx, queryVec, filters, limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]*candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, &candidate{
			chunk: models.ResultChunk{
				DocID:          hit.DocID,
				ChunkIndex:     hit.ChunkIndex,
				Text:           hit.Text,
				Filename:       hit.Filename,
				SectionHeader:  hit.SectionHeader,
				ApprovalStatus: hit.ApprovalStatus,
				Score:          hit.Score,
			},
			denseScore: hit.Score,
		})
	}
	return candidates, nil
}

// mergeCandidates unions the two candidate lists by (doc, chunk),
// keeping both scores when a chunk appears in both.
func mergeCandidates(meta, dense []*candidate) []*candidate {
	type key struct {
		docID string
		chunk int
	}
	byKey := make(map[key]*candidate)
	var order []key

	for _, cand := range dense {
		k := key{cand.chunk.DocID, cand.chunk.ChunkIndex}
		byKey[k] = cand
		order = append(order, k)
	}
	for _, cand := range meta {
		k := key{cand.chunk.DocID, cand.chunk.ChunkIndex}
		if existing, ok := byKey[k]; ok {
			existing.metaScore = cand.metaScore
			existing.fromMeta = true
			continue
		}
		byKey[k] = cand
		order = append(order, k)
	}

	merged := make([]*candidate, 0, len(order))
	for _, k := range order {
		merged = append(merged, byKey[k])
	}
	return merged
}

// matchesIntentFilters applies year, type and doc-id filters extracted
// from the query to a metadata candidate.
func matchesIntentFilters(intent *models.QueryIntent, doc *models.DocumentRecord, meta *models.DocumentMetadata) bool {
	if len(intent.Years) > 0 {
		if doc.VersionDate == nil {
			return false
		}
		year := doc.VersionDate.Year()
		found := false
		for _, y := range intent.Years {
			if y == year {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(intent.Types) > 0 {
		found := false
		for _, t := range intent.Types {
			if strings.EqualFold(t, meta.DocumentType) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(intent.DocumentIDs) > 0 {
		found := false
		for _, id := range intent.DocumentIDs {
			if id == doc.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(intent.Languages) > 0 && meta.Language != "" {
		found := false
		for _, lang := range intent.Languages {
			if lang == meta.Language {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// blendScores is the rerank fallback: alpha-weighted blend of dense
// and metadata scores.
func (s *Service) blendScores(candidates []*candidate, topK int) []models.ResultChunk {
	alpha := s.config.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = 0.7
	}

	scored := make([]*candidate, len(candidates))
	copy(scored, candidates)
	for _, cand := range scored {
		cand.chunk.Score = alpha*cand.denseScore + (1-alpha)*cand.metaScore
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].chunk.Score > scored[j].chunk.Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}

	results := make([]models.ResultChunk, len(scored))
	for i, cand := range scored {
		results[i] = cand.chunk
	}
	return results
}

// truncateRunes caps a string at max bytes without splitting a
// multi-byte rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
