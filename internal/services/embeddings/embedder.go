package embeddings

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/services/llm"
)

// Embedder wraps the provider's embedding model and pads native
// vectors up to the canonical index dimension. Every vector in the
// index has the canonical dimension, so documents embedded under
// different native models remain comparable.
type Embedder struct {
	factory      *llm.ProviderFactory
	model        string
	nativeDim    int
	canonicalDim int
	logger       arbor.ILogger
}

// NewEmbedder creates an embedder. Fails fast when the native
// dimension exceeds the canonical one, since truncation would corrupt
// the space.
func NewEmbedder(factory *llm.ProviderFactory, config *common.EmbeddingConfig, logger arbor.ILogger) (interfaces.Embedder, error) {
	if config.NativeDimension > config.CanonicalDimension {
		return nil, fmt.Errorf("native dimension %d exceeds canonical dimension %d",
			config.NativeDimension, config.CanonicalDimension)
	}

	return &Embedder{
		factory:      factory,
		model:        config.Model,
		nativeDim:    config.NativeDimension,
		canonicalDim: config.CanonicalDimension,
		logger:       logger,
	}, nil
}

// CanonicalDimension returns the index dimension
func (e *Embedder) CanonicalDimension() int {
	return e.canonicalDim
}

// EmbedTexts embeds a batch of texts and pads to the canonical dimension
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	native, err := e.factory.EmbedTexts(ctx, e.model, e.nativeDim, texts)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(native))
	for i, vec := range native {
		padded, err := padToCanonical(vec, e.canonicalDim)
		if err != nil {
			return nil, err
		}
		vectors[i] = padded
	}

	return vectors, nil
}

// EmbedQuery embeds a single query through the same path as documents
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}
	return vectors[0], nil
}

// padToCanonical right-pads a native vector with zeros. A native
// vector longer than canonical is a configuration error.
func padToCanonical(vec []float32, canonical int) ([]float32, error) {
	if len(vec) > canonical {
		return nil, fmt.Errorf("native vector dimension %d exceeds canonical %d", len(vec), canonical)
	}
	if len(vec) == canonical {
		return vec, nil
	}

	padded := make([]float32, canonical)
	copy(padded, vec)
	return padded, nil
}
