package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandate-ai/mandate/internal/common"
)

func TestNewEmbedder_FailsFastOnOversizedNative(t *testing.T) {
	cfg := &common.EmbeddingConfig{
		CanonicalDimension: 1024,
		NativeDimension:    1536,
	}
	_, err := NewEmbedder(nil, cfg, common.GetLogger())
	require.Error(t, err)
}

func TestPadToCanonical(t *testing.T) {
	padded, err := padToCanonical([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 0, 0}, padded)

	same, err := padToCanonical([]float32{1, 2, 3}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, same)

	_, err = padToCanonical([]float32{1, 2, 3, 4}, 3)
	require.Error(t, err)
}

func TestCanonicalDimension(t *testing.T) {
	cfg := &common.EmbeddingConfig{
		CanonicalDimension: 1024,
		NativeDimension:    768,
		Model:              "gemini-embedding-001",
	}
	e, err := NewEmbedder(nil, cfg, common.GetLogger())
	require.NoError(t, err)
	assert.Equal(t, 1024, e.CanonicalDimension())
}
