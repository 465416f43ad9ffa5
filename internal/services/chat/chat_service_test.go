package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/models"
)

type stubRetriever struct {
	chunks []models.ResultChunk
	intent *models.QueryIntent
	err    error
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, userCtx *models.UserContext) ([]models.ResultChunk, *models.QueryIntent, error) {
	return s.chunks, s.intent, s.err
}

func newChatService(r *stubRetriever) *Service {
	cfg := common.NewDefaultConfig()
	return &Service{
		retriever: r,
		config:    &cfg.Chat,
		logger:    common.GetLogger(),
	}
}

func sampleChunks() []models.ResultChunk {
	return []models.ResultChunk{
		{DocID: "doc_a", ChunkIndex: 0, Filename: "nep_2020.pdf", Text: "Credits are transferable.", ApprovalStatus: models.ApprovalApproved, Score: 0.9},
		{DocID: "doc_a", ChunkIndex: 3, Filename: "nep_2020.pdf", Text: "More detail.", ApprovalStatus: models.ApprovalApproved, Score: 0.7},
		{DocID: "doc_b", ChunkIndex: 1, Filename: "ugc_circular.pdf", Text: "Fees are capped.", ApprovalStatus: models.ApprovalApproved, Score: 0.5},
	}
}

func TestQuery_EmptyQuestion(t *testing.T) {
	svc := newChatService(&stubRetriever{})
	_, err := svc.Query(context.Background(), "  ", "t1", nil)
	require.Error(t, err)
	assert.Equal(t, models.KindInputInvalid, models.KindOf(err))
}

func TestQuery_NoResults(t *testing.T) {
	svc := newChatService(&stubRetriever{intent: &models.QueryIntent{Intent: models.IntentQA}})
	resp, err := svc.Query(context.Background(), "anything?", "t1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.FormatText, resp.Format)
	assert.Zero(t, resp.Confidence)
	assert.Empty(t, resp.Citations)
}

func TestQuery_CountFormat(t *testing.T) {
	svc := newChatService(&stubRetriever{
		chunks: sampleChunks(),
		intent: &models.QueryIntent{Intent: models.IntentCount},
	})

	resp, err := svc.Query(context.Background(), "how many circulars?", "t1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.FormatCount, resp.Format)
	assert.Equal(t, map[string]interface{}{"count": 2}, resp.Data)
	// One citation per document, not per chunk
	assert.Len(t, resp.Citations, 2)
}

func TestQuery_ListFormat(t *testing.T) {
	svc := newChatService(&stubRetriever{
		chunks: sampleChunks(),
		intent: &models.QueryIntent{Intent: models.IntentList},
	})

	resp, err := svc.Query(context.Background(), "list all circulars", "t1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.FormatList, resp.Format)
	items, ok := resp.Data.([]map[string]string)
	require.True(t, ok)
	assert.Len(t, items, 2)
	assert.Contains(t, resp.Answer, "nep_2020.pdf")
}

func TestAverageScore(t *testing.T) {
	assert.InDelta(t, 0.7, averageScore(sampleChunks()), 0.001)
	assert.Zero(t, averageScore(nil))
}
