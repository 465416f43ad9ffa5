package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
	"github.com/mandate-ai/mandate/internal/services/llm"
)

const answerSystemPrompt = `You answer questions about education policy and regulation using only
the provided document excerpts. Cite excerpts as [1], [2] and so on.
If the excerpts do not contain the answer, say so plainly. Do not
invent document contents.`

// Service answers questions over retrieved chunks. Every answer comes
// back in one of the closed formats with citations attached.
type Service struct {
	retriever interfaces.Retriever
	factory   *llm.ProviderFactory
	config    *common.ChatConfig
	logger    arbor.ILogger
}

// NewService creates the chat service
func NewService(retriever interfaces.Retriever, factory *llm.ProviderFactory, config *common.ChatConfig, logger arbor.ILogger) interfaces.ChatService {
	return &Service{
		retriever: retriever,
		factory:   factory,
		config:    config,
		logger:    logger,
	}
}

// Query retrieves context for the question and generates an answer in
// the format the intent calls for.
func (s *Service) Query(ctx context.Context, question, threadID string, userCtx *models.UserContext) (*models.QueryResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.NewError(models.KindInputInvalid, "question is empty")
	}

	started := time.Now()
	chunks, intent, err := s.retriever.Retrieve(ctx, question, userCtx)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("thread_id", threadID).
		Str("intent", intent.Intent).
		Int("chunks", len(chunks)).
		Dur("retrieval", time.Since(started)).
		Msg("Retrieval complete")

	if len(chunks) == 0 {
		return &models.QueryResponse{
			Answer:     "No accessible documents match this question.",
			Format:     models.FormatText,
			Citations:  []models.Citation{},
			Confidence: 0,
		}, nil
	}

	switch intent.Intent {
	case models.IntentCount:
		return s.countResponse(chunks), nil
	case models.IntentList:
		return s.listResponse(chunks), nil
	default:
		return s.generateAnswer(ctx, question, intent, chunks)
	}
}

// countResponse answers count queries from the retrieved set without a
// provider call.
func (s *Service) countResponse(chunks []models.ResultChunk) *models.QueryResponse {
	docs := uniqueDocs(chunks)
	return &models.QueryResponse{
		Answer:     fmt.Sprintf("%d matching documents found.", len(docs)),
		Format:     models.FormatCount,
		Data:       map[string]interface{}{"count": len(docs)},
		Citations:  citationsFor(chunks),
		Confidence: averageScore(chunks),
	}
}

// listResponse enumerates the matching documents
func (s *Service) listResponse(chunks []models.ResultChunk) *models.QueryResponse {
	docs := uniqueDocs(chunks)
	items := make([]map[string]string, 0, len(docs))
	var names []string
	for _, chunk := range chunks {
		if _, ok := docs[chunk.DocID]; !ok {
			continue
		}
		delete(docs, chunk.DocID)
		items = append(items, map[string]string{
			"doc_id":   chunk.DocID,
			"filename": chunk.Filename,
		})
		names = append(names, chunk.Filename)
	}

	return &models.QueryResponse{
		Answer:     "Matching documents: " + strings.Join(names, "; "),
		Format:     models.FormatList,
		Data:       items,
		Citations:  citationsFor(chunks),
		Confidence: averageScore(chunks),
	}
}

// generateAnswer runs the provider over the retrieved context
func (s *Service) generateAnswer(ctx context.Context, question string, intent *models.QueryIntent, chunks []models.ResultChunk) (*models.QueryResponse, error) {
	maxChunks := s.config.MaxContextChunks
	if maxChunks <= 0 {
		maxChunks = 8
	}
	if len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Question: %s\n\nExcerpts:\n", question)
	for i, chunk := range chunks {
		fmt.Fprintf(&prompt, "[%d] %s", i+1, chunk.Filename)
		if chunk.SectionHeader != "" {
			fmt.Fprintf(&prompt, " (%s)", chunk.SectionHeader)
		}
		fmt.Fprintf(&prompt, "\n%s\n\n", chunk.Text)
	}

	resp, err := s.factory.GenerateContent(ctx, &llm.ContentRequest{
		Messages:          []llm.Message{{Role: "user", Content: prompt.String()}},
		Model:             s.config.Model,
		SystemInstruction: answerSystemPrompt,
	})
	if err != nil {
		return nil, err
	}

	format := models.FormatText
	if intent.Intent == models.IntentComparison {
		format = models.FormatComparison
	}

	return &models.QueryResponse{
		Answer:     resp.Text,
		AnswerHTML: renderMarkdown(resp.Text),
		Format:     format,
		Citations:  citationsFor(chunks),
		Confidence: averageScore(chunks),
	}, nil
}

// renderMarkdown converts a markdown answer to HTML for clients that
// display rich text. Render failures fall back to the raw answer.
func renderMarkdown(text string) string {
	var buf strings.Builder
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return ""
	}
	return buf.String()
}

func uniqueDocs(chunks []models.ResultChunk) map[string]bool {
	docs := make(map[string]bool)
	for _, chunk := range chunks {
		docs[chunk.DocID] = true
	}
	return docs
}

func citationsFor(chunks []models.ResultChunk) []models.Citation {
	seen := make(map[string]bool)
	var citations []models.Citation
	for _, chunk := range chunks {
		if seen[chunk.DocID] {
			continue
		}
		seen[chunk.DocID] = true
		citations = append(citations, models.Citation{
			DocID:          chunk.DocID,
			Source:         chunk.Filename,
			ApprovalStatus: chunk.ApprovalStatus,
			Score:          chunk.Score,
		})
	}
	return citations
}

func averageScore(chunks []models.ResultChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	total := 0.0
	for _, chunk := range chunks {
		total += chunk.Score
	}
	return total / float64(len(chunks))
}
