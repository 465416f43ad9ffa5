package embeddings

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
	"github.com/mandate-ai/mandate/internal/services/workers"
)

// embedBatchSize chunks per provider call
const embedBatchSize = 16

// Coordinator drives the chunk-embed-upsert pipeline. Chunks embed in
// parallel through a bounded pool; vector store writes are serialized
// behind a mutex.
type Coordinator struct {
	documents  interfaces.DocumentStorage
	metadata   interfaces.MetadataStorage
	chunker    interfaces.Chunker
	embedder   interfaces.Embedder
	vectors    interfaces.VectorStore
	events     interfaces.EventService
	maxWorkers int
	upsertMu   sync.Mutex
	logger     arbor.ILogger
}

// NewCoordinator creates an embedding coordinator
func NewCoordinator(
	documents interfaces.DocumentStorage,
	metadata interfaces.MetadataStorage,
	chunker interfaces.Chunker,
	embedder interfaces.Embedder,
	vectors interfaces.VectorStore,
	events interfaces.EventService,
	config *common.EmbeddingConfig,
	logger arbor.ILogger,
) interfaces.EmbeddingCoordinator {
	maxWorkers := config.Workers
	if maxWorkers <= 0 {
		maxWorkers = 5
	}

	return &Coordinator{
		documents:  documents,
		metadata:   metadata,
		chunker:    chunker,
		embedder:   embedder,
		vectors:    vectors,
		events:     events,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// EmbedDocument chunks, embeds and indexes a single document. Status
// moves not_embedded -> embedding -> embedded, or failed on error.
func (c *Coordinator) EmbedDocument(ctx context.Context, docID string) error {
	doc, err := c.documents.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if doc.ExtractedText == "" {
		return models.NewError(models.KindExtractionFailed,
			fmt.Sprintf("document %s has no extracted text", docID))
	}

	meta, err := c.metadata.GetMetadata(ctx, docID)
	if err != nil && !models.IsKind(err, models.KindNotFound) {
		return err
	}

	if err := c.metadata.SetEmbeddingStatus(ctx, docID, models.EmbeddingInProgress); err != nil {
		return err
	}
	c.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventEmbedStarted,
		Payload: map[string]interface{}{"doc_id": docID},
	})

	if err := c.embed(ctx, doc, meta); err != nil {
		if statusErr := c.metadata.SetEmbeddingStatus(ctx, docID, models.EmbeddingFailed); statusErr != nil {
			c.logger.Error().Err(statusErr).Str("doc_id", docID).Msg("Failed to record embedding failure")
		}
		return models.WrapError(models.KindIndexFailure,
			fmt.Sprintf("embedding failed for %s", docID), err)
	}

	if err := c.metadata.SetEmbeddingStatus(ctx, docID, models.EmbeddingEmbedded); err != nil {
		return err
	}
	c.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventEmbedDone,
		Payload: map[string]interface{}{"doc_id": docID},
	})

	return nil
}

func (c *Coordinator) embed(ctx context.Context, doc *models.DocumentRecord, meta *models.DocumentMetadata) error {
	chunks := c.chunker.Chunk(doc.ID, doc.ExtractedText)
	if len(chunks) == 0 {
		return fmt.Errorf("chunker produced no chunks")
	}

	// Re-embedding replaces the document's existing points
	if err := c.vectors.DeleteByDoc(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to clear existing vectors: %w", err)
	}

	docType := ""
	if meta != nil {
		docType = meta.DocumentType
	}
	year := 0
	if doc.VersionDate != nil {
		year = doc.VersionDate.Year()
	}

	pool := workers.NewPool(c.maxWorkers, c.logger)
	pool.Start()

	for batchStart := 0; batchStart < len(chunks); batchStart += embedBatchSize {
		batchEnd := batchStart + embedBatchSize
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}
		batch := chunks[batchStart:batchEnd]

		if err := pool.Submit(func(jobCtx context.Context) error {
			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Text
			}

			vectors, err := c.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				return err
			}

			points := make([]interfaces.VectorPoint, len(batch))
			for i, chunk := range batch {
				points[i] = interfaces.VectorPoint{
					DocID:          doc.ID,
					ChunkIndex:     chunk.ChunkIndex,
					Vector:         vectors[i],
					Text:           chunk.Text,
					SectionHeader:  chunk.SectionHeader,
					Filename:       doc.CanonicalFilename,
					InstitutionID:  doc.InstitutionID,
					UploaderID:     doc.UploaderID,
					Visibility:     doc.Visibility,
					ApprovalStatus: doc.ApprovalStatus,
					Year:           year,
					DocumentType:   docType,
				}
			}

			c.upsertMu.Lock()
			defer c.upsertMu.Unlock()
			return c.vectors.Upsert(ctx, points)
		}); err != nil {
			break
		}
	}

	pool.Wait()
	if errs := pool.Errors(); len(errs) > 0 {
		return errs[0]
	}

	c.logger.Info().
		Str("doc_id", doc.ID).
		Int("chunks", len(chunks)).
		Msg("Document embedded")

	return nil
}

// EmbedDocuments embeds a batch of documents sequentially. Failures
// are logged and skipped so one bad document does not block the batch.
func (c *Coordinator) EmbedDocuments(ctx context.Context, docIDs []string) error {
	var failed int
	for _, docID := range docIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.EmbedDocument(ctx, docID); err != nil {
			failed++
			c.logger.Error().Err(err).Str("doc_id", docID).Msg("Batch embedding skipped document")
		}
	}

	if failed == len(docIDs) && failed > 0 {
		return models.NewError(models.KindIndexFailure, "all documents in batch failed to embed")
	}
	return nil
}

// EnsureEmbedded embeds the document only if it is not already
// embedded. Used by the lazy trigger on the retrieval path.
func (c *Coordinator) EnsureEmbedded(ctx context.Context, docID string) error {
	meta, err := c.metadata.GetMetadata(ctx, docID)
	if err != nil {
		return err
	}
	if meta.EmbeddingStatus == models.EmbeddingEmbedded {
		return nil
	}
	return c.EmbedDocument(ctx, docID)
}
