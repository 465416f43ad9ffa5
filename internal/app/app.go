package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/handlers"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/services/blob"
	"github.com/mandate-ai/mandate/internal/services/chat"
	"github.com/mandate-ai/mandate/internal/services/chunker"
	"github.com/mandate-ai/mandate/internal/services/compare"
	"github.com/mandate-ai/mandate/internal/services/downloader"
	"github.com/mandate-ai/mandate/internal/services/embeddings"
	"github.com/mandate-ai/mandate/internal/services/events"
	"github.com/mandate-ai/mandate/internal/services/extdb"
	"github.com/mandate-ai/mandate/internal/services/extract"
	"github.com/mandate-ai/mandate/internal/services/llm"
	"github.com/mandate-ai/mandate/internal/services/metadata"
	"github.com/mandate-ai/mandate/internal/services/retrieval"
	"github.com/mandate-ai/mandate/internal/services/scheduler"
	"github.com/mandate-ai/mandate/internal/services/scraper"
	"github.com/mandate-ai/mandate/internal/services/vector"
	"github.com/mandate-ai/mandate/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Core services
	EventService   interfaces.EventService
	BlobStore      interfaces.BlobStore
	Downloader     interfaces.Downloader
	Extractor      *extract.Service
	LLMFactory     *llm.ProviderFactory
	MetaExtractor  interfaces.MetadataExtractor
	Chunker        interfaces.Chunker
	Embedder       interfaces.Embedder
	VectorStore    interfaces.VectorStore
	Coordinator    interfaces.EmbeddingCoordinator
	Retriever      interfaces.Retriever
	ChatService    interfaces.ChatService
	CompareService interfaces.CompareService
	Cipher         *extdb.Cipher
	Ingester       interfaces.ExternalIngester
	ScraperService interfaces.ScraperService
	Scheduler      *scheduler.Service

	jsRenderer *scraper.ChromeRenderer

	// HTTP handlers
	StatusHandler     *handlers.StatusHandler
	WebSocketHandler  *handlers.WebSocketHandler
	SourceHandler     *handlers.SourceHandler
	ScraperHandler    *handlers.ScraperHandler
	DocumentHandler   *handlers.DocumentHandler
	CompareHandler    *handlers.CompareHandler
	ChatHandler       *handlers.ChatHandler
	DataSourceHandler *handlers.DataSourceHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager
	logger.Debug().
		Str("storage", "badger").
		Bool("in_memory", cfg.Storage.InMemory).
		Msg("Storage layer initialized")

	if err := app.initServices(); err != nil {
		app.StorageManager.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if cfg.Scheduler.Enabled {
		if err := app.Scheduler.Start(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		logger.Info().Msg("Scheduler disabled by configuration")
	}

	logger.Info().Msg("Application initialization complete")
	return app, nil
}

func (a *App) initServices() error {
	cfg := a.Config

	a.EventService = events.NewService(a.Logger)

	blobs, err := blob.NewStore(&cfg.Blob, a.Logger)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}
	a.BlobStore = blobs

	down, err := downloader.NewService(&cfg.Downloader, a.Logger)
	if err != nil {
		return fmt.Errorf("downloader: %w", err)
	}
	a.Downloader = down

	var ocr interfaces.OCRClient
	if cfg.Extractor.OCREndpoint != "" {
		ocr = extract.NewHTTPOCRClient(cfg.Extractor.OCREndpoint, a.Logger)
	}
	extractor, err := extract.NewService(&cfg.Extractor, ocr, a.Logger)
	if err != nil {
		return fmt.Errorf("extractor: %w", err)
	}
	a.Extractor = extractor

	a.LLMFactory = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, a.Logger)
	a.MetaExtractor = metadata.NewExtractor(a.LLMFactory, &cfg.Metadata, a.Logger)
	a.Chunker = chunker.NewService(a.Logger)

	embedder, err := embeddings.NewEmbedder(a.LLMFactory, &cfg.Embedding, a.Logger)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	a.Embedder = embedder

	vectors, err := vector.NewQdrantStore(&cfg.Vector, cfg.Embedding.CanonicalDimension, a.Logger)
	if err != nil {
		return fmt.Errorf("vector store: %w", err)
	}
	a.VectorStore = vectors

	// A missing collection is created on first use as well, so an
	// unreachable Qdrant at boot is not fatal.
	ensureCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := vectors.EnsureCollection(ensureCtx); err != nil {
		a.Logger.Warn().Err(err).
			Str("collection", cfg.Vector.Collection).
			Msg("Vector collection not ready at startup")
	}
	cancel()

	a.Coordinator = embeddings.NewCoordinator(
		a.StorageManager.DocumentStorage(),
		a.StorageManager.MetadataStorage(),
		a.Chunker,
		a.Embedder,
		a.VectorStore,
		a.EventService,
		&cfg.Embedding,
		a.Logger,
	)
	a.Retriever = retrieval.NewService(
		a.StorageManager.DocumentStorage(),
		a.StorageManager.MetadataStorage(),
		a.Embedder,
		a.VectorStore,
		a.Coordinator,
		a.LLMFactory,
		&cfg.Retrieval,
		&cfg.Embedding,
		a.Logger,
	)
	a.ChatService = chat.NewService(a.Retriever, a.LLMFactory, &cfg.Chat, a.Logger)
	a.CompareService = compare.NewService(
		a.StorageManager.DocumentStorage(),
		a.StorageManager.MetadataStorage(),
		a.LLMFactory,
		&cfg.Chat,
		a.Logger,
	)

	if cfg.ExternalDB.EncryptionKey != "" {
		cipher, err := extdb.NewCipher(cfg.ExternalDB.EncryptionKey)
		if err != nil {
			return fmt.Errorf("credential cipher: %w", err)
		}
		a.Cipher = cipher

		ingester, err := extdb.NewIngester(
			a.StorageManager.ExternalSourceStorage(),
			a.StorageManager.SyncLogStorage(),
			a.StorageManager.DocumentStorage(),
			a.StorageManager.MetadataStorage(),
			a.BlobStore,
			cipher,
			&cfg.ExternalDB,
			a.Logger,
		)
		if err != nil {
			return fmt.Errorf("external ingester: %w", err)
		}
		a.Ingester = ingester
	} else {
		a.Logger.Warn().Msg("No encryption key configured, external database sources disabled")
	}

	renderTimeout, err := time.ParseDuration(cfg.Scraper.RenderTimeout)
	if err != nil {
		return fmt.Errorf("invalid render_timeout: %w", err)
	}
	a.jsRenderer = scraper.NewChromeRenderer(renderTimeout, a.Logger)

	scraperService, err := scraper.NewService(
		a.StorageManager,
		a.Downloader,
		a.Extractor,
		a.MetaExtractor,
		a.BlobStore,
		a.EventService,
		a.jsRenderer,
		&cfg.Scraper,
		a.Logger,
	)
	if err != nil {
		return fmt.Errorf("scraper: %w", err)
	}
	a.ScraperService = scraperService

	schedulerService, err := scheduler.NewService(
		a.StorageManager,
		a.ScraperService,
		a.Ingester,
		&cfg.ExternalDB,
		&cfg.Scraper,
		a.Logger,
	)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	a.Scheduler = schedulerService

	return nil
}

func (a *App) initHandlers() {
	a.StatusHandler = handlers.NewStatusHandler(
		a.StorageManager.DocumentStorage(),
		a.StorageManager.SourceStorage(),
		a.ScraperService,
		a.Logger,
	)
	a.WebSocketHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
	a.SourceHandler = handlers.NewSourceHandler(a.StorageManager.SourceStorage(), a.Scheduler, a.Logger)
	a.ScraperHandler = handlers.NewScraperHandler(
		a.ScraperService,
		a.StorageManager.DocumentStorage(),
		a.StorageManager.MetadataStorage(),
		a.Logger,
	)
	a.DocumentHandler = handlers.NewDocumentHandler(
		a.StorageManager.DocumentStorage(),
		a.StorageManager.MetadataStorage(),
		a.Coordinator,
		a.Logger,
	)
	a.CompareHandler = handlers.NewCompareHandler(a.CompareService, a.Logger)
	a.ChatHandler = handlers.NewChatHandler(a.ChatService, a.Logger)
	a.DataSourceHandler = handlers.NewDataSourceHandler(
		a.StorageManager.ExternalSourceStorage(),
		a.StorageManager.SyncLogStorage(),
		a.Ingester,
		a.Cipher,
		a.Logger,
	)
}

// Close shuts down all services in dependency order
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Scheduler stop failed")
		}
	}
	if a.ScraperService != nil {
		if err := a.ScraperService.Shutdown(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Scraper shutdown failed")
		}
	}
	if a.jsRenderer != nil {
		a.jsRenderer.Close()
	}
	if a.VectorStore != nil {
		if err := a.VectorStore.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Vector store close failed")
		}
	}
	if a.LLMFactory != nil {
		if err := a.LLMFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("LLM factory close failed")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}

	a.Logger.Info().Msg("Application stopped")
}
