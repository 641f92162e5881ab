package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/handlers"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/services/assistant"
	"github.com/ternarybob/placefinder/internal/services/embeddings"
	"github.com/ternarybob/placefinder/internal/services/intent"
	"github.com/ternarybob/placefinder/internal/services/llm"
	"github.com/ternarybob/placefinder/internal/services/maps"
	"github.com/ternarybob/placefinder/internal/services/resolver"
	"github.com/ternarybob/placefinder/internal/services/retrieval"
	"github.com/ternarybob/placefinder/internal/services/scheduler"
	"github.com/ternarybob/placefinder/internal/services/vectorindex"
	"github.com/ternarybob/placefinder/internal/storage"
)

// Mode selects how the category indices are brought up
type Mode int

const (
	// ModeServe loads persisted indices and rebuilds from the catalog when any category is unusable
	ModeServe Mode = iota
	// ModeRebuild always rebuilds every category from the catalog
	ModeRebuild
	// ModeReadOnly loads persisted indices and never touches the catalog
	ModeReadOnly
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager
	CatalogSource  interfaces.CatalogSource

	// Retrieval stack
	EmbeddingService interfaces.EmbeddingService
	IndexStore       *vectorindex.Store
	RetrievalService interfaces.RetrievalService

	// Query understanding
	Classifier *intent.Classifier
	Resolver   *resolver.Resolver

	// External collaborators
	MapsClient *maps.Client
	LLMFactory *llm.ProviderFactory

	Assistant *assistant.Service
	Scheduler *scheduler.Service

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	SearchHandler *handlers.SearchHandler
	MapsHandler   *handlers.MapsHandler
	StatusHandler *handlers.StatusHandler
	KVHandler     *handlers.KVHandler
}

// New initializes the application with all dependencies. In ModeServe and ModeRebuild a
// failure to build from the catalog is returned and should abort startup.
func New(cfg *common.Config, logger arbor.ILogger, mode Mode) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(mode); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initIndices(mode); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize indices: %w", err)
	}

	if mode != ModeReadOnly && cfg.Index.ReloadSchedule != "" {
		app.Scheduler = scheduler.NewService(app.IndexStore, cfg.Index.ReloadTimeout, logger)
		if err := app.Scheduler.Start(cfg.Index.ReloadSchedule); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to start reload scheduler: %w", err)
		}
	}

	app.initHandlers()

	manifest := app.IndexStore.Manifest()
	logger.Info().
		Str("generation", manifest.Generation).
		Str("source", manifest.Source).
		Int("records", manifest.Total()).
		Str("embedding_model", manifest.EmbeddingModel).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices(mode Mode) error {
	ctx := context.Background()
	kv := a.StorageManager.KeyValueStorage()

	provider, err := a.newEmbeddingProvider(ctx, kv)
	if err != nil {
		return err
	}
	a.EmbeddingService = embeddings.NewService(provider, embeddings.RetryPolicy{
		MaxAttempts: a.Config.Embedding.MaxAttempts,
		Backoff:     a.Config.Embedding.Backoff,
	}, a.Logger)

	if mode != ModeReadOnly {
		source, err := storage.NewCatalogSource(a.Logger, a.Config)
		if err != nil {
			return fmt.Errorf("failed to create catalog source: %w", err)
		}
		a.CatalogSource = source
	}

	a.IndexStore = vectorindex.NewStore(
		a.Config.Index.Dir,
		a.Config.Index.Dimension,
		a.CatalogSource, // nil in ModeReadOnly
		a.EmbeddingService,
		a.StorageManager.IndexManifestStorage(),
		a.Logger,
	)
	a.RetrievalService = retrieval.NewService(a.EmbeddingService, a.IndexStore, a.Logger)

	var keywords *intent.KeywordTable
	if path := a.Config.Index.KeywordsFile; path != "" {
		keywords, err = intent.LoadKeywordTable(path)
		if err != nil {
			return err
		}
		a.Logger.Info().Str("path", path).Int("categories", len(keywords.Categories)).Msg("Keyword tiers loaded")
	}
	a.Classifier = intent.NewClassifier(keywords, a.Config.Search.MinCategoryScore, a.Logger)
	a.Resolver = resolver.NewResolver(a.Config.Search.MinResolveScore, a.Logger)

	naverID, err := common.ResolveAPIKey(ctx, kv, "naver_client_id", a.Config.Naver.ClientID)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Naver client ID not configured, geocoding and directions will fail")
	}
	naverSecret, err := common.ResolveAPIKey(ctx, kv, "naver_client_secret", a.Config.Naver.ClientSecret)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Naver client secret not configured, geocoding and directions will fail")
	}
	a.MapsClient = maps.NewClient(naverID, naverSecret, a.Logger,
		maps.WithBaseURL(a.Config.Naver.BaseURL),
		maps.WithTimeout(a.Config.Naver.RequestTimeout),
		maps.WithMinInterval(a.Config.Naver.RateLimit),
	)

	a.LLMFactory = llm.NewProviderFactory(&a.Config.Gemini, &a.Config.Claude, &a.Config.LLM, kv, a.Logger)

	a.Assistant = assistant.NewService(
		a.Classifier,
		a.Resolver,
		a.RetrievalService,
		a.MapsClient,
		a.LLMFactory,
		&a.Config.Search,
		&a.Config.Naver,
		a.Logger,
	)

	return nil
}

func (a *App) newEmbeddingProvider(ctx context.Context, kv interfaces.KeyValueStorage) (interfaces.EmbeddingProvider, error) {
	cfg := a.Config.Embedding

	switch cfg.Provider {
	case "gemini":
		apiKey, err := common.ResolveAPIKey(ctx, kv, "gemini_api_key", a.Config.Gemini.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve Gemini API key: %w", err)
		}
		provider, err := embeddings.NewGeminiProvider(ctx, apiKey, a.Config.Gemini.EmbedModel, a.Config.Index.Dimension)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini embedding provider: %w", err)
		}
		return provider, nil
	default:
		apiKey, err := common.ResolveAPIKey(ctx, kv, "openai_api_key", cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve OpenAI API key: %w", err)
		}
		provider, err := embeddings.NewOpenAIProvider(apiKey, cfg.Model, cfg.BaseURL, a.Config.Index.Dimension, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI embedding provider: %w", err)
		}
		return provider, nil
	}
}

// initIndices brings up the category indices according to mode
func (a *App) initIndices(mode Mode) error {
	ctx := context.Background()

	if mode == ModeReadOnly {
		_, err := a.IndexStore.LoadPersisted(ctx)
		return err
	}

	if err := a.CatalogSource.Ping(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Catalog source check failed")
	}

	_, err := a.IndexStore.Initialize(ctx, mode == ModeRebuild || a.Config.Index.ForceRebuild)
	return err
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.SearchHandler = handlers.NewSearchHandler(a.Assistant, a.Logger)
	a.MapsHandler = handlers.NewMapsHandler(a.MapsClient, a.Logger)
	a.KVHandler = handlers.NewKVHandler(a.StorageManager.KeyValueStorage(), a.Logger)

	statusOptions := handlers.StatusOptions{
		Manifests:     a.StorageManager.IndexManifestStorage(),
		ReloadTimeout: a.Config.Index.ReloadTimeout,
	}
	if a.Scheduler != nil {
		statusOptions.Schedule = a.Scheduler
	}
	a.StatusHandler = handlers.NewStatusHandler(a.IndexStore, statusOptions, a.Logger)
}

// Close closes all application resources
func (a *App) Close() error {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop reload scheduler")
		}
	}

	if a.LLMFactory != nil {
		if err := a.LLMFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		}
	}

	if a.IndexStore != nil {
		a.IndexStore.Close()
	}

	if a.CatalogSource != nil {
		if err := a.CatalogSource.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close catalog source")
		} else {
			a.Logger.Info().Msg("Catalog source closed")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
