package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/handlers"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/planner"
	"github.com/ternarybob/venator/internal/services/events"
	"github.com/ternarybob/venator/internal/services/export"
	"github.com/ternarybob/venator/internal/services/llm"
	"github.com/ternarybob/venator/internal/services/mailer"
	"github.com/ternarybob/venator/internal/services/runs"
	"github.com/ternarybob/venator/internal/services/scheduler"
	"github.com/ternarybob/venator/internal/sources"
	"github.com/ternarybob/venator/internal/storage/badger"
	"github.com/ternarybob/venator/internal/workers"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB      *badger.BadgerDB
	Storage interfaces.RunStorage

	// Planner and classification
	LLMService interfaces.LLMService
	Classifier interfaces.Classifier
	Planner    interfaces.Planner

	// Web search grounding (nil without a Gemini API key; workers skip
	// query expansion when absent)
	searchService *llm.GeminiService

	// Run lifecycle
	EventService  interfaces.EventService
	RunService    *runs.Service
	ExportService interfaces.ExportService
	PDFExtractor  interfaces.PDFExtractor
	Mailer        *mailer.Service
	Scheduler     *scheduler.Service

	// HTTP handlers
	APIHandler         *handlers.APIHandler
	RunHandler         *handlers.RunHandler
	LeadsHandler       *handlers.LeadsHandler
	StatusHandler      *handlers.StatusHandler
	EventStreamHandler *handlers.EventStreamHandler
	WSHandler          *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	logger.Info().
		Str("llm_provider", string(cfg.LLM.DefaultProvider)).
		Str("community_provider", cfg.Sources.CommunityProvider).
		Bool("digest_enabled", app.Mailer.Enabled()).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to open badger database: %w", err)
	}
	a.DB = db
	a.Storage = badger.NewRunStorage(db, a.Config.Storage.EventAuditLimit, a.Logger)

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Int("event_audit_limit", a.Config.Storage.EventAuditLimit).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)

	// LLM provider for planning and lead classification
	llmService, classifier, err := llm.NewLLMService(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize llm service: %w", err)
	}
	a.LLMService = llmService
	a.Classifier = classifier
	a.Planner = planner.NewService(llmService, a.Logger)

	// Grounded web search runs on Gemini regardless of the planner
	// provider; without a key the workers skip query expansion.
	var webSearch interfaces.WebSearcher
	if a.Config.Gemini.APIKey != "" {
		gemini, err := llm.NewGeminiService(&a.Config.Gemini, a.Logger)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Web search unavailable, continuing without it")
		} else {
			a.searchService = gemini
			webSearch = llm.NewWebSearch(gemini, a.Logger)
		}
	} else {
		a.Logger.Debug().Msg("No Gemini API key, web search disabled")
	}

	// Source adapters share one page fetcher so throttling applies
	// across workers.
	var fetcher interfaces.PageFetcher
	if a.Config.Sources.EnableJavaScript {
		fetcher = sources.NewBrowser(&a.Config.Sources, a.Logger)
	} else {
		fetcher = sources.NewFetcher(&a.Config.Sources, a.Logger)
	}

	var community interfaces.CommunitySource
	switch a.Config.Sources.CommunityProvider {
	case "github":
		community = sources.NewGitHubSource(&a.Config.Sources.GitHub, a.Logger)
	default:
		community = sources.NewRedditSource(a.Config.Sources.CommunityBaseURL, fetcher, a.Logger)
	}

	extractor := export.NewExtractor(a.Logger)
	a.PDFExtractor = extractor
	extractPDF := func(data []byte) (string, error) {
		return extractor.ExtractText(context.Background(), data)
	}

	news := sources.NewNewsScraper(a.Config.Sources.NewsBaseURL, fetcher, extractPDF, a.Logger)
	engagement := sources.NewEngagementScraper(fetcher, a.Logger)

	// Each run gets its own provider so worker progress lines land on
	// that run's event stream.
	factory := func(onUpdate workers.UpdateFunc) interfaces.WorkerProvider {
		return workers.NewProvider(a.Config, community, news, engagement, webSearch, a.Classifier, a.Logger, onUpdate)
	}

	a.RunService = runs.NewService(a.Config, a.Planner, factory, a.EventService, a.Storage, a.Logger)

	a.ExportService = export.NewService(a.Logger)
	a.Mailer = mailer.NewService(&a.Config.Digest, a.ExportService, a.Logger)

	a.Scheduler = scheduler.NewService(a.Config.Schedules, a.RunService, a.Mailer, a.Logger)
	if err := a.Scheduler.Start(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to start scheduler")
	} else if count := a.Scheduler.EntryCount(); count > 0 {
		a.Logger.Info().Int("schedules", count).Msg("Scheduler started")
	}

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.RunHandler = handlers.NewRunHandler(a.RunService, a.ExportService, a.Logger)
	a.LeadsHandler = handlers.NewLeadsHandler(a.Storage, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.Storage, a.WSHandler, a.Logger)
	a.EventStreamHandler = handlers.NewEventStreamHandler(a.EventService, a.RunService, a.Logger)
	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	// Stop scheduled runs first so nothing new starts during shutdown
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	// Cancel active runs and wait for them to unwind
	if a.RunService != nil {
		if err := a.RunService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close run service")
		}
	}

	if a.WSHandler != nil {
		a.WSHandler.CloseAll()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.searchService != nil {
		if err := a.searchService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close web search service")
		}
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
