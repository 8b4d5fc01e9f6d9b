package main

import (
	"context"

	"inboxai/internal/analytics"
	"inboxai/internal/calendar"
	"inboxai/internal/config"
	"inboxai/internal/database"
	"inboxai/internal/gauth"
	"inboxai/internal/ingest"
	"inboxai/internal/llm"
	"inboxai/internal/mailer"
	"inboxai/internal/rag"
	"inboxai/internal/server"
	"inboxai/internal/store"

	"github.com/jmoiron/sqlx"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	ctx := context.Background()
	deps := server.Deps{}

	// The LLM client drives both embeddings and generation; without it
	// the API still starts but answers 503 on retrieval endpoints.
	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("LLM client unavailable")
	} else {
		deps.LLM = llmClient
		logger.Info().
			Str("backend", llmClient.ProviderName()).
			Str("model", llmClient.Model()).
			Msg("LLM client ready")
	}

	// Vector store, only reachable with an embedder behind it
	if llmClient != nil {
		st, db, err := openStore(ctx, cfg, llmClient)
		if err != nil {
			logger.Warn().Err(err).Str("backend", cfg.StoreBackend).Msg("Vector store unavailable")
		} else {
			deps.Store = st
			deps.DB = db
			logger.Info().Str("backend", cfg.StoreBackend).Msg("Vector store ready")
		}
	}

	// Usage analytics rides on its own database connection
	if cfg.AnalyticsURL != "" {
		adb, err := database.New(cfg.AnalyticsURL)
		if err != nil {
			logger.Warn().Err(err).Msg("Analytics database connection failed")
		} else if svc, err := analytics.NewService(adb); err != nil {
			logger.Warn().Err(err).Msg("Analytics service failed to start")
		} else {
			deps.Analytics = svc
			if deps.DB == nil {
				deps.DB = adb
			}
			logger.Info().Msg("Analytics service ready")
		}
	}

	// Gmail source feeds ingestion when Google credentials are present
	var gmailSource *ingest.GmailSource
	if svc, err := gauth.NewGmailService(ctx, cfg.GoogleCredentialsFile); err != nil {
		logger.Warn().Err(err).Msg("Gmail source unavailable, file import only")
	} else {
		gmailSource = ingest.NewGmailSource(svc)
		logger.Info().Msg("Gmail source ready")
	}

	// Calendar backs the meeting listing and prep endpoints
	var cal rag.CalendarProvider
	if svc, err := gauth.NewCalendarService(ctx, cfg.GoogleCredentialsFile); err != nil {
		logger.Warn().Err(err).Msg("Calendar unavailable, meeting prep disabled")
	} else {
		cal = calendar.NewProvider(svc, 0)
		deps.CalendarAvailable = true
		logger.Info().Msg("Calendar ready")
	}

	if deps.Store != nil {
		deps.Ingestor = ingest.NewIngestor(deps.Store, gmailSource)
		deps.Engine = rag.NewEngine(deps.Store, llmClient, cal, cfg.SearchLimit, cfg.MaxSources)
	}

	if cfg.SendGridAPIKey != "" {
		deps.Mailer = mailer.New(cfg.SendGridAPIKey, cfg.ShareFromEmail)
		logger.Info().Str("from", cfg.ShareFromEmail).Msg("Mailer ready")
	}

	// Create and initialize server
	srv := server.New(cfg, deps, logger)
	srv.Initialize()

	// Start server
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed to start")
	}
}

// openStore connects the configured vector store backend. The sqlx
// handle comes back non-nil when the backend rides on PostgreSQL so
// the DB health endpoint has something to ping.
func openStore(ctx context.Context, cfg *config.Config, embedder store.Embedder) (store.Store, *sqlx.DB, error) {
	switch cfg.StoreBackend {
	case "pgvector":
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		st, err := store.NewPgvectorStore(ctx, db, embedder, cfg.EmbeddingDimensions)
		if err != nil {
			return nil, nil, err
		}
		return st, db, nil
	case "memory":
		return store.NewMemoryStore(embedder), nil, nil
	default:
		st, err := store.NewQdrantStore(ctx, store.QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.QdrantCollection,
			Dimensions: cfg.EmbeddingDimensions,
		}, embedder)
		return st, nil, err
	}
}
