package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"inboxai/internal/config"
	"inboxai/internal/database"
	"inboxai/internal/gauth"
	"inboxai/internal/ingest"
	"inboxai/internal/llm"
	"inboxai/internal/models"
	"inboxai/internal/store"
)

func main() {
	// Parse command line flags
	emlPath := flag.String("eml", "", "Path to EML file or directory containing EML files")
	mboxPath := flag.String("mbox", "", "Path to MBOX file")
	fromGmail := flag.Bool("gmail", false, "Pull messages from the configured Gmail account")
	daysBack := flag.Int("days", 0, "Gmail lookback window in days (default from config)")
	flag.Parse()

	if *emlPath == "" && *mboxPath == "" && !*fromGmail {
		fmt.Println("Usage:")
		fmt.Println("  Import EML files:  import-emails -eml /path/to/file.eml")
		fmt.Println("  Import directory:  import-emails -eml /path/to/directory")
		fmt.Println("  Import MBOX:       import-emails -mbox /path/to/file.mbox")
		fmt.Println("  Import Gmail:      import-emails -gmail -days 90")
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()
	ctx := context.Background()

	// The LLM client embeds every document on the way in
	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	// Connect the vector store
	st, err := openStore(ctx, cfg, llmClient)
	if err != nil {
		log.Fatalf("Failed to connect vector store (%s): %v", cfg.StoreBackend, err)
	}

	// Gmail source only when requested
	var gmailSource *ingest.GmailSource
	if *fromGmail {
		svc, err := gauth.NewGmailService(ctx, cfg.GoogleCredentialsFile)
		if err != nil {
			log.Fatalf("Failed to create Gmail client: %v", err)
		}
		gmailSource = ingest.NewGmailSource(svc)
	}

	ingestor := ingest.NewIngestor(st, gmailSource)

	req := models.IngestRequest{
		IncludeGmail: *fromGmail,
		DaysBack:     *daysBack,
	}
	if req.DaysBack <= 0 {
		req.DaysBack = cfg.EmailLookbackDays
	}
	if *emlPath != "" {
		req.Paths = append(req.Paths, *emlPath)
	}
	if *mboxPath != "" {
		req.Paths = append(req.Paths, *mboxPath)
	}

	result, err := ingestor.Run(ctx, req)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Println("\n✓ Email import complete!")
	fmt.Printf("  - From files: %d emails\n", result.FileEmails)
	if *fromGmail {
		fmt.Printf("  - From Gmail: %d emails\n", result.GmailEmails)
	}
	fmt.Printf("  - Total stored: %d emails\n", result.TotalStored)
}

// openStore connects the configured vector store backend.
func openStore(ctx context.Context, cfg *config.Config, embedder store.Embedder) (store.Store, error) {
	switch cfg.StoreBackend {
	case "pgvector":
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store.NewPgvectorStore(ctx, db, embedder, cfg.EmbeddingDimensions)
	case "memory":
		return store.NewMemoryStore(embedder), nil
	default:
		return store.NewQdrantStore(ctx, store.QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.QdrantCollection,
			Dimensions: cfg.EmbeddingDimensions,
		}, embedder)
	}
}
