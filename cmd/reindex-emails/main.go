package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"inboxai/internal/config"
	"inboxai/internal/database"
	"inboxai/internal/llm"
	"inboxai/internal/store"
)

// reindex-emails re-embeds the whole collection with the currently
// configured embedding model. Run it after changing EMBEDDING_MODEL or
// EMBEDDING_DIMENSIONS; stored vectors from the old model are useless
// for queries embedded with the new one.
func main() {
	limit := flag.Int("limit", 10000, "Maximum number of records to re-embed")
	batchSize := flag.Int("batch", 100, "Records embedded per batch")
	flag.Parse()

	fmt.Println("=== EMBEDDING REINDEX JOB ===")
	fmt.Printf("Starting at: %s\n", time.Now().Format(time.RFC3339))

	// Load configuration
	cfg := config.Load()
	ctx := context.Background()

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		log.Fatal("Failed to create LLM client:", err)
	}
	fmt.Printf("Embedding model: %s\n", llmClient.EmbeddingModelName())

	st, err := openStore(ctx, cfg, llmClient)
	if err != nil {
		log.Fatal("Failed to connect vector store:", err)
	}

	records, err := st.FetchAll(ctx, *limit)
	if err != nil {
		log.Fatal("Failed to fetch records:", err)
	}
	if len(records) == 0 {
		fmt.Println("No records stored, nothing to reindex")
		return
	}
	fmt.Printf("Re-embedding %d records...\n", len(records))

	// Drop the stored vectors so Add embeds everything fresh.
	for i := range records {
		records[i].Embedding = nil
	}

	// The collection is wiped before re-adding; an interrupted run must
	// be repeated, or the missing mail re-imported from its archives.
	if err := st.Clear(ctx); err != nil {
		log.Fatal("Failed to clear collection:", err)
	}

	start := time.Now()
	stored := 0
	for begin := 0; begin < len(records); begin += *batchSize {
		end := begin + *batchSize
		if end > len(records) {
			end = len(records)
		}

		added, err := st.Add(ctx, records[begin:end])
		stored += added
		if err != nil {
			log.Fatalf("Failed at batch %d-%d after storing %d records: %v", begin+1, end, stored, err)
		}

		fmt.Printf("Re-embedded batch %d-%d\n", begin+1, end)
	}

	fmt.Printf("Successfully reindexed %d records in %v\n", stored, time.Since(start))
	fmt.Printf("Completed at: %s\n", time.Now().Format(time.RFC3339))
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
