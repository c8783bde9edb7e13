// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace_backend/internal/config"
	"marketplace_backend/internal/listing"
	"marketplace_backend/internal/listing/esutil"
	"marketplace_backend/internal/platform/database"
	platformElasticsearch "marketplace_backend/internal/platform/elasticsearch"
	"marketplace_backend/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "sync-listings" {
		syncListingsCmd := flag.NewFlagSet("sync-listings", flag.ExitOnError)
		batchSize := syncListingsCmd.Int("batch-size", 100, "Batch size for syncing listings")
		_ = syncListingsCmd.Parse(os.Args[2:])
		runListingSync(*batchSize)
		return
	}

	startServer()
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	if server.ESClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := platformElasticsearch.CreateListingsIndexIfNotExists(ctx, server.ESClient, server.AppLogger); err != nil {
			server.AppLogger.Error("Failed to create Elasticsearch listings index", zap.Error(err))
		}
		cancel()
	} else {
		server.AppLogger.Info("Elasticsearch client not initialized, skipping index creation.")
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}

// runListingSync re-indexes every listing into Elasticsearch.
func runListingSync(batchSize int) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for sync: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger for sync: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := database.NewGORM(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize database for sync", zap.Error(err))
	}
	defer database.CloseGORMDB(db, appLogger)

	esClient, err := platformElasticsearch.NewClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Elasticsearch client for sync", zap.Error(err))
	}
	if esClient == nil {
		appLogger.Fatal("ELASTICSEARCH_URL must be set to sync listings")
	}

	ctx := context.Background()
	if err := platformElasticsearch.CreateListingsIndexIfNotExists(ctx, esClient, appLogger); err != nil {
		appLogger.Fatal("Failed to create/verify Elasticsearch index before sync", zap.Error(err))
	}

	indexer, ok := esutil.NewIndexer(esClient, appLogger).(*esutil.Indexer)
	if !ok {
		appLogger.Fatal("Elasticsearch indexer unavailable")
	}

	appLogger.Info("Starting listing synchronization to Elasticsearch...", zap.Int("batchSize", batchSize))
	indexed, err := indexer.SyncAll(ctx, listing.NewGORMRepository(db), batchSize)
	if err != nil {
		appLogger.Fatal("Listing synchronization failed", zap.Int("indexed", indexed), zap.Error(err))
	}
	appLogger.Info("Listing synchronization completed successfully.", zap.Int("indexed", indexed))
}
