// Package main runs the listing submission service:
// - HTTP API (submit, progress, tokenomics preview, listing lookup)
// - Submission pipeline (content store → token issuance → registry → anchors)
// - Prometheus metrics on /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realestate-tokenizer/internal/api"
	"realestate-tokenizer/internal/config"
	"realestate-tokenizer/internal/contentstore"
	"realestate-tokenizer/internal/issuer"
	"realestate-tokenizer/internal/ledger"
	"realestate-tokenizer/internal/observability"
	"realestate-tokenizer/internal/orchestrator"
	"realestate-tokenizer/internal/registry"
	"realestate-tokenizer/internal/storage"
	chstore "realestate-tokenizer/internal/storage/clickhouse"
	"realestate-tokenizer/internal/storage/memory"
	"realestate-tokenizer/internal/storage/migrations"
	pgstore "realestate-tokenizer/internal/storage/postgres"
)

// allStores holds the DB index and the event log.
type allStores struct {
	records storage.TokenRecordStore
	events  storage.SubmissionEventStore
}

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
	httpAddr := flag.String("http-addr", "", "HTTP listen address (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	verbose := flag.Bool("verbose", false, "Log every pipeline stage")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *useMemory {
		cfg.Storage.UseMemory = true
	}
	if *verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	ledgerClient, err := createLedger(cfg.Ledger)
	if err != nil {
		logger.Fatalf("Failed to create ledger client: %v", err)
	}

	content, err := createContentStore(cfg.Content)
	if err != nil {
		logger.Fatalf("Failed to create content store: %v", err)
	}

	pipelineLogger := log.New(os.Stdout, "[pipeline] ", log.LstdFlags|log.Lshortfile)
	reg := registry.New(registry.Options{
		Ledger:  ledgerClient,
		TopicID: cfg.Ledger.RegistryTopicID,
		Logger:  pipelineLogger,
		Verbose: cfg.Verbose,
	})
	orch := orchestrator.New(orchestrator.Options{
		ContentStore: content,
		Issuer: issuer.New(issuer.Options{
			Ledger:            ledgerClient,
			TreasuryAccountID: cfg.Ledger.TreasuryAccountID,
			Logger:            pipelineLogger,
			Verbose:           cfg.Verbose,
		}),
		Publisher:     reg,
		Anchor:        reg,
		Records:       stores.records,
		Events:        stores.events,
		AnchorTopicID: cfg.Ledger.AnchorTopicID,
		Logger:        pipelineLogger,
		Verbose:       cfg.Verbose,
	})

	apiServer := api.New(api.Options{
		Submitter:  orch,
		Records:    stores.records,
		Events:     stores.events,
		Registry:   registry.NewReader(ledgerClient, cfg.Ledger.RegistryTopicID),
		TrackerTTL: cfg.HTTP.TrackerTTL,
		Logger:     log.New(os.Stdout, "", log.LstdFlags|log.Lshortfile),
		Verbose:    cfg.Verbose,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 25*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	logger.Printf("Starting HTTP server on %s (content backend: %s, memory storage: %t)",
		cfg.HTTP.Addr, cfg.Content.Backend, cfg.Storage.UseMemory)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	// Accepted submissions run to completion before the stores close.
	logger.Println("Waiting for running submissions...")
	apiServer.Wait()
	close(done)

	logger.Println("Shutdown complete")
}

// createStores creates the TokenRecord index and the submission event log.
// Database stores run the embedded migrations first.
func createStores(ctx context.Context, cfg config.StorageConfig) (*allStores, func(), error) {
	if cfg.UseMemory {
		stores := &allStores{
			records: storage.InstrumentTokenRecords(memory.NewTokenRecordStore(), "memory", recordDBQuery),
			events:  storage.InstrumentSubmissionEvents(memory.NewSubmissionEventStore(), "memory", recordDBQuery),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, pgstore.WithMaxConns(cfg.PostgresMaxConns))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		records: storage.InstrumentTokenRecords(pgstore.NewTokenRecordStore(pool), "postgres", recordDBQuery),
		events:  storage.InstrumentSubmissionEvents(chstore.NewSubmissionEventStore(chConn), "clickhouse", recordDBQuery),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// createLedger creates the ledger client signing with the treasury key.
func createLedger(cfg config.LedgerConfig) (*ledger.HTTPClient, error) {
	key, err := ledger.ParsePrivateKey(cfg.TreasuryPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("treasury private key: %w", err)
	}

	opts := []ledger.ClientOption{
		ledger.WithOperator(cfg.TreasuryAccountID, key),
		ledger.WithObserver(func(method string, d time.Duration, err error) {
			observability.RecordLedgerCall(method, d.Seconds(), err)
		}),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, ledger.WithTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, ledger.WithMaxRetries(cfg.MaxRetries))
	}
	return ledger.NewHTTPClient(cfg.RPCEndpoint, opts...), nil
}

// createContentStore selects the content-addressed backend.
func createContentStore(cfg config.ContentConfig) (contentstore.Store, error) {
	var s contentstore.Store
	switch cfg.Backend {
	case config.BackendMemory:
		s = contentstore.NewMemoryStore()
	case config.BackendIPFS:
		s = contentstore.NewIPFSStore(cfg.IPFSAPIURL, cfg.Timeout)
	case config.BackendPinata:
		s = contentstore.NewPinataStore(cfg.PinataAPIURL, cfg.PinataJWT, contentstore.WithPinataTimeout(cfg.Timeout))
	default:
		return nil, fmt.Errorf("unknown content backend %q", cfg.Backend)
	}
	return contentstore.Instrument(s, cfg.Backend, recordUpload), nil
}

func recordDBQuery(database, operation string, d time.Duration, err error) {
	observability.RecordDBQuery(database, operation, d.Seconds(), err)
}

func recordUpload(backend, kind string, bytes int, d time.Duration, err error) {
	observability.RecordUpload(backend, kind, bytes, d.Seconds(), err)
}
