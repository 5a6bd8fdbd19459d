// Package main submits one listing described in a YAML draft file and
// prints pipeline progress until the submission is terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realestate-tokenizer/internal/config"
	"realestate-tokenizer/internal/contentstore"
	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/issuer"
	"realestate-tokenizer/internal/ledger"
	"realestate-tokenizer/internal/orchestrator"
	"realestate-tokenizer/internal/progress"
	"realestate-tokenizer/internal/registry"
	"realestate-tokenizer/internal/storage"
	chstore "realestate-tokenizer/internal/storage/clickhouse"
	"realestate-tokenizer/internal/storage/memory"
	"realestate-tokenizer/internal/storage/migrations"
	pgstore "realestate-tokenizer/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	draftPath := flag.String("draft", "", "Path to YAML listing draft (required)")
	owner := flag.String("owner", os.Getenv("OWNER_ACCOUNT_ID"), "Connected owner account ID")
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	verbose := flag.Bool("verbose", false, "Log every pipeline stage")
	confirm := flag.Int("confirm", 5, "Registry read-back attempts after publishing (0 to skip)")
	flag.Parse()

	if *draftPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --draft is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *useMemory {
		cfg.Storage.UseMemory = true
	}
	if *verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	draft, err := loadDraft(*draftPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client, err := newLedgerClient(cfg.Ledger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, events, cleanup, err := openStores(ctx, cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to databases: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	orch := buildOrchestrator(cfg, client, records, events)

	printer := orchestrator.ObserverFunc(func(s orchestrator.Snapshot) {
		fmt.Println(progress.Render(progress.Build(s)))
	})

	res, err := orch.Run(ctx, &domain.Submission{Draft: draft, Owner: *owner}, printer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Submission failed: %v\n", err)
		cleanup()
		os.Exit(1)
	}

	fmt.Printf("Token:    %s\n", res.TokenID)
	fmt.Printf("Metadata: %s\n", res.MetadataCID)
	fmt.Printf("Anchored: %d documents\n", len(res.Anchors))

	if *confirm > 0 {
		reader := registry.NewReader(client, cfg.Ledger.RegistryTopicID)
		entry, err := reader.WaitFor(ctx, res.TokenID, *confirm, 2*time.Second)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Registry read-back: %v\n", err)
			return
		}
		fmt.Printf("Registry: sequence %d at %s\n", entry.SequenceNumber, entry.ConsensusTimestamp.Format(time.RFC3339))
	}
}

func openStores(ctx context.Context, cfg config.StorageConfig) (storage.TokenRecordStore, storage.SubmissionEventStore, func(), error) {
	if cfg.UseMemory {
		return memory.NewTokenRecordStore(), memory.NewSubmissionEventStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, pgstore.WithMaxConns(cfg.PostgresMaxConns))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return pgstore.NewTokenRecordStore(pool), chstore.NewSubmissionEventStore(chConn), cleanup, nil
}

func newLedgerClient(cfg config.LedgerConfig) (*ledger.HTTPClient, error) {
	key, err := ledger.ParsePrivateKey(cfg.TreasuryPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("treasury private key: %w", err)
	}
	opts := []ledger.ClientOption{ledger.WithOperator(cfg.TreasuryAccountID, key)}
	if cfg.Timeout > 0 {
		opts = append(opts, ledger.WithTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, ledger.WithMaxRetries(cfg.MaxRetries))
	}
	return ledger.NewHTTPClient(cfg.RPCEndpoint, opts...), nil
}

func buildOrchestrator(cfg *config.Config, client ledger.Client, records storage.TokenRecordStore, events storage.SubmissionEventStore) *orchestrator.Orchestrator {
	var content contentstore.Store
	switch cfg.Content.Backend {
	case config.BackendIPFS:
		content = contentstore.NewIPFSStore(cfg.Content.IPFSAPIURL, cfg.Content.Timeout)
	case config.BackendPinata:
		content = contentstore.NewPinataStore(cfg.Content.PinataAPIURL, cfg.Content.PinataJWT,
			contentstore.WithPinataTimeout(cfg.Content.Timeout))
	default:
		content = contentstore.NewMemoryStore()
	}

	logger := log.New(os.Stderr, "[submit] ", log.LstdFlags)
	reg := registry.New(registry.Options{Ledger: client, TopicID: cfg.Ledger.RegistryTopicID, Logger: logger, Verbose: cfg.Verbose})

	return orchestrator.New(orchestrator.Options{
		ContentStore: content,
		Issuer: issuer.New(issuer.Options{
			Ledger:            client,
			TreasuryAccountID: cfg.Ledger.TreasuryAccountID,
			Logger:            logger,
			Verbose:           cfg.Verbose,
		}),
		Publisher:     reg,
		Anchor:        reg,
		Records:       records,
		Events:        events,
		AnchorTopicID: cfg.Ledger.AnchorTopicID,
		Clock:         func() time.Time { return time.Now().UTC() },
		Logger:        logger,
		Verbose:       cfg.Verbose,
	})
}
