// Harrier - Wallet fraud scoring that deploys in 60 seconds.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/opensource-finance/harrier/internal/api"
	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/etherscan"
	"github.com/opensource-finance/harrier/internal/governance"
	"github.com/opensource-finance/harrier/internal/model"
	"github.com/opensource-finance/harrier/internal/policy"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/scoring"
	"github.com/opensource-finance/harrier/internal/walletdata"
	"github.com/opensource-finance/harrier/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load .env before anything reads the environment
	_ = godotenv.Load()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	// Initialize structured logger
	slog.SetDefault(newLogger(cfg.Logging))

	// Log startup
	slog.Info("starting harrier",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"chain_provider", cfg.Chain.BaseURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize chain provider and wallet data service
	chainClient := etherscan.NewClient(cfg.Chain, slog.Default())
	walletSvc := walletdata.NewService(cacheImpl, repo, chainClient, cfg.Chain.SnapshotTTL(), slog.Default())
	slog.Info("wallet data service initialized", "snapshot_ttl", cfg.Chain.SnapshotTTL())

	// Initialize Detector (degrades to placeholder predictions when the
	// model artifact is missing)
	detector, err := model.Load(cfg.Model, slog.Default())
	if err != nil {
		slog.Error("failed to load model artifacts", "error", err)
		os.Exit(1)
	}
	slog.Info("detector initialized", "model_loaded", detector.Loaded())

	// Initialize Policy Engine (invalid expressions fail startup)
	policyEngine, err := policy.NewEngine(cfg.Policy)
	if err != nil {
		slog.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}
	slog.Info("policy engine initialized", "rules_count", policyEngine.RulesCount())

	// Initialize Scorer
	scorer := scoring.New(walletSvc, detector, policyEngine, busImpl, slog.Default(), Version)

	// Initialize snapshot pruning worker
	var pruneWorker *worker.Worker
	if pruner, ok := repo.(worker.SnapshotPruner); ok {
		pruneWorker = worker.NewWorker(pruner, slog.Default())
		pruneWorker.Start(worker.Config{
			Interval:       time.Hour,
			MaxSnapshotAge: 24 * time.Hour,
		})
	}

	// Initialize Governance Forwarder
	var forwarder *governance.Forwarder
	if cfg.Governance.Enabled {
		forwarder = governance.NewForwarder(cfg.Governance, busImpl, slog.Default())
		if err := forwarder.Start(ctx); err != nil {
			slog.Error("failed to start governance forwarder", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, scorer, detector, repo, cacheImpl, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("harrier is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version, detector.Loaded())

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if pruneWorker != nil {
		pruneWorker.Stop()
	}

	// Stop the forwarder first so in-flight alerts drain
	if forwarder != nil {
		if err := forwarder.Stop(); err != nil {
			slog.Error("failed to stop governance forwarder", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("harrier shutdown complete")
}

// loadConfig resolves configuration from HARRIER_CONFIG (YAML file) or
// falls back to tier defaults selected by HARRIER_TIER.
func loadConfig() (*domain.Config, error) {
	if path := os.Getenv("HARRIER_CONFIG"); path != "" {
		return domain.LoadConfig(path)
	}

	cfg := domain.DefaultConfig()
	if os.Getenv("HARRIER_TIER") == "pro" {
		cfg = domain.ProConfig()
	}

	// Common env overrides for containerized deployments
	if key := os.Getenv("ETHERSCAN_API_KEY"); key != "" {
		cfg.Chain.APIKey = key
	}
	if url := os.Getenv("ETHERSCAN_BASE_URL"); url != "" {
		cfg.Chain.BaseURL = url
	}
	if endpoint := os.Getenv("HARRIER_GOVERNANCE_ENDPOINT"); endpoint != "" {
		cfg.Governance.Enabled = true
		cfg.Governance.Endpoint = endpoint
	}
	return cfg, nil
}

func newLogger(cfg domain.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if os.Getenv("HARRIER_DEBUG") == "true" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func printBanner(cfg *domain.Config, version string, modelLoaded bool) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 HARRIER                  ║")
	fmt.Println("  ║       Wallet Fraud Scoring Engine         ║")
	fmt.Println("  ║      Eyes on every wallet.                ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Model:    loaded=%v\n", modelLoaded)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /analyze           - Score a wallet address")
	fmt.Println("    POST /analyze/detailed  - Score with explanation and stats")
	fmt.Println("    GET  /health            - Health check")
	fmt.Println("    GET  /ready             - Readiness check")
	fmt.Println("    GET  /metrics           - Prometheus metrics")
	fmt.Println()
}
