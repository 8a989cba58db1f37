// Package main runs the authenticated transfer relay:
// - HTTP surface: credential-gated API and pages
// - Transfer orchestration against a Solana RPC node
// - Optional Postgres journal and Prometheus metrics
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-usdc-relay/internal/auth"
	"solana-usdc-relay/internal/config"
	"solana-usdc-relay/internal/journal"
	jpostgres "solana-usdc-relay/internal/journal/postgres"
	"solana-usdc-relay/internal/ledger"
	"solana-usdc-relay/internal/observability"
	"solana-usdc-relay/internal/relay"
	"solana-usdc-relay/internal/server"
	"solana-usdc-relay/internal/solana"
)

func main() {
	cfg := config.FromEnv()

	// Flags override env
	flag.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "Shared-secret API key for gated routes")
	flag.StringVar(&cfg.RPCEndpoint, "rpc-endpoint", cfg.RPCEndpoint, "Solana RPC HTTP endpoint")
	flag.StringVar(&cfg.WSEndpoint, "ws-endpoint", cfg.WSEndpoint, "Solana WebSocket endpoint (optional, confirmation waits)")
	flag.StringVar(&cfg.Mint, "mint", cfg.Mint, "Token mint address")
	flag.IntVar(&cfg.Decimals, "decimals", cfg.Decimals, "Token base-unit decimals")
	flag.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "HTTP listen address")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address")
	flag.StringVar(&cfg.JournalDSN, "journal-dsn", cfg.JournalDSN, "PostgreSQL DSN for the transfer journal (optional)")
	flag.DurationVar(&cfg.ConfirmTimeout, "confirm-timeout", cfg.ConfirmTimeout, "Transaction confirmation timeout")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Configuration error: %v", err)
	}

	signer, err := solana.ParseSecretKey(cfg.SecretKey)
	if err != nil {
		logger.Fatalf("Invalid signing key: %v", err)
	}
	logger.Printf("Signing identity: %s", signer.PublicKey())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)

	ledgerOpts := []ledger.LedgerOption{
		ledger.WithConfirmTimeout(cfg.ConfirmTimeout),
		ledger.WithLogger(log.New(os.Stdout, "[ledger] ", log.LstdFlags|log.Lshortfile)),
	}
	if cfg.WSEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, nil)
		if err != nil {
			// Polling still works without the subscription path
			logger.Printf("WebSocket connect failed, confirmations fall back to polling: %v", err)
		} else {
			defer ws.Close()
			ledgerOpts = append(ledgerOpts, ledger.WithWSClient(ws))
		}
	}
	ledgerClient := ledger.NewRPCLedger(rpc, ledgerOpts...)

	orch := relay.New(relay.Options{
		Ledger: ledgerClient,
		Signer: signer,
		Mint:   cfg.Mint,
		Logger: log.New(os.Stdout, "[relay] ", log.LstdFlags|log.Lshortfile),
	})

	j, cleanup, err := createJournal(ctx, cfg.JournalDSN, logger)
	if err != nil {
		logger.Fatalf("Failed to create journal: %v", err)
	}
	defer cleanup()

	srv := server.New(server.Options{
		Gate:         auth.NewGate(cfg.APIKey),
		Orchestrator: orch,
		Journal:      j,
		Logger:       logger,
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		go func() {
			// Second signal forces immediate shutdown
			<-sigCh
			logger.Println("Received second signal, forcing immediate shutdown")
			os.Exit(1)
		}()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		cancel()
	}()

	// Prometheus metrics and health on a separate listener
	go startMetricsServer(cfg.MetricsAddr, logger)

	logger.Printf("Relay listening on %s (mint %s)", cfg.ListenAddr, cfg.Mint)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createJournal creates the transfer journal. Without a DSN the journal
// is a no-op and the relay keeps no record of transfers.
func createJournal(ctx context.Context, dsn string, logger *log.Logger) (journal.Journal, func(), error) {
	if dsn == "" {
		return journal.Nop{}, func() {}, nil
	}

	pool, err := jpostgres.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}

	store, err := jpostgres.NewStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	logger.Println("Transfer journal enabled (postgres)")
	return store, pool.Close, nil
}

// startMetricsServer serves /metrics and /health.
func startMetricsServer(addr string, logger *log.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("Metrics server error: %v", err)
	}
}
