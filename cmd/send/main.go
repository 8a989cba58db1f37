// Package main sends a one-off token transfer from the command line,
// bypassing the HTTP surface but using the same orchestration path.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"solana-usdc-relay/internal/config"
	"solana-usdc-relay/internal/ledger"
	"solana-usdc-relay/internal/relay"
	"solana-usdc-relay/internal/solana"
)

func main() {
	cfg := config.FromEnv()

	recipient := flag.String("recipient", "", "Recipient wallet address")
	amount := flag.Float64("amount", 0, "Amount in display units (e.g. 1.5 = 1.5 USDC)")
	flag.StringVar(&cfg.RPCEndpoint, "rpc-endpoint", cfg.RPCEndpoint, "Solana RPC HTTP endpoint")
	flag.StringVar(&cfg.Mint, "mint", cfg.Mint, "Token mint address")
	flag.IntVar(&cfg.Decimals, "decimals", cfg.Decimals, "Token base-unit decimals")
	flag.DurationVar(&cfg.ConfirmTimeout, "confirm-timeout", cfg.ConfirmTimeout, "Transaction confirmation timeout")
	flag.Parse()

	logger := log.New(os.Stdout, "[send] ", log.LstdFlags)

	if *recipient == "" {
		logger.Fatal("--recipient is required")
	}
	if cfg.SecretKey == "" {
		logger.Fatal("SOLANA_SECRET_KEY is required")
	}
	if cfg.RPCEndpoint == "" {
		logger.Fatal("SOLANA_RPC_ENDPOINT is required")
	}

	baseUnits, err := relay.ToBaseUnits(*amount, cfg.Decimals)
	if err != nil {
		logger.Fatalf("Invalid amount: %v", err)
	}

	signer, err := solana.ParseSecretKey(cfg.SecretKey)
	if err != nil {
		logger.Fatalf("Invalid signing key: %v", err)
	}

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	ledgerClient := ledger.NewRPCLedger(rpc,
		ledger.WithConfirmTimeout(cfg.ConfirmTimeout),
		ledger.WithLogger(logger),
	)

	orch := relay.New(relay.Options{
		Ledger: ledgerClient,
		Signer: signer,
		Mint:   cfg.Mint,
		Logger: logger,
	})

	logger.Printf("Sending %d base units (%v display) to %s", baseUnits, *amount, *recipient)

	result, err := orch.Transfer(context.Background(), relay.Request{
		Recipient: *recipient,
		Amount:    baseUnits,
	})
	if err != nil {
		logger.Fatalf("Transfer failed: %v", err)
	}

	logger.Printf("Transaction signature: %s", result.Signature)
	if result.Balance != nil {
		logger.Printf("Sender balance: %d base units", *result.Balance)
	}
}
