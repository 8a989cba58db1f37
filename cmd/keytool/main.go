// Package main prints the public key for the configured signing secret.
// Useful to find the relay's wallet address without exposing the secret.
package main

import (
	"fmt"
	"os"

	"solana-usdc-relay/internal/config"
	"solana-usdc-relay/internal/solana"
)

func main() {
	config.LoadDotEnv()

	secret := os.Getenv("SOLANA_SECRET_KEY")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "Secret key is missing or invalid.")
		os.Exit(1)
	}

	keypair, err := solana.ParseSecretKey(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Secret key is missing or invalid: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Public Key:", keypair.PublicKey())
}
