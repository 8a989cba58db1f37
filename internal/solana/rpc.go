package solana

import "context"

// RPCClient defines the Solana RPC HTTP surface used by the relay.
type RPCClient interface {
	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenAccountBalance retrieves a token account balance in base units.
	GetTokenAccountBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetLatestBlockhash retrieves a recent blockhash for transaction assembly.
	GetLatestBlockhash(ctx context.Context) (Blockhash, error)

	// SendTransaction submits a base64-encoded signed transaction.
	// It is attempted exactly once: a resend after an ambiguous failure
	// could land the same transfer twice.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetSignatureStatuses retrieves confirmation statuses for signatures.
	// Entries are nil for signatures the cluster has not seen.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}
