// Package ledger wraps the Solana network behind a narrow capability
// interface so orchestration logic never touches SDK or wire types.
package ledger

import (
	"context"

	"solana-usdc-relay/internal/spltoken"
)

// Client is the capability set the relay needs from the ledger network.
// Production and test implementations both satisfy it.
type Client interface {
	// DeriveAccount resolves the associated token account for an owner
	// and mint. Deterministic, no I/O.
	DeriveAccount(owner, mint string) (string, error)

	// AccountExists reports whether an account exists on the ledger.
	// Read-only; never mutates ledger state.
	AccountExists(ctx context.Context, address string) (bool, error)

	// BuildProvisionInstruction constructs the instruction that creates
	// the associated token account at address. Pure construction, no I/O.
	BuildProvisionInstruction(owner, payer, address, mint string) spltoken.Instruction

	// BuildTransferInstruction constructs a token transfer of amount base
	// units from one token account to another. Pure construction, no I/O.
	BuildTransferInstruction(from, to, authority string, amount uint64) spltoken.Instruction

	// SubmitAndConfirm sends the instructions as one atomic transaction
	// and blocks until the network confirms it or the call fails.
	// On ErrConfirmationTimeout the returned signature identifies the
	// in-flight transaction whose outcome is unknown.
	SubmitAndConfirm(ctx context.Context, instructions []spltoken.Instruction, signer spltoken.Signer) (string, error)

	// GetBalance reads a token account balance in base units.
	GetBalance(ctx context.Context, address string) (uint64, error)
}
