// Package stub implements ledger.Client for testing.
package stub

import (
	"context"
	"sync"

	"solana-usdc-relay/internal/ledger"
	"solana-usdc-relay/internal/spltoken"
)

// Client is a scripted ledger.Client. Zero value behaves as an empty
// cluster that accepts everything; tests set fields to inject failures.
type Client struct {
	mu sync.Mutex

	// Accounts maps addresses to existence. Provisioning marks the
	// created account as existing.
	Accounts map[string]bool

	// Balances maps addresses to base-unit balances.
	Balances map[string]uint64

	// Signature returned by successful (and timed-out) submissions.
	Signature string

	// Scripted failures, applied per operation.
	DeriveErr          error
	ExistsErr          error
	ProvisionSubmitErr error
	TransferSubmitErr  error
	BalanceErr         error

	// Call records for assertions.
	ProvisionBuilds int
	TransferBuilds  int
	ExistsCalls     []string
	BalanceCalls    []string
	SubmitCalls     [][]spltoken.Instruction
}

// NewClient creates an empty stub client.
func NewClient() *Client {
	return &Client{
		Accounts:  make(map[string]bool),
		Balances:  make(map[string]uint64),
		Signature: "stub-signature",
	}
}

// Compile-time interface check.
var _ ledger.Client = (*Client)(nil)

// DeriveAccount returns a deterministic synthetic address.
func (c *Client) DeriveAccount(owner, mint string) (string, error) {
	if c.DeriveErr != nil {
		return "", c.DeriveErr
	}
	return "ata:" + owner + ":" + mint, nil
}

// AccountExists reports scripted existence.
func (c *Client) AccountExists(_ context.Context, address string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ExistsCalls = append(c.ExistsCalls, address)
	if c.ExistsErr != nil {
		return false, c.ExistsErr
	}
	return c.Accounts[address], nil
}

// BuildProvisionInstruction records the build and constructs a real instruction.
func (c *Client) BuildProvisionInstruction(owner, payer, address, mint string) spltoken.Instruction {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ProvisionBuilds++
	return spltoken.Instruction{
		ProgramID: spltoken.AssociatedTokenProgramID,
		Accounts: []spltoken.AccountMeta{
			{Pubkey: payer, IsSigner: true, IsWritable: true},
			{Pubkey: address, IsWritable: true},
			{Pubkey: owner},
			{Pubkey: mint},
		},
	}
}

// BuildTransferInstruction records the build and constructs a real instruction.
func (c *Client) BuildTransferInstruction(from, to, authority string, amount uint64) spltoken.Instruction {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.TransferBuilds++
	return spltoken.NewTransferInstruction(from, to, authority, amount)
}

// SubmitAndConfirm records the batch and applies scripted outcomes.
// Provisioning batches are recognized by their program ID; a successful
// one marks the created account as existing.
func (c *Client) SubmitAndConfirm(_ context.Context, instructions []spltoken.Instruction, _ spltoken.Signer) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SubmitCalls = append(c.SubmitCalls, instructions)

	if len(instructions) > 0 && instructions[0].ProgramID == spltoken.AssociatedTokenProgramID {
		if c.ProvisionSubmitErr != nil {
			return "", c.ProvisionSubmitErr
		}
		if len(instructions[0].Accounts) > 1 {
			c.Accounts[instructions[0].Accounts[1].Pubkey] = true
		}
		return c.Signature, nil
	}

	if c.TransferSubmitErr != nil {
		// A confirmation timeout still carries the in-flight signature
		return c.Signature, c.TransferSubmitErr
	}
	return c.Signature, nil
}

// GetBalance returns the scripted balance.
func (c *Client) GetBalance(_ context.Context, address string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.BalanceCalls = append(c.BalanceCalls, address)
	if c.BalanceErr != nil {
		return 0, c.BalanceErr
	}
	return c.Balances[address], nil
}
